package cg

import (
	"fmt"
	"strings"

	"github.com/dianpeng/virtualsql/config"
	"github.com/dianpeng/virtualsql/plan"
)

// ErrBackendUnsupported is returned for a dialect nothing here can render
var ErrBackendUnsupported = config.ErrBackendUnsupported

const (
	DialectANSI     = "ansi"
	DialectPostgres = "postgres"
)

type Config struct {
	Dialect       string // dialect to render, ansi when empty
	SourceDialect string // dialect the input was written in, ie oracle
}

// Generate renders the tree as one statement of the configured dialect
func Generate(x *plan.QueryTree, config *Config) (string, error) {
	switch strings.ToLower(config.Dialect) {
	case "", DialectANSI:
		return ANSI(x), nil
	case DialectPostgres:
		return Postgres(x, config.SourceDialect), nil
	default:
		return "", fmt.Errorf("code-gen: %w: dialect %q", ErrBackendUnsupported, config.Dialect)
	}
}

// ANSI renders the tree as is, nothing is substituted
func ANSI(x *plan.QueryTree) string {
	g := &queryCodeGen{
		query:  x,
		writer: newSqlWriter(nil),
	}
	return g.gen()
}

// Postgres renders the tree for postgres. When the source dialect is oracle
// every emitted item goes through ReplaceOracle.
func Postgres(x *plan.QueryTree, sourceDialect string) string {
	var token func(string) string
	if strings.EqualFold(sourceDialect, config.DialectOracle) {
		token = ReplaceOracle
	}
	g := &queryCodeGen{
		query:  x,
		writer: newSqlWriter(token),
	}
	return g.gen()
}
