// Package vsql is the single entry point, it decomposes a statement and hands
// the tree to whatever answers queries for the configured target datastore.
package vsql

import (
	"fmt"
	"io"
	"os"

	"github.com/dianpeng/virtualsql/cg"
	"github.com/dianpeng/virtualsql/config"
	"github.com/dianpeng/virtualsql/engine"
	"github.com/dianpeng/virtualsql/plan"
	"github.com/dianpeng/virtualsql/table"
	"github.com/sirupsen/logrus"
)

// Output is what one run produced. A file target fills Result, a postgres
// target fills SQL, the tree is always there.
type Output struct {
	Tree   *plan.QueryTree
	Result *engine.Result
	SQL    string
}

type runner struct {
	log     logrus.FieldLogger
	fetcher table.Fetcher
}

type Option func(*runner)

func WithLogger(log logrus.FieldLogger) Option {
	return func(r *runner) {
		r.log = log
	}
}

// WithFetcher replaces the directory fetcher a file target uses by default
func WithFetcher(f table.Fetcher) Option {
	return func(r *runner) {
		r.fetcher = f
	}
}

func newRunner(cfg *config.Config, opts []Option) *runner {
	r := &runner{}
	for _, o := range opts {
		o(r)
	}
	if r.log == nil {
		l := logrus.New()
		l.SetOutput(os.Stderr)
		l.SetLevel(cfg.Level())
		r.log = l
	}
	if r.fetcher == nil {
		r.fetcher = table.NewDirFetcher(cfg.Root())
	}
	return r
}

// Decompose builds the tree and reports every classification warning
func Decompose(source string, log logrus.FieldLogger) (*plan.QueryTree, error) {
	tree, err := plan.Build(source)
	if err != nil {
		return nil, err
	}
	for _, w := range tree.Warnings {
		log.Warn(w.Error())
	}
	return tree, nil
}

// Run answers one statement with the given configuration, a nil config is
// the default one
func Run(source string, cfg *config.Config, opts ...Option) (*Output, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := newRunner(cfg, opts)

	tree, err := plan.Build(source)
	if err != nil {
		return nil, err
	}
	out := &Output{Tree: tree}

	switch cfg.TargetDatastoreType {
	case config.TargetFile:
		// warnings are logged by the engine, tagged with the query id
		eng := engine.New(r.fetcher, engine.WithLogger(r.log))
		result, err := eng.Execute(tree)
		if err != nil {
			return nil, err
		}
		out.Result = result

	case config.TargetPostgres:
		for _, w := range tree.Warnings {
			r.log.Warn(w.Error())
		}
		out.SQL = cg.Postgres(tree, cfg.InputSQLType)
		r.log.WithField("sql", out.SQL).Debug("postgres statement")

	default:
		return nil, fmt.Errorf("run: %w: target datastore %q", config.ErrBackendUnsupported, cfg.TargetDatastoreType)
	}
	return out, nil
}

// Scan renders the awk scan program of one table of the statement, the
// table is picked by alias-or-name, the first one when key is empty. With
// run set the program is executed over the table's data file and the
// filtered CSV is written to w, otherwise the program itself is.
func Scan(
	source string,
	cfg *config.Config,
	key string,
	run bool,
	w io.Writer,
	opts ...Option,
) error {
	if cfg == nil {
		cfg = config.Default()
	}
	r := newRunner(cfg, opts)

	tree, err := Decompose(source, r.log)
	if err != nil {
		return err
	}
	if len(tree.Tables) == 0 {
		return fmt.Errorf("scan: statement reads no table")
	}

	def := tree.Tables[0]
	if key != "" {
		t, ok := tree.Table(key)
		if !ok {
			return fmt.Errorf("scan: no table %s in statement", key)
		}
		def = t
	}

	files, err := r.fetcher.Fetch(def)
	if err != nil {
		return err
	}
	if files.Format != table.FormatCSV {
		return fmt.Errorf("scan: table %s: %w: awk scans csv only", def.Key(), engine.ErrUnsupported)
	}

	header, err := os.Open(files.Header)
	if err != nil {
		return err
	}
	defer func() { _ = header.Close() }()

	datatype, err := table.ReadTypedHeader(header)
	if err != nil {
		return fmt.Errorf("scan: table %s: %w", def.Key(), err)
	}

	program, err := cg.AwkScan(tree, def, datatype)
	if err != nil {
		return err
	}
	if !run {
		_, err := io.WriteString(w, program)
		return err
	}

	data, err := os.Open(files.Data)
	if err != nil {
		return err
	}
	defer func() { _ = data.Close() }()
	return cg.RunAwk(program, data, w)
}
