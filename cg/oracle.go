package cg

import (
	"strings"

	"github.com/dianpeng/virtualsql/sql"
)

func nextIsParen(tokens []sql.Token, idx int) bool {
	for idx++; idx < len(tokens); idx++ {
		if tokens[idx].IsNoise() {
			continue
		}
		return tokens[idx].IsPunct("(")
	}
	return false
}

// ReplaceOracle rewrites the oracle only bits of one emitted item:
//
//	sysdate        'now'::timestamp
//	nvl(           coalesce(
//	rowid          ctid
//	x.nextval      nextval('x')
//
// Only identifiers are looked at, string literals are never touched. Text
// that does not tokenize is returned unchanged.
func ReplaceOracle(x string) string {
	tokens, e := sql.Tokenize(x)
	if e != nil {
		return x
	}

	b := strings.Builder{}
	for idx := 0; idx < len(tokens); idx++ {
		tk := tokens[idx]
		if tk.Kind != sql.TkIdent {
			b.WriteString(tk.Text)
			continue
		}

		switch {
		case idx+2 < len(tokens) &&
			tokens[idx+1].IsPunct(".") &&
			tokens[idx+2].Kind == sql.TkIdent &&
			strings.EqualFold(tokens[idx+2].Text, "nextval"):
			b.WriteString("nextval('" + tk.Text + "')")
			idx += 2

		case strings.EqualFold(tk.Text, "sysdate"):
			b.WriteString("'now'::timestamp")

		case strings.EqualFold(tk.Text, "rowid"):
			b.WriteString("ctid")

		case strings.EqualFold(tk.Text, "nvl") && nextIsParen(tokens, idx):
			b.WriteString("coalesce")

		default:
			b.WriteString(tk.Text)
		}
	}
	return b.String()
}
