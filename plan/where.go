package plan

import (
	"strings"

	"github.com/dianpeng/virtualsql/sql"
)

// ----------------------------------------------------------------------------
// Predicate decomposition. Only top level AND conjuncts are looked at, a
// conjunct that is exactly one comparison becomes a join, a filter or a sub
// query comparison. Everything else is kept verbatim as residual.

// normalize the spelling of the operator
func normalizeOp(op string) string {
	switch op {
	case "<>":
		return OpNe
	case "==":
		return OpEq
	default:
		return op
	}
}

// flip the operator when the literal was written on the left hand side, the
// equality operators are symmetric
func flipOp(op string) string {
	switch op {
	case OpGt:
		return OpLt
	case OpGe:
		return OpLe
	case OpLt:
		return OpGt
	case OpLe:
		return OpGe
	default:
		return op
	}
}

func asColumn(x sql.Item) (*sql.Identifier, bool) {
	id, ok := x.(*sql.Identifier)
	if !ok || id.Sub != nil || id.RealName() == "" || id.IsStar() {
		return nil, false
	}
	return id, true
}

func asLiteral(x sql.Item) (sql.Token, bool) {
	t, ok := x.(*sql.TokenItem)
	if !ok || t.Kind != sql.TkLiteral {
		return sql.Token{}, false
	}
	return t.Token, true
}

// literal value with the quote stripped and '' unescaped
func literalValue(t sql.Token) (string, bool) {
	if !t.IsStringLiteral() {
		return t.Text, false
	}
	v := t.Text[1 : len(t.Text)-1]
	return strings.ReplaceAll(v, "''", "'"), true
}

func (self *builder) decompose(c *sql.Comparison, text string) {
	if sql.IsSubselect(c.Left) || sql.IsSubselect(c.Right) {
		self.tree.Subqueries = append(self.tree.Subqueries, text)
		return
	}

	op := normalizeOp(c.Op)
	lcol, lok := asColumn(c.Left)
	rcol, rok := asColumn(c.Right)

	if lok && rok {
		self.tree.Joins = append(self.tree.Joins, JoinPredicate{
			LeftIdentifier:  lcol.Name(),
			RightIdentifier: rcol.Name(),
		})
		return
	}

	var col *sql.Identifier
	var lit sql.Token
	var ok bool

	switch {
	case lok:
		col = lcol
		lit, ok = asLiteral(c.Right)
	case rok:
		col = rcol
		lit, ok = asLiteral(c.Left)
		op = flipOp(op)
	}

	if col == nil || !ok {
		self.warn("where", "comparison %q is neither a filter nor a join", text)
		self.tree.Residual = append(self.tree.Residual, text)
		return
	}

	value, quoted := literalValue(lit)
	self.tree.Filters = append(self.tree.Filters, Filter{
		Identifier: col.Name(),
		Operator:   op,
		Value:      value,
		Quoted:     quoted,
	})
}

// like recognizes "column [not] like 'pattern'"
func like(items []sql.Item) (Filter, bool) {
	if len(items) != 3 && len(items) != 4 {
		return Filter{}, false
	}
	col, ok := asColumn(items[0])
	if !ok {
		return Filter{}, false
	}
	op := OpLike
	rest := items[1:]
	if len(rest) == 3 {
		if t, ok := rest[0].(*sql.TokenItem); !ok || !t.IsKeyword("not") {
			return Filter{}, false
		}
		op = OpNotLike
		rest = rest[1:]
	}
	if t, ok := rest[0].(*sql.TokenItem); !ok || !t.IsKeyword("like") {
		return Filter{}, false
	}
	lit, ok := asLiteral(rest[1])
	if !ok || !lit.IsStringLiteral() {
		return Filter{}, false
	}
	value, _ := literalValue(lit)
	return Filter{
		Identifier: col.Name(),
		Operator:   op,
		Value:      value,
		Quoted:     true,
	}, true
}

func (self *builder) extractWhere(s *sql.Statement) {
	for _, conj := range s.Conjuncts() {
		if c := conj.Single(); c != nil {
			self.decompose(c, conj.Text)
			continue
		}
		if f, ok := like(conj.Items); ok {
			self.tree.Filters = append(self.tree.Filters, f)
			continue
		}
		self.warn("where", "predicate %q is not a single comparison", conj.Text)
		self.tree.Residual = append(self.tree.Residual, conj.Text)
	}
}
