package cg

import (
	"github.com/dianpeng/virtualsql/plan"
)

// queryCodeGen renders the clauses in canonical order, select, from, where,
// group by, order by and having. An empty list leaves its clause out.
type queryCodeGen struct {
	query  *plan.QueryTree
	writer *sqlWriter
}

func (self *queryCodeGen) gen() string {
	keyword := "select"
	if self.query.Distinct {
		keyword = "select distinct"
	}
	self.writer.Clause(keyword, self.genSelect(), ", ")
	self.writer.Clause("from", self.genFrom(), ", ")
	self.writer.Clause("where", self.genWhere(), " and ")
	self.writer.Clause("group by", self.genGroupBy(), ", ")
	self.writer.Clause("order by", self.genOrderBy(), ", ")

	// having conditions are kept one per item, and are conjunctive
	self.writer.Clause("having", self.query.Having, " and ")
	return self.writer.Flush()
}

func alias(x string, as string) string {
	if as == "" {
		return x
	}
	return x + " as " + as
}

func genAggregate(a plan.AggregateRef) string {
	if a.Call != "" {
		return alias(a.Call, a.Alias)
	}
	arg := "*"
	if a.ColumnName != "" {
		arg = a.Column().Qualified()
	}
	return alias(a.Function+"("+arg+")", a.Alias)
}

// genSelect keeps the select list order, plain columns and aggregates are
// interleaved as they were written
func (self *queryCodeGen) genSelect() []string {
	out := []string{}
	for _, p := range self.query.Projection {
		if p.Aggregate {
			out = append(out, genAggregate(self.query.SelectAggregates[p.Index]))
		} else {
			c := self.query.Select[p.Index]
			out = append(out, alias(c.Qualified(), c.Alias))
		}
	}
	return out
}

func (self *queryCodeGen) genFrom() []string {
	out := []string{}
	for _, t := range self.query.Tables {
		name := t.Name
		if t.Schema != "" {
			name = t.Schema + "." + name
		}
		out = append(out, alias(name, t.Alias))
	}
	return out
}

// genWhere emits filters, then joins, then sub query comparisons, and last
// whatever conjunct could not be decomposed
func (self *queryCodeGen) genWhere() []string {
	out := []string{}
	for _, f := range self.query.Filters {
		out = append(out, f.Identifier+" "+f.Operator+" "+f.ValueText())
	}
	for _, j := range self.query.Joins {
		out = append(out, j.LeftIdentifier+" = "+j.RightIdentifier)
	}
	out = append(out, self.query.Subqueries...)
	out = append(out, self.query.Residual...)
	return out
}

func (self *queryCodeGen) genGroupBy() []string {
	out := []string{}
	for _, g := range self.query.Grouping {
		out = append(out, g.Qualified())
	}
	return out
}

func (self *queryCodeGen) genOrderBy() []string {
	out := []string{}
	for _, o := range self.query.Ordering {
		x := plan.ColumnRef{
			ColumnName:   o.ColumnName,
			TableOrAlias: o.TableOrAlias,
		}.Qualified()
		if o.Function != "" {
			if o.ColumnName == "" {
				x = o.Function + "(*)"
			} else {
				x = o.Function + "(" + x + ")"
			}
		}
		if o.Descending {
			x += " desc"
		}
		out = append(out, x)
	}
	return out
}
