package plan

import (
	"fmt"
	"strings"
)

// Printing the query tree out, for testing, debugging, visualization purpose
// etc ...

func (self *QueryTree) Print() string {
	buf := &strings.Builder{}
	self.printSelect(buf)
	self.printTables(buf)
	self.printWhere(buf)
	self.printGrouping(buf)
	self.printOrdering(buf)
	self.printHaving(buf)
	self.printWarnings(buf)
	return buf.String()
}

func (self *QueryTree) printSelect(
	buf *strings.Builder,
) {
	buf.WriteString("##> Select\n")
	buf.WriteString(fmt.Sprintf("Distinct: %v\n", self.Distinct))
	for idx, p := range self.Projection {
		if p.Aggregate {
			agg := self.SelectAggregates[p.Index]
			buf.WriteString(
				fmt.Sprintf(
					"Var[%d]: %s(%s) as %s\n",
					idx,
					agg.Function,
					agg.Column().Qualified(),
					agg.HeaderName(),
				),
			)
		} else {
			col := self.Select[p.Index]
			if col.Alias != "" {
				buf.WriteString(fmt.Sprintf("Var[%d]: %s as %s\n", idx, col.Qualified(), col.Alias))
			} else {
				buf.WriteString(fmt.Sprintf("Var[%d]: %s\n", idx, col.Qualified()))
			}
		}
	}
}

func (self *QueryTree) printTables(
	buf *strings.Builder,
) {
	for idx, t := range self.Tables {
		buf.WriteString("##> Table Descriptor\n")
		buf.WriteString(fmt.Sprintf("Index: %d\n", idx))
		buf.WriteString(fmt.Sprintf("Schema: %s\n", t.Schema))
		buf.WriteString(fmt.Sprintf("Name: %s\n", t.Name))
		buf.WriteString(fmt.Sprintf("Alias: %s\n", t.Alias))
	}
}

func (self *QueryTree) printWhere(
	buf *strings.Builder,
) {
	buf.WriteString("##> Join\n")
	if len(self.Joins) == 0 {
		buf.WriteString("--\n")
	}
	for idx, j := range self.Joins {
		buf.WriteString(fmt.Sprintf("Join[%d]: %s = %s\n", idx, j.LeftIdentifier, j.RightIdentifier))
	}

	buf.WriteString("##> Filter\n")
	if len(self.Filters) == 0 {
		buf.WriteString("--\n")
	}
	for idx, f := range self.Filters {
		buf.WriteString(fmt.Sprintf("Filter[%d]: %s %s %s\n", idx, f.Identifier, f.Operator, f.ValueText()))
	}

	if len(self.Subqueries) > 0 {
		buf.WriteString("##> Subquery\n")
		for idx, s := range self.Subqueries {
			buf.WriteString(fmt.Sprintf("Subquery[%d]: %s\n", idx, s))
		}
	}

	if len(self.Residual) > 0 {
		buf.WriteString("##> Residual\n")
		for idx, s := range self.Residual {
			buf.WriteString(fmt.Sprintf("Residual[%d]: %s\n", idx, s))
		}
	}
}

func (self *QueryTree) printGrouping(
	buf *strings.Builder,
) {
	buf.WriteString("##> GroupBy\n")
	if len(self.Grouping) == 0 {
		buf.WriteString("--\n")
	}
	for idx, g := range self.Grouping {
		buf.WriteString(fmt.Sprintf("Var[%d]: %s\n", idx, g.Qualified()))
	}
}

func (self *QueryTree) printOrdering(
	buf *strings.Builder,
) {
	buf.WriteString("##> OrderBy\n")
	if len(self.Ordering) == 0 {
		buf.WriteString("--\n")
	}
	for idx, o := range self.Ordering {
		order := "asc"
		if o.Descending {
			order = "desc"
		}
		col := ColumnRef{ColumnName: o.ColumnName, TableOrAlias: o.TableOrAlias}.Qualified()
		if o.Function != "" {
			col = fmt.Sprintf("%s(%s)", o.Function, col)
		}
		buf.WriteString(fmt.Sprintf("Sort[%d]: %s %s\n", idx, col, order))
	}
}

func (self *QueryTree) printHaving(
	buf *strings.Builder,
) {
	buf.WriteString("##> Having\n")
	if len(self.Having) == 0 {
		buf.WriteString("--\n")
	}
	for idx, h := range self.Having {
		buf.WriteString(fmt.Sprintf("Filter[%d]: %s\n", idx, h))
	}
}

func (self *QueryTree) printWarnings(
	buf *strings.Builder,
) {
	if len(self.Warnings) == 0 {
		return
	}
	buf.WriteString("##> Warning\n")
	for _, w := range self.Warnings {
		buf.WriteString(w.Error())
		buf.WriteString("\n")
	}
}
