package plan

import (
	"strings"

	"github.com/dianpeng/virtualsql/sql"
)

// ----------------------------------------------------------------------------
// Identifier and aggregate classification. Every extractor drains a fresh
// cursor, so no extractor depends on what another one consumed.

// flatten a comma joined list into its members
func flatten(items []sql.Item) []sql.Item {
	out := []sql.Item{}
	for _, x := range items {
		if l, ok := x.(*sql.IdentifierList); ok {
			out = append(out, l.Members...)
		} else {
			out = append(out, x)
		}
	}
	return out
}

// the column an aggregate is computed on, the first identifier argument.
// count(*) and an argument that is not an identifier both yield nothing
func aggregateColumn(f *sql.Function) (string, string) {
	for _, p := range f.Params() {
		if id, ok := p.(*sql.Identifier); ok && id.Sub == nil {
			if id.IsStar() {
				return "", ""
			}
			return id.RealName(), id.ParentName()
		}
	}
	return "", ""
}

func (self *builder) extractSelect(s *sql.Statement) {
	c := s.ScanSelect()
	for _, x := range flatten(c.Collect()) {
		switch v := x.(type) {
		case *sql.Function:
			name := strings.ToLower(v.Name)
			col, owner := aggregateColumn(v)
			agg := AggregateRef{
				Function:     name,
				ColumnName:   col,
				TableOrAlias: owner,
				Alias:        v.Alias,
			}
			if !IsAggregate(name) {
				agg.Call = v.CallText()
			}
			self.tree.Projection = append(self.tree.Projection, Projected{
				Aggregate: true,
				Index:     len(self.tree.SelectAggregates),
			})
			self.tree.SelectAggregates = append(self.tree.SelectAggregates, agg)

		case *sql.Identifier:
			if v.Sub != nil || v.RealName() == "" {
				self.warn("select", "item %q is not a column", v.Text())
				continue
			}
			self.tree.Projection = append(self.tree.Projection, Projected{
				Index: len(self.tree.Select),
			})
			self.tree.Select = append(self.tree.Select, ColumnRef{
				ColumnName:   v.RealName(),
				TableOrAlias: v.ParentName(),
				Alias:        v.Alias,
			})

		default:
			self.warn("select", "item %q is not a column", x.Text())
		}
	}
}

func (self *builder) extractTables(s *sql.Statement) {
	c := s.ScanFrom()
	for _, x := range flatten(c.Collect()) {
		id, ok := x.(*sql.Identifier)
		if !ok || id.Sub != nil || id.RealName() == "" || id.IsStar() {
			self.warn("from", "item %q is not a table", x.Text())
			continue
		}
		self.tree.Tables = append(self.tree.Tables, TableDef{
			Schema: id.Qualifier(),
			Name:   id.RealName(),
			Alias:  id.Alias,
		})
	}
}

func (self *builder) extractGrouping(s *sql.Statement) {
	c := s.ScanGroupBy()
	for _, x := range flatten(c.Collect()) {
		id, ok := x.(*sql.Identifier)
		if !ok || id.Sub != nil || id.RealName() == "" || id.IsStar() {
			self.warn("group by", "item %q is not a column", x.Text())
			continue
		}
		self.tree.Grouping = append(self.tree.Grouping, ColumnRef{
			ColumnName:   id.RealName(),
			TableOrAlias: id.ParentName(),
		})
	}
}

func (self *builder) extractOrdering(s *sql.Statement) {
	c := s.ScanOrderBy()
	for _, x := range flatten(c.Collect()) {
		switch v := x.(type) {
		case *sql.Function:
			col, owner := aggregateColumn(v)
			self.tree.Ordering = append(self.tree.Ordering, OrderItem{
				ColumnName:   col,
				TableOrAlias: owner,
				Function:     strings.ToLower(v.Name),
				Descending:   v.Direction == "desc",
			})

		case *sql.Identifier:
			if v.Sub != nil || v.RealName() == "" || v.IsStar() {
				self.warn("order by", "item %q is not a column", v.Text())
				continue
			}
			self.tree.Ordering = append(self.tree.Ordering, OrderItem{
				ColumnName:   v.RealName(),
				TableOrAlias: v.ParentName(),
				Descending:   v.Direction == "desc",
			})

		default:
			self.warn("order by", "item %q is not a column", x.Text())
		}
	}
}

// the having list is kept as text, it is never evaluated
func (self *builder) extractHaving(s *sql.Statement) {
	c := s.ScanHaving()
	for _, x := range c.Collect() {
		if t, ok := x.(*sql.TokenItem); ok && t.IsKeyword("and") {
			continue
		}
		self.tree.Having = append(self.tree.Having, x.Text())
	}
}
