package plan

import (
	"github.com/dianpeng/virtualsql/sql"
)

type builder struct {
	tree *QueryTree
}

func (self *builder) warn(stage string, f string, args ...interface{}) {
	self.tree.Warnings = append(self.tree.Warnings, warn(stage, f, args...))
}

// Build decomposes the source into a query tree. It only fails when the
// source can not be tokenized or grouped, a missing clause simply leaves the
// corresponding field empty.
func Build(source string) (*QueryTree, error) {
	s, e := sql.Parse(source)
	if e != nil {
		return nil, err("decompose", "%w", e)
	}

	b := &builder{
		tree: &QueryTree{
			Source:           source,
			Distinct:         s.IsDistinct(),
			Select:           []ColumnRef{},
			SelectAggregates: []AggregateRef{},
			Projection:       []Projected{},
			Tables:           []TableDef{},
			Joins:            []JoinPredicate{},
			Filters:          []Filter{},
			Subqueries:       []string{},
			Residual:         []string{},
			Grouping:         []ColumnRef{},
			Ordering:         []OrderItem{},
			Having:           []string{},
		},
	}

	b.extractSelect(s)
	b.extractTables(s)
	b.extractWhere(s)
	b.extractGrouping(s)
	b.extractOrdering(s)
	b.extractHaving(s)
	return b.tree, nil
}

// HasAggregate checks whether the select list carries any aggregate
func (self *QueryTree) HasAggregate() bool {
	for _, a := range self.SelectAggregates {
		if a.Call == "" {
			return true
		}
	}
	return false
}

// Table finds the table definition by its alias-or-name
func (self *QueryTree) Table(key string) (TableDef, bool) {
	for _, t := range self.Tables {
		if t.Key() == key {
			return t, true
		}
	}
	return TableDef{}, false
}

// FiltersOf returns the filters that may apply to the table, ie the
// unqualified ones and the ones qualified by the table's alias-or-name
func (self *QueryTree) FiltersOf(def TableDef) []Filter {
	out := []Filter{}
	for _, f := range self.Filters {
		owner := f.Column().TableOrAlias
		if owner == "" || owner == def.Key() {
			out = append(out, f)
		}
	}
	return out
}
