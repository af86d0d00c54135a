package table

import (
	"fmt"
	"regexp"

	"github.com/dianpeng/virtualsql/plan"
	"github.com/dianpeng/virtualsql/sql"
)

// Table is one loaded table, all rows are kept in memory for the duration of
// a single query. Column names are unique.
type Table struct {
	Key            string // alias-or-name of the table definition
	Columns        []string
	ColumnPosition map[string]int
	ColumnDatatype map[string]string
	Rows           [][]string

	filters []rowFilter
}

type rowFilter struct {
	column   string
	position int
	datatype string
	op       string
	value    Value
	pattern  *regexp.Regexp // like and not like only
}

func (self *rowFilter) match(raw string) (bool, error) {
	if self.pattern != nil {
		return self.pattern.MatchString(raw) == (self.op == plan.OpLike), nil
	}
	v, e := Coerce(self.datatype, raw)
	if e != nil {
		return false, fmt.Errorf("column %s: %w", self.column, e)
	}
	return Match(self.op, v.Compare(self.value))
}

func newTable(key string, columns []string, datatype map[string]string) (*Table, error) {
	t := &Table{
		Key:            key,
		Columns:        columns,
		ColumnPosition: map[string]int{},
		ColumnDatatype: map[string]string{},
		Rows:           [][]string{},
	}
	for idx, name := range columns {
		if _, ok := t.ColumnPosition[name]; ok {
			return nil, fmt.Errorf("table %s: duplicate column %s", key, name)
		}
		t.ColumnPosition[name] = idx

		if dt, ok := datatype[name]; ok {
			t.ColumnDatatype[name] = dt
		} else {
			t.ColumnDatatype[name] = TypeChar
		}
	}
	return t, nil
}

func (self *Table) Has(column string) bool {
	_, ok := self.ColumnPosition[column]
	return ok
}

func (self *Table) Len() int { return len(self.Rows) }

// Applies checks whether the filter targets this table, ie it names one of
// its columns and, when qualified, the table's alias-or-name
func (self *Table) Applies(f plan.Filter) bool {
	col := f.Column()
	if col.TableOrAlias != "" && col.TableOrAlias != self.Key {
		return false
	}
	return self.Has(col.ColumnName)
}

// setFilters compiles the applicable filters, the filter value is coerced to
// the column datatype once
func (self *Table) setFilters(filters []plan.Filter) error {
	self.filters = nil
	for _, f := range filters {
		if !self.Applies(f) {
			continue
		}
		name := f.Column().ColumnName
		dt := self.ColumnDatatype[name]

		if f.Operator == plan.OpLike || f.Operator == plan.OpNotLike {
			r, e := sql.CompileLike(f.Value)
			if e != nil {
				return fmt.Errorf("table %s: filter on %s: %w", self.Key, name, e)
			}
			self.filters = append(self.filters, rowFilter{
				column:   name,
				position: self.ColumnPosition[name],
				datatype: dt,
				op:       f.Operator,
				pattern:  r,
			})
			continue
		}

		v, e := Coerce(dt, f.Value)
		if e != nil {
			return fmt.Errorf("table %s: filter on %s: %w", self.Key, name, e)
		}
		self.filters = append(self.filters, rowFilter{
			column:   name,
			position: self.ColumnPosition[name],
			datatype: dt,
			op:       f.Operator,
			value:    v,
		})
	}
	return nil
}

// add appends the row when it satisfies every applicable filter
func (self *Table) add(row []string) (bool, error) {
	for _, f := range self.filters {
		ok, e := f.match(row[f.position])
		if e != nil {
			return false, fmt.Errorf("table %s: %w", self.Key, e)
		}
		if !ok {
			return false, nil
		}
	}
	self.Rows = append(self.Rows, row)
	return true, nil
}

// FilterCount is the number of filters pushed down into the scan
func (self *Table) FilterCount() int { return len(self.filters) }
