package engine

import (
	"fmt"

	"github.com/dianpeng/virtualsql/plan"
	"github.com/dianpeng/virtualsql/table"
)

// source is a resolved column, the table index is into execution.tables
type source struct {
	table    int
	position int
	name     string
	datatype string
}

func (self *execution) tableIndex(key string) int {
	for idx, t := range self.tables {
		if t.Key == key {
			return idx
		}
	}
	return -1
}

// resolve finds the table holding the column. A qualified column must name a
// loaded table, an unqualified one must be found in exactly one table.
func (self *execution) resolve(stage string, ref plan.ColumnRef) (source, error) {
	candidates := []int{}

	if ref.TableOrAlias != "" {
		idx := self.tableIndex(ref.TableOrAlias)
		if idx < 0 {
			return source{}, self.err(stage, "%w: %s, no table %s", ErrUnresolvedColumn, ref.Qualified(), ref.TableOrAlias)
		}
		candidates = append(candidates, idx)
	} else {
		for idx := range self.tables {
			candidates = append(candidates, idx)
		}
	}

	found := []int{}
	for _, idx := range candidates {
		if self.tables[idx].Has(ref.ColumnName) {
			found = append(found, idx)
		}
	}

	switch len(found) {
	case 0:
		return source{}, self.err(stage, "%w: %s", ErrUnresolvedColumn, ref.Qualified())
	case 1:
		t := self.tables[found[0]]
		return source{
			table:    found[0],
			position: t.ColumnPosition[ref.ColumnName],
			name:     ref.ColumnName,
			datatype: t.ColumnDatatype[ref.ColumnName],
		}, nil
	default:
		keys := []string{}
		for _, idx := range found {
			keys = append(keys, self.tables[idx].Key)
		}
		return source{}, self.err(stage, "%w: %s is ambiguous, found in %v", ErrUnresolvedColumn, ref.ColumnName, keys)
	}
}

// value of the source column for one joined tuple
func (self *execution) value(src source, tuple []int) string {
	return self.tables[src.table].Rows[tuple[src.table]][src.position]
}

// all the columns of one table, or of every table, used by '*'
func (self *execution) expandStar(ref plan.ColumnRef) ([]source, error) {
	out := []source{}
	add := func(idx int, t *table.Table) {
		for _, name := range t.Columns {
			out = append(out, source{
				table:    idx,
				position: t.ColumnPosition[name],
				name:     name,
				datatype: t.ColumnDatatype[name],
			})
		}
	}

	if ref.TableOrAlias != "" {
		idx := self.tableIndex(ref.TableOrAlias)
		if idx < 0 {
			return nil, self.err("project", "%w: %s, no table %s", ErrUnresolvedColumn, ref.Qualified(), ref.TableOrAlias)
		}
		add(idx, self.tables[idx])
		return out, nil
	}
	for idx, t := range self.tables {
		add(idx, t)
	}
	return out, nil
}

func (self *execution) err(stage string, f string, args ...interface{}) error {
	return fmt.Errorf("stage(%s): "+f, append([]interface{}{stage}, args...)...)
}
