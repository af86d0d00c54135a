package engine

import (
	"sort"

	"github.com/dianpeng/virtualsql/plan"
	"github.com/dianpeng/virtualsql/table"
)

// sortKey is one ORDER BY item resolved to a typed extractor over an output
// row, keys are compared lexicographically in list order
type sortKey struct {
	name       string
	datatype   string
	descending bool
	extract    func(*row) string
}

// sortValue is an extracted key, an empty field sorts before anything else
type sortValue struct {
	null  bool
	value table.Value
}

func compareSortValue(a, b sortValue) int {
	switch {
	case a.null && b.null:
		return 0
	case a.null:
		return -1
	case b.null:
		return 1
	default:
		return a.value.Compare(b.value)
	}
}

// findColumn matches an ORDER BY item against the output columns, a plain
// item by column name or header, an aggregate item by function and column
func (self *execution) findColumn(item plan.OrderItem) int {
	for idx, c := range self.columns {
		if item.Function == "" {
			if c.agg != nil {
				if item.TableOrAlias == "" && c.header == item.ColumnName {
					return idx
				}
				continue
			}
			if item.TableOrAlias != "" && self.tables[c.src.table].Key != item.TableOrAlias {
				continue
			}
			if c.src.name == item.ColumnName || c.header == item.ColumnName {
				return idx
			}
		} else if c.agg != nil &&
			c.agg.Function == item.Function &&
			c.agg.ColumnName == item.ColumnName &&
			(item.TableOrAlias == "" || c.agg.TableOrAlias == "" || c.agg.TableOrAlias == item.TableOrAlias) {
			return idx
		}
	}
	return -1
}

func (self *execution) sortKeys() ([]sortKey, error) {
	keys := []sortKey{}
	grouped := self.aggregating()

	for _, item := range self.tree.Ordering {
		if idx := self.findColumn(item); idx >= 0 {
			c := self.columns[idx]
			keys = append(keys, sortKey{
				name:       c.header,
				datatype:   c.datatype,
				descending: item.Descending,
				extract:    func(r *row) string { return r.values[idx] },
			})
			continue
		}

		if item.Function != "" {
			return nil, self.err("order", "%w: %s is not in the select list", ErrUnresolvedColumn, item.HeaderName())
		}

		// a column that is not projected, it must still have one value per
		// output row, ie no aggregation or one of the grouping columns
		src, e := self.resolve("order", plan.ColumnRef{
			ColumnName:   item.ColumnName,
			TableOrAlias: item.TableOrAlias,
		})
		if e != nil {
			return nil, e
		}
		if grouped && !self.isGroupingColumn(src) {
			return nil, self.err("order", "%w: %s is neither selected nor in group by", ErrUnresolvedColumn, item.ColumnName)
		}
		keys = append(keys, sortKey{
			name:       item.ColumnName,
			datatype:   src.datatype,
			descending: item.Descending,
			extract:    func(r *row) string { return self.value(src, r.first) },
		})
	}
	return keys, nil
}

func (self *execution) isGroupingColumn(src source) bool {
	for _, g := range self.tree.Grouping {
		k, e := self.resolve("order", g)
		if e == nil && k.table == src.table && k.position == src.position {
			return true
		}
	}
	return false
}

// order sorts the output rows, the sort is stable so rows with equal keys
// keep their first seen order
func (self *execution) order() error {
	if len(self.tree.Ordering) == 0 {
		return nil
	}
	keys, e := self.sortKeys()
	if e != nil {
		return e
	}

	// extract and coerce every key once
	values := make([][]sortValue, len(self.rows))
	for idx, r := range self.rows {
		values[idx] = make([]sortValue, len(keys))
		for k, key := range keys {
			raw := key.extract(r)
			if raw == "" && key.datatype != table.TypeChar {
				values[idx][k] = sortValue{null: true}
				continue
			}
			v, e := table.Coerce(key.datatype, raw)
			if e != nil {
				return self.err("order", "%s: %w", key.name, e)
			}
			values[idx][k] = sortValue{value: v}
		}
	}

	perm := make([]int, len(self.rows))
	for idx := range perm {
		perm[idx] = idx
	}
	sort.SliceStable(perm, func(i, j int) bool {
		a, b := values[perm[i]], values[perm[j]]
		for k, key := range keys {
			cmp := compareSortValue(a[k], b[k])
			if key.descending {
				cmp = -cmp
			}
			if cmp != 0 {
				return cmp < 0
			}
		}
		return false
	})

	sorted := make([]*row, len(self.rows))
	for idx, p := range perm {
		sorted[idx] = self.rows[p]
	}
	self.rows = sorted
	self.debug("order", "", len(self.rows))
	return nil
}
