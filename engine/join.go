package engine

import (
	"github.com/dianpeng/virtualsql/plan"
	"github.com/dianpeng/virtualsql/table"
)

// A tuple is one row of the joined result, it holds one row index per table
// and -1 for a table that is not joined in yet.

// key of the join column, values are compared in their canonical form so
// 1 and 1.0 of a NUMBER column meet
func (self *execution) joinKey(src source, row []string) (string, error) {
	v, e := table.Coerce(src.datatype, row[src.position])
	if e != nil {
		return "", self.err("join", "table %s: column %s: %w", self.tables[src.table].Key, src.name, e)
	}
	return v.Text(), nil
}

func (self *execution) newTuple() []int {
	t := make([]int, len(self.tables))
	for idx := range t {
		t[idx] = -1
	}
	return t
}

// seed the tuple list with every row of the table
func (self *execution) seed(idx int) [][]int {
	out := [][]int{}
	for r := range self.tables[idx].Rows {
		t := self.newTuple()
		t[idx] = r
		out = append(out, t)
	}
	return out
}

// cross product of the tuples with every row of the table
func (self *execution) cross(tuples [][]int, idx int) [][]int {
	out := [][]int{}
	for _, t := range tuples {
		for r := range self.tables[idx].Rows {
			n := append([]int{}, t...)
			n[idx] = r
			out = append(out, n)
		}
	}
	return out
}

// hashJoin builds a hash table on the column of the table being joined in,
// the build side, and probes it with the already joined tuples
func (self *execution) hashJoin(tuples [][]int, probe, build source) ([][]int, error) {
	buckets := map[string][]int{}
	for r, row := range self.tables[build.table].Rows {
		k, e := self.joinKey(build, row)
		if e != nil {
			return nil, e
		}
		buckets[k] = append(buckets[k], r)
	}

	out := [][]int{}
	for _, t := range tuples {
		row := self.tables[probe.table].Rows[t[probe.table]]
		k, e := self.joinKey(probe, row)
		if e != nil {
			return nil, e
		}
		for _, r := range buckets[k] {
			n := append([]int{}, t...)
			n[build.table] = r
			out = append(out, n)
		}
	}
	return out, nil
}

// keep the tuples on which both sides of the predicate agree, used once both
// tables of a predicate are joined in already
func (self *execution) restrict(tuples [][]int, l, r source) ([][]int, error) {
	out := [][]int{}
	for _, t := range tuples {
		lk, e := self.joinKey(l, self.tables[l.table].Rows[t[l.table]])
		if e != nil {
			return nil, e
		}
		rk, e := self.joinKey(r, self.tables[r.table].Rows[t[r.table]])
		if e != nil {
			return nil, e
		}
		if lk == rk {
			out = append(out, t)
		}
	}
	return out, nil
}

// join produces the joined tuples. Join predicates are applied in the order
// given by plan.OrderJoins, a table that no predicate links is cross joined
// at the end.
func (self *execution) join() ([][]int, error) {
	if len(self.tables) == 0 {
		return [][]int{}, nil
	}
	if len(self.tables) == 1 {
		return self.seed(0), nil
	}

	sides := map[string]source{}
	for _, j := range self.tree.Joins {
		for _, id := range []string{j.LeftIdentifier, j.RightIdentifier} {
			src, e := self.resolve("join", plan.ParseColumn(id))
			if e != nil {
				return nil, e
			}
			sides[id] = src
		}
	}

	ordered := plan.OrderJoins(self.tree.Joins, func(id string) string {
		return self.tables[sides[id].table].Key
	})

	joined := make([]bool, len(self.tables))
	var tuples [][]int
	started := false

	include := func(idx int) {
		if !started {
			tuples = self.seed(idx)
			started = true
		} else {
			tuples = self.cross(tuples, idx)
		}
		joined[idx] = true
	}

	for _, j := range ordered {
		l := sides[j.LeftIdentifier]
		r := sides[j.RightIdentifier]
		var e error

		switch {
		case joined[l.table] && joined[r.table]:
			tuples, e = self.restrict(tuples, l, r)

		case joined[l.table]:
			tuples, e = self.hashJoin(tuples, l, r)
			joined[r.table] = true

		case joined[r.table]:
			tuples, e = self.hashJoin(tuples, r, l)
			joined[l.table] = true

		default:
			include(l.table)
			if l.table == r.table {
				tuples, e = self.restrict(tuples, l, r)
			} else {
				tuples, e = self.hashJoin(tuples, l, r)
				joined[r.table] = true
			}
		}
		if e != nil {
			return nil, e
		}
		self.debug("join", j.LeftIdentifier+" = "+j.RightIdentifier, len(tuples))
	}

	for idx := range self.tables {
		if !joined[idx] {
			include(idx)
		}
	}
	return tuples, nil
}
