package engine

import (
	"strconv"
	"strings"
)

// groupKey is the canonical encoding of a grouping tuple, two tuples land in
// the same bucket when their values are equal, whatever rows they come from
func groupKey(values []string) string {
	b := strings.Builder{}
	b.WriteByte('(')
	for idx, v := range values {
		if idx > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Quote(v))
	}
	b.WriteByte(')')
	return b.String()
}

// function calls are refused by check, so every select aggregate is a real one
func (self *execution) aggregating() bool {
	return len(self.tree.Grouping) > 0 || self.tree.HasAggregate()
}

// group builds the output rows. Without grouping and aggregates every tuple
// is a row. Otherwise tuples are bucketed by their grouping values, buckets
// keep first seen order, and aggregates with no GROUP BY see one implicit
// group holding every tuple.
func (self *execution) group() error {
	if !self.aggregating() {
		for _, t := range self.tuples {
			r := &row{first: t}
			for _, c := range self.columns {
				r.values = append(r.values, self.value(c.src, t))
			}
			self.rows = append(self.rows, r)
		}
		return nil
	}

	keys := []source{}
	for _, g := range self.tree.Grouping {
		src, e := self.resolve("group", g)
		if e != nil {
			return e
		}
		keys = append(keys, src)
	}

	// a plain column has one value per group only when it is grouped on
	for _, c := range self.columns {
		if c.agg != nil {
			continue
		}
		grouped := false
		for _, k := range keys {
			if k.table == c.src.table && k.position == c.src.position {
				grouped = true
				break
			}
		}
		if !grouped {
			return self.err("group", "%w: column %s is neither aggregated nor in group by", ErrUnsupported, c.src.name)
		}
	}

	order := []string{}
	buckets := map[string][][]int{}
	for _, t := range self.tuples {
		values := make([]string, 0, len(keys))
		for _, k := range keys {
			values = append(values, self.value(k, t))
		}
		k := groupKey(values)
		if _, ok := buckets[k]; !ok {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], t)
	}

	// implicit group, also when no tuple survived the filters
	if len(keys) == 0 && len(order) == 0 {
		order = append(order, groupKey(nil))
		buckets[order[0]] = [][]int{}
	}
	self.debug("group", strconv.Itoa(len(order))+" groups", len(self.tuples))

	for _, k := range order {
		tuples := buckets[k]
		r := &row{}
		if len(tuples) > 0 {
			r.first = tuples[0]
		}
		for _, c := range self.columns {
			if c.agg == nil {
				r.values = append(r.values, self.value(c.src, tuples[0]))
				continue
			}
			v, e := self.aggregate(c, tuples)
			if e != nil {
				return e
			}
			r.values = append(r.values, v)
		}
		self.rows = append(self.rows, r)
	}
	return nil
}
