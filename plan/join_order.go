package plan

// OrderJoins reorders the join predicates so that every join, except the
// first one, shares a table with the joins placed before it. This only puts
// the tables into a workable order, no statistics are involved. The owner
// callback maps a join identifier to the key of the table holding it.
//
// Joins that never connect to the chain, ie a second disjoint group, are kept
// and appended at the end in their original order.
func OrderJoins(joins []JoinPredicate, owner func(string) string) []JoinPredicate {
	type pair struct {
		join   JoinPredicate
		tables []string
	}

	pending := []pair{}
	for _, j := range joins {
		pending = append(pending, pair{
			join:   j,
			tables: []string{owner(j.LeftIdentifier), owner(j.RightIdentifier)},
		})
	}

	out := []JoinPredicate{}
	seen := map[string]bool{}

	connects := func(p pair) bool {
		for _, t := range p.tables {
			if seen[t] {
				return true
			}
		}
		return false
	}

	for len(pending) > 0 {
		picked := -1
		if len(seen) == 0 {
			picked = 0
		} else {
			for idx, p := range pending {
				if connects(p) {
					picked = idx
					break
				}
			}
		}

		// start a new chain from the first remaining join
		if picked < 0 {
			picked = 0
		}

		p := pending[picked]
		out = append(out, p.join)
		for _, t := range p.tables {
			seen[t] = true
		}
		pending = append(pending[:picked], pending[picked+1:]...)
	}
	return out
}
