package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dianpeng/virtualsql/plan"
	"github.com/dianpeng/virtualsql/table"
	"github.com/shopspring/decimal"
)

const secondsPerDay = 86400

func epochDays(t time.Time) int64 { return t.Unix() / secondsPerDay }

// floorDiv rounds toward negative infinity, days before the epoch are negative
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func fromEpochDays(d int64) time.Time { return time.Unix(d*secondsPerDay, 0).UTC() }

// aggregate evaluates the aggregate of the output column over the tuples of
// one group
func (self *execution) aggregate(col *column, group [][]int) (string, error) {
	switch col.agg.Function {
	case plan.AggCount:
		if !col.hasSrc {
			return strconv.Itoa(len(group)), nil
		}
		distinct := map[string]bool{}
		for _, t := range group {
			v, e := table.Coerce(col.src.datatype, self.value(col.src, t))
			if e != nil {
				return "", self.aggErr(col, e)
			}
			distinct[v.Text()] = true
		}
		return strconv.Itoa(len(distinct)), nil

	case plan.AggSum, plan.AggAvg:
		return self.sum(col, group)

	case plan.AggMin, plan.AggMax:
		return self.extreme(col, group)

	default:
		return "", self.err("aggregate", "%w: aggregate %s", ErrUnsupported, col.agg.Function)
	}
}

func (self *execution) aggErr(col *column, e error) error {
	return self.err("aggregate", "%s: %w", col.header, e)
}

// sum and avg, NUMBER columns are summed exactly, DATE columns are summed as
// days since the unix epoch. avg divides by the number of rows in the group.
func (self *execution) sum(col *column, group [][]int) (string, error) {
	if !col.hasSrc {
		return "", self.err("aggregate", "%w: %s needs a column", ErrUnsupported, col.agg.Function)
	}
	if len(group) == 0 {
		return "", nil
	}
	n := int64(len(group))

	switch col.src.datatype {
	case table.TypeNumber:
		total := decimal.Zero
		for _, t := range group {
			raw := self.value(col.src, t)
			d, e := decimal.NewFromString(strings.TrimSpace(raw))
			if e != nil {
				return "", self.aggErr(col, fmt.Errorf("%w: %q is not a number", table.ErrTypeCoercion, raw))
			}
			total = total.Add(d)
		}
		if col.agg.Function == plan.AggAvg {
			total = total.Div(decimal.NewFromInt(n))
		}
		return total.String(), nil

	case table.TypeDate:
		var total int64
		for _, t := range group {
			raw := self.value(col.src, t)
			d, e := table.ParseDate(raw)
			if e != nil {
				return "", self.aggErr(col, fmt.Errorf("%w: %q is not a date", table.ErrTypeCoercion, raw))
			}
			total += epochDays(d)
		}
		if col.agg.Function == plan.AggAvg {
			total = floorDiv(total, n)
		}
		return table.FormatDate(fromEpochDays(total)), nil

	default:
		return "", self.err(
			"aggregate",
			"%w: %s over %s column %s",
			table.ErrTypeCoercion,
			col.agg.Function,
			col.src.datatype,
			col.src.name,
		)
	}
}

// min and max compare the coerced values and keep the original text
func (self *execution) extreme(col *column, group [][]int) (string, error) {
	if !col.hasSrc {
		return "", self.err("aggregate", "%w: %s needs a column", ErrUnsupported, col.agg.Function)
	}

	var best table.Value
	bestRaw := ""
	for idx, t := range group {
		raw := self.value(col.src, t)
		v, e := table.Coerce(col.src.datatype, raw)
		if e != nil {
			return "", self.aggErr(col, e)
		}
		if idx == 0 {
			best, bestRaw = v, raw
			continue
		}
		cmp := v.Compare(best)
		if (col.agg.Function == plan.AggMin && cmp < 0) ||
			(col.agg.Function == plan.AggMax && cmp > 0) {
			best, bestRaw = v, raw
		}
	}
	return bestRaw, nil
}
