package engine

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dianpeng/virtualsql/plan"
	"github.com/dianpeng/virtualsql/table"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrUnresolvedColumn is returned when a column required by the query is
	// found in no loaded table, or in more than one
	ErrUnresolvedColumn = errors.New("unresolved column")

	// ErrUnsupported is returned for a query the engine can not answer
	// correctly, ie a sub query comparison or an OR predicate
	ErrUnsupported = errors.New("unsupported query")
)

// Result is a complete answer, a header row plus the data rows. An error is
// never returned together with a result, zero rows is a valid result.
type Result struct {
	QueryID string
	Header  []string
	Rows    [][]string
}

type Option func(*Engine)

func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// Engine evaluates query trees over flat file tables. It keeps no state
// between executions, every Execute works on its own loaded tables.
type Engine struct {
	fetcher table.Fetcher
	log     logrus.FieldLogger
}

func defaultLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func New(fetcher table.Fetcher, opts ...Option) *Engine {
	e := &Engine{
		fetcher: fetcher,
		log:     defaultLogger(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// column is one output column
type column struct {
	header   string
	agg      *plan.AggregateRef // nil for a plain column
	src      source
	hasSrc   bool
	datatype string // datatype used when ordering on this column
}

// row is one output row, first is the first tuple it was built from
type row struct {
	values []string
	first  []int
}

// execution is the working state of one query
type execution struct {
	id      string
	tree    *plan.QueryTree
	engine  *Engine
	log     logrus.FieldLogger
	tables  []*table.Table
	tuples  [][]int
	columns []*column
	rows    []*row
}

func (self *execution) debug(stage string, what string, rows int) {
	self.log.WithFields(logrus.Fields{
		"stage": stage,
		"table": what,
		"rows":  rows,
	}).Debug("stage done")
}

// Execute runs the query tree, stages run strictly in order: load, join,
// project, group and aggregate, order, emit. Any failure aborts the query.
func (self *Engine) Execute(tree *plan.QueryTree) (*Result, error) {
	id := uuid.NewString()
	x := &execution{
		id:     id,
		tree:   tree,
		engine: self,
		log:    self.log.WithField("query_id", id),
	}

	for _, w := range tree.Warnings {
		x.log.Warn(w.Error())
	}

	if e := x.check(); e != nil {
		return nil, e
	}
	if e := x.load(); e != nil {
		return nil, e
	}

	tuples, e := x.join()
	if e != nil {
		return nil, e
	}
	x.tuples = tuples

	if e := x.project(); e != nil {
		return nil, e
	}
	if e := x.group(); e != nil {
		return nil, e
	}
	if tree.Distinct {
		x.distinct()
	}
	if e := x.order(); e != nil {
		return nil, e
	}
	return x.emit(), nil
}

// check refuses what would otherwise give a wrong answer
func (self *execution) check() error {
	if len(self.tree.Subqueries) > 0 {
		return self.err("check", "%w: sub query comparison %q", ErrUnsupported, self.tree.Subqueries[0])
	}
	if len(self.tree.Residual) > 0 {
		return self.err("check", "%w: predicate %q", ErrUnsupported, self.tree.Residual[0])
	}
	if len(self.tree.Tables) == 0 {
		return self.err("check", "%w: no table to read", ErrUnsupported)
	}
	for _, a := range self.tree.SelectAggregates {
		if a.Call != "" {
			return self.err("check", "%w: function %s", ErrUnsupported, a.Call)
		}
	}
	if len(self.tree.Having) > 0 {
		self.log.WithField("having", strings.Join(self.tree.Having, ", ")).Warn("having clause is ignored")
	}
	return nil
}

func (self *execution) load() error {
	seen := map[string]bool{}
	for _, def := range self.tree.Tables {
		if seen[def.Key()] {
			return self.err("load", "table %s is listed twice", def.Key())
		}
		seen[def.Key()] = true

		t, e := table.Load(def, self.engine.fetcher, self.tree.FiltersOf(def))
		if e != nil {
			return self.err("load", "%w", e)
		}
		self.tables = append(self.tables, t)
		self.log.WithFields(logrus.Fields{
			"stage":   "load",
			"table":   def.Key(),
			"filters": t.FilterCount(),
		}).Debug("filters pushed down")
		self.debug("load", def.Key(), t.Len())
	}
	return nil
}

func (self *execution) project() error {
	for _, p := range self.tree.Projection {
		if p.Aggregate {
			a := &self.tree.SelectAggregates[p.Index]
			col := &column{
				header:   a.HeaderName(),
				agg:      a,
				datatype: table.TypeNumber,
			}
			if a.ColumnName != "" {
				src, e := self.resolve("project", a.Column())
				if e != nil {
					return e
				}
				col.src, col.hasSrc = src, true
				if a.Function != plan.AggCount {
					col.datatype = src.datatype
				}
			}
			self.columns = append(self.columns, col)
			continue
		}

		c := self.tree.Select[p.Index]
		if c.IsStar() {
			srcs, e := self.expandStar(c)
			if e != nil {
				return e
			}
			for _, src := range srcs {
				self.columns = append(self.columns, &column{
					header:   src.name,
					src:      src,
					hasSrc:   true,
					datatype: src.datatype,
				})
			}
			continue
		}

		src, e := self.resolve("project", c)
		if e != nil {
			return e
		}
		header := c.ColumnName
		if c.Alias != "" {
			header = c.Alias
		}
		self.columns = append(self.columns, &column{
			header:   header,
			src:      src,
			hasSrc:   true,
			datatype: src.datatype,
		})
	}
	self.debug("project", fmt.Sprintf("%d columns", len(self.columns)), len(self.tuples))
	return nil
}

func (self *execution) distinct() {
	seen := map[string]bool{}
	out := []*row{}
	for _, r := range self.rows {
		k := groupKey(r.values)
		if !seen[k] {
			seen[k] = true
			out = append(out, r)
		}
	}
	self.rows = out
}

func (self *execution) emit() *Result {
	header := []string{}
	for _, c := range self.columns {
		header = append(header, c.header)
	}
	rows := [][]string{}
	for _, r := range self.rows {
		rows = append(rows, r.values)
	}
	self.debug("emit", "", len(rows))
	return &Result{
		QueryID: self.id,
		Header:  header,
		Rows:    rows,
	}
}
