package plan

import (
	"errors"
	"fmt"
	"strings"
)

// ErrClassification marks an item that could not be classified, the item is
// skipped and the warning is kept in the tree
var ErrClassification = errors.New("classification warning")

const (
	AggMin   = "min"
	AggMax   = "max"
	AggAvg   = "avg"
	AggSum   = "sum"
	AggCount = "count"
)

// IsAggregate checks whether the function name is one of the aggregates the
// engine knows how to evaluate
func IsAggregate(name string) bool {
	switch strings.ToLower(name) {
	case AggMin, AggMax, AggAvg, AggSum, AggCount:
		return true
	default:
		return false
	}
}

type ColumnRef struct {
	ColumnName   string
	TableOrAlias string // empty when unqualified
	Alias        string
}

func (self ColumnRef) IsStar() bool { return self.ColumnName == "*" }

// Qualified returns the dotted name, ie c.c_name
func (self ColumnRef) Qualified() string {
	if self.TableOrAlias == "" {
		return self.ColumnName
	}
	return self.TableOrAlias + "." + self.ColumnName
}

type AggregateRef struct {
	Function     string // lower case
	ColumnName   string // empty means no argument, ie count(*)
	TableOrAlias string
	Alias        string
	Call         string // call text when the function is not a plain aggregate
}

// HeaderName is the output column name of the aggregate, ie sum_l_quantity
func (self AggregateRef) HeaderName() string {
	if self.Alias != "" {
		return self.Alias
	}
	if self.ColumnName == "" {
		return self.Function
	}
	return self.Function + "_" + self.ColumnName
}

func (self AggregateRef) Column() ColumnRef {
	return ColumnRef{
		ColumnName:   self.ColumnName,
		TableOrAlias: self.TableOrAlias,
	}
}

// Projected is one slot of the select list, it points either into Select or
// into SelectAggregates
type Projected struct {
	Aggregate bool
	Index     int
}

type TableDef struct {
	Schema string
	Name   string
	Alias  string
}

// Key is the logical name of the table used everywhere else in the tree
func (self TableDef) Key() string {
	if self.Alias != "" {
		return self.Alias
	}
	return self.Name
}

type JoinPredicate struct {
	LeftIdentifier  string
	RightIdentifier string
	JoinType        string // always inner, ie empty
}

func (self JoinPredicate) Left() ColumnRef  { return ParseColumn(self.LeftIdentifier) }
func (self JoinPredicate) Right() ColumnRef { return ParseColumn(self.RightIdentifier) }

const (
	OpEq = "="
	OpNe = "!="
	OpGt = ">"
	OpGe = ">="
	OpLt = "<"
	OpLe = "<="

	// pattern match, the value is a LIKE pattern
	OpLike    = "like"
	OpNotLike = "not like"
)

type Filter struct {
	Identifier string
	Operator   string
	Value      string // quote stripped
	Quoted     bool   // value was a string literal
}

func (self Filter) Column() ColumnRef { return ParseColumn(self.Identifier) }

// ValueText renders the value back as a literal
func (self Filter) ValueText() string {
	if self.Quoted {
		return "'" + strings.ReplaceAll(self.Value, "'", "''") + "'"
	}
	return self.Value
}

type OrderItem struct {
	ColumnName   string
	TableOrAlias string
	Function     string // empty for a plain column
	Descending   bool
}

// HeaderName is the output column this item sorts on
func (self OrderItem) HeaderName() string {
	if self.Function == "" {
		return self.ColumnName
	}
	if self.ColumnName == "" {
		return self.Function
	}
	return self.Function + "_" + self.ColumnName
}

// QueryTree is the decomposed form of one statement. It is built once and
// never modified afterwards, any number of executions may share it.
type QueryTree struct {
	Source           string
	Distinct         bool
	Select           []ColumnRef
	SelectAggregates []AggregateRef
	Projection       []Projected
	Tables           []TableDef
	Joins            []JoinPredicate
	Filters          []Filter
	Subqueries       []string // comparison against a sub-select, verbatim
	Residual         []string // conjunct that is not a single comparison, verbatim
	Grouping         []ColumnRef
	Ordering         []OrderItem
	Having           []string
	Warnings         []error
}

// ParseColumn splits a dotted identifier, the last component is the column
// and the one before it is the owning table or alias
func ParseColumn(identifier string) ColumnRef {
	parts := strings.Split(strings.TrimSpace(identifier), ".")
	ref := ColumnRef{ColumnName: parts[len(parts)-1]}
	if len(parts) >= 2 {
		ref.TableOrAlias = parts[len(parts)-2]
	}
	return ref
}

// err prefixes the stage, %w in the format wraps as usual
func err(stage string, f string, args ...interface{}) error {
	return fmt.Errorf("stage(%s): "+f, append([]interface{}{stage}, args...)...)
}

func warn(stage string, f string, args ...interface{}) error {
	msg := fmt.Sprintf(f, args...)
	return err(stage, "%w: %s", ErrClassification, msg)
}
