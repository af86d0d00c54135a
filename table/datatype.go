package table

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrTypeCoercion is returned when a value can not be read as the datatype of
// its column, the query is aborted
var ErrTypeCoercion = errors.New("type coercion error")

const (
	TypeNumber  = "NUMBER"
	TypeDate    = "DATE"
	TypeChar    = "CHAR"
	TypeBoolean = "BOOLEAN"
)

const DateLayout = "2006-01-02"

// NormalizeType maps a declared column type onto the small set of datatypes
// the engine knows about. A precision, ie CHAR(25) or NUMERIC(15, 2), is
// dropped before matching. Unknown types are kept upper cased and compared
// as plain text.
func NormalizeType(declared string) string {
	t := strings.ToUpper(strings.TrimSpace(declared))
	if idx := strings.IndexByte(t, '('); idx >= 0 {
		t = strings.TrimSpace(t[:idx])
	}

	switch t {
	case "DATE":
		return TypeDate
	case "INTEGER", "NUMERIC", "NUMBER", "DECIMAL", "FLOAT", "DOUBLE", "REAL",
		"INT", "BIGINT", "SMALLINT":
		return TypeNumber
	}
	if strings.Contains(t, "CHAR") {
		return TypeChar
	}
	return t
}

// Value is a field coerced to its column datatype
type Value struct {
	Type string
	Num  float64
	Date time.Time
	Str  string
}

func ParseDate(raw string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(raw))
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Coerce reads the raw field as the given datatype, NUMBER is read as a
// float and DATE as a YYYY-MM-DD calendar date, anything else stays text
func Coerce(datatype string, raw string) (Value, error) {
	switch datatype {
	case TypeNumber:
		v, e := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if e != nil {
			return Value{}, fmt.Errorf("%w: %q is not a number", ErrTypeCoercion, raw)
		}
		return Value{Type: datatype, Num: v}, nil

	case TypeDate:
		v, e := ParseDate(raw)
		if e != nil {
			return Value{}, fmt.Errorf("%w: %q is not a date", ErrTypeCoercion, raw)
		}
		return Value{Type: datatype, Date: v}, nil

	default:
		return Value{Type: datatype, Str: raw}, nil
	}
}

// Compare orders two values of the same datatype, -1, 0 or 1
func (self Value) Compare(that Value) int {
	switch self.Type {
	case TypeNumber:
		switch {
		case self.Num < that.Num:
			return -1
		case self.Num > that.Num:
			return 1
		default:
			return 0
		}

	case TypeDate:
		switch {
		case self.Date.Before(that.Date):
			return -1
		case self.Date.After(that.Date):
			return 1
		default:
			return 0
		}

	default:
		return strings.Compare(self.Str, that.Str)
	}
}

// Text renders the value in its canonical form, two equal values always have
// the same text, ie 1 and 1.0 are both 1
func (self Value) Text() string {
	switch self.Type {
	case TypeNumber:
		return strconv.FormatFloat(self.Num, 'f', -1, 64)
	case TypeDate:
		return FormatDate(self.Date)
	default:
		return self.Str
	}
}

// Match evaluates the comparison operator against a Compare result
func Match(op string, cmp int) (bool, error) {
	switch op {
	case "=":
		return cmp == 0, nil
	case "!=":
		return cmp != 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	default:
		return false, fmt.Errorf("unknown comparison operator %q", op)
	}
}
