// Package batch holds the column-oriented table that checks are evaluated against.
package batch

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrRaggedColumns   = errors.New("columns have different lengths")
	ErrDuplicateColumn = errors.New("duplicate column")
)

// Column is a named sequence of values. A value is nil (null), a Go numeric,
// a string or a bool. A float NaN is treated as null.
type Column struct {
	Name   string
	Values []any
}

// Batch is an ordered, immutable set of equal-length columns.
type Batch struct {
	cols  []Column
	index map[string]int
	rows  int
}

func New(cols ...Column) (*Batch, error) {
	b := &Batch{
		cols:  make([]Column, 0, len(cols)),
		index: make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if _, ok := b.index[c.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
		}
		if i == 0 {
			b.rows = len(c.Values)
		} else if len(c.Values) != b.rows {
			return nil, fmt.Errorf("%w: %q has %d values, want %d", ErrRaggedColumns, c.Name, len(c.Values), b.rows)
		}
		values := make([]any, len(c.Values))
		copy(values, c.Values)
		b.index[c.Name] = len(b.cols)
		b.cols = append(b.cols, Column{Name: c.Name, Values: values})
	}
	return b, nil
}

// Len returns the row count.
func (b *Batch) Len() int {
	return b.rows
}

func (b *Batch) Names() []string {
	out := make([]string, len(b.cols))
	for i, c := range b.cols {
		out[i] = c.Name
	}
	return out
}

// Column returns the named column. Callers must not modify Values.
func (b *Batch) Column(name string) (Column, bool) {
	i, ok := b.index[name]
	if !ok {
		return Column{}, false
	}
	return b.cols[i], true
}

func (b *Batch) Has(name string) bool {
	_, ok := b.index[name]
	return ok
}

// Missing returns the names not present in the batch, in the given order.
func (b *Batch) Missing(names []string) []string {
	var out []string
	for _, n := range names {
		if !b.Has(n) {
			out = append(out, n)
		}
	}
	return out
}

// Schema maps every column to its inferred type name.
func (b *Batch) Schema() map[string]string {
	out := make(map[string]string, len(b.cols))
	for _, c := range b.cols {
		out[c.Name] = DType(c.Values)
	}
	return out
}

func IsNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	default:
		return false
	}
}

// Float converts a Go numeric to float64. Strings and bools are not numeric.
func Float(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

func isInt(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}

// DType infers a dataframe-style type name for values: int64, float64, bool or object.
// Integers mixed with nulls widen to float64; bools mixed with nulls become object.
func DType(values []any) string {
	var nonNull int
	hasNull := false
	allInt, allNumeric, allBool := true, true, true
	for _, v := range values {
		if IsNull(v) {
			hasNull = true
			continue
		}
		nonNull++
		if _, ok := v.(bool); !ok {
			allBool = false
		}
		if !isInt(v) {
			allInt = false
		}
		if _, ok := Float(v); !ok {
			allNumeric = false
		}
	}
	switch {
	case nonNull == 0:
		return "object"
	case allBool && !hasNull:
		return "bool"
	case allInt && !hasNull:
		return "int64"
	case allNumeric:
		return "float64"
	default:
		return "object"
	}
}
