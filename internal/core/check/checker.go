package check

import (
	"context"

	"stream-quality/internal/core/batch"
)

// Check is a rule evaluated against one batch. Evaluate must not modify the
// batch. A data defect is reported as an Outcome with Passed=false; a non-nil
// error means the check itself could not run.
type Check interface {
	Name() string
	Kind() Kind
	Description() string
	Evaluate(ctx context.Context, b *batch.Batch) (Outcome, error)
}

type Kind string

const (
	KindNull       Kind = "null_check"
	KindValueRange Kind = "value_range_check"
	KindUniqueness Kind = "uniqueness_check"
	KindSchema     Kind = "schema_check"
	KindAnomaly    Kind = "anomaly_check"
)

func Kinds() []Kind {
	return []Kind{KindNull, KindValueRange, KindUniqueness, KindSchema, KindAnomaly}
}

func ParseKind(raw string) (Kind, bool) {
	for _, k := range Kinds() {
		if string(k) == raw {
			return k, true
		}
	}
	return "", false
}

// Category is the check_type stored alongside persisted results.
func (k Kind) Category() string {
	switch k {
	case KindNull:
		return "completeness"
	case KindValueRange:
		return "validity"
	case KindUniqueness:
		return "uniqueness"
	case KindSchema:
		return "conformity"
	case KindAnomaly:
		return "anomaly"
	default:
		return "unknown"
	}
}
