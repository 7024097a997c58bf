package sampling

import (
	"fmt"
	"strconv"
)

// ValueKind discriminates the two sampled outcome shapes.
type ValueKind string

// Sampled outcome kinds.
const (
	// ValueLabel is a categorical outcome identified by its label.
	ValueLabel ValueKind = "label"
	// ValueNumber is a numeric outcome from a range or uniform distribution.
	ValueNumber ValueKind = "number"
)

// Value is one sampled outcome: a categorical label or a numeric quantity.
type Value struct {
	Kind   ValueKind
	Label  string
	Number float64
}

// LabelValue wraps a categorical label as a Value.
func LabelValue(label string) Value {
	return Value{Kind: ValueLabel, Label: label}
}

// NumberValue wraps a numeric quantity as a Value.
func NumberValue(n float64) Value {
	return Value{Kind: ValueNumber, Number: n}
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	if v.Kind == ValueLabel {
		return v.Label == other.Label
	}
	return v.Number == other.Number
}

// String renders the value for diagnostics and export.
func (v Value) String() string {
	switch v.Kind {
	case ValueLabel:
		return v.Label
	case ValueNumber:
		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	default:
		return fmt.Sprintf("unknown(%s)", string(v.Kind))
	}
}

// Record maps variable names to their sampled values for one emitted entity.
type Record map[string]Value
