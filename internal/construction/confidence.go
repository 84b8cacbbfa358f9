package construction

import "math"

// ConfidenceKind tags how a confidence value was obtained. Keeping the
// source of certainty distinct from its magnitude lets composite results
// explain whether they rest on deterministic facts, derived estimates,
// bounded ranges, or nothing at all.
type ConfidenceKind string

const (
	ConfidenceDeterministic ConfidenceKind = "deterministic"
	ConfidenceDerived       ConfidenceKind = "derived"
	ConfidenceBounded       ConfidenceKind = "bounded"
	ConfidenceAbsent        ConfidenceKind = "absent"
)

// Confidence describes how certain a result is.
type Confidence struct {
	Kind ConfidenceKind

	// Deterministic
	Value  bool
	Reason string

	// Derived
	Derived float64
	Formula string
	Inputs  []Confidence

	// Bounded
	Low   float64
	High  float64
	Basis string
}

// Deterministic returns a confidence backed by a deterministic fact.
func Deterministic(value bool, reason string) Confidence {
	return Confidence{Kind: ConfidenceDeterministic, Value: value, Reason: reason}
}

// Derived returns a confidence computed from other confidences.
func Derived(value float64, formula string, inputs ...Confidence) Confidence {
	return Confidence{Kind: ConfidenceDerived, Derived: value, Formula: formula, Inputs: inputs}
}

// Bounded returns a confidence known only to lie within [low, high].
func Bounded(low, high float64, basis, formula string) Confidence {
	if low > high {
		low, high = high, low
	}
	return Confidence{Kind: ConfidenceBounded, Low: clamp01(low), High: clamp01(high), Basis: basis, Formula: formula}
}

// Absent returns the no-confidence-available marker.
func Absent(reason string) Confidence {
	return Confidence{Kind: ConfidenceAbsent, Reason: reason}
}

// NumericValue projects the confidence onto a scalar for aggregation:
// deterministic maps to 0 or 1, derived to its value, bounded to the
// interval midpoint, absent to NaN. Absent must be excluded from
// averages, never treated as zero.
func (c Confidence) NumericValue() float64 {
	switch c.Kind {
	case ConfidenceDeterministic:
		if c.Value {
			return 1
		}
		return 0
	case ConfidenceDerived:
		return c.Derived
	case ConfidenceBounded:
		return (c.Low + c.High) / 2
	default:
		return math.NaN()
	}
}

// aggregateMargin is the symmetric widening applied when collapsing
// several confidences into one bounded value.
const aggregateMargin = 0.05

// Aggregate combines confidences from a composite Construction's parts.
// It averages the numeric projections of the non-absent inputs and widens
// the mean into a bounded value with a small symmetric margin. If every
// input is absent, the aggregate is absent.
func Aggregate(inputs ...Confidence) Confidence {
	sum := 0.0
	n := 0
	for _, in := range inputs {
		v := in.NumericValue()
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return Absent("all inputs absent")
	}
	mean := sum / float64(n)
	return Bounded(mean-aggregateMargin, mean+aggregateMargin, "aggregate", "mean±margin")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
