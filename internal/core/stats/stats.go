package stats

import (
	"math"
	"sort"
)

func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// PopulationStd is the standard deviation with n in the denominator.
func PopulationStd(values []float64) float64 {
	return std(values, 0)
}

// SampleStd is the standard deviation with n-1 in the denominator.
// It returns 0 for fewer than two values.
func SampleStd(values []float64) float64 {
	return std(values, 1)
}

func std(values []float64, ddof int) float64 {
	n := len(values) - ddof
	if n <= 0 {
		return 0
	}
	mean := Mean(values)
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(n))
}

// Quantile returns the q-th quantile (0..1) using linear interpolation
// between the closest ranks. values need not be sorted.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
