package training

import (
	"fmt"
	"math"
	"sort"
)

// Percentiles reported for the absolute error.
var Percentiles = []int{10, 50, 90}

func MetricName(q int) string {
	return fmt.Sprintf("AE-at-%dth-percentile", q)
}

// AbsoluteErrors returns |predicted - actual| element-wise.
func AbsoluteErrors(predicted, actual []float64) ([]float64, error) {
	if len(predicted) != len(actual) {
		return nil, fmt.Errorf("%d predictions for %d targets", len(predicted), len(actual))
	}

	out := make([]float64, len(actual))
	for i := range actual {
		out[i] = math.Abs(predicted[i] - actual[i])
	}

	return out, nil
}

// Percentile interpolates linearly between the closest ranks, the default
// method of numpy.percentile.
func Percentile(values []float64, q float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("percentile of an empty sample")
	}

	if q < 0 || q > 100 {
		return 0, fmt.Errorf("percentile %v outside [0, 100]", q)
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	rank := q / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))

	return sorted[lower] + (sorted[upper]-sorted[lower])*(rank-float64(lower)), nil
}

// ErrorMetrics computes the AE percentile metrics keyed by metric name.
func ErrorMetrics(predicted, actual []float64) (map[string]float64, error) {
	absErr, err := AbsoluteErrors(predicted, actual)
	if err != nil {
		return nil, err
	}

	metrics := make(map[string]float64, len(Percentiles))

	for _, q := range Percentiles {
		value, err := Percentile(absErr, float64(q))
		if err != nil {
			return nil, err
		}

		metrics[MetricName(q)] = value
	}

	return metrics, nil
}
