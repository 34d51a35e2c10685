package training_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/training"
)

func TestPercentile(t *testing.T) {
	scenarios := []struct {
		name     string
		values   []float64
		q        float64
		expected float64
	}{
		{"single value", []float64{4}, 50, 4},
		{"median of even sample", []float64{4, 1, 3, 2}, 50, 2.5},
		{"10th percentile interpolates", []float64{1, 2, 3, 4, 5}, 10, 1.4},
		{"90th percentile interpolates", []float64{1, 2, 3, 4, 5}, 90, 4.6},
		{"bounds", []float64{3, 9}, 100, 9},
		{"zero", []float64{3, 9}, 0, 3},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			value, err := training.Percentile(scenario.values, scenario.q)
			require.NoError(t, err)
			assert.InDelta(t, scenario.expected, value, 1e-12)
		})
	}

	_, err := training.Percentile(nil, 50)
	require.Error(t, err)

	_, err = training.Percentile([]float64{1}, 101)
	require.Error(t, err)
}

func TestPercentileLeavesInputUnsorted(t *testing.T) {
	values := []float64{3, 1, 2}

	_, err := training.Percentile(values, 50)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestErrorMetrics(t *testing.T) {
	metrics, err := training.ErrorMetrics([]float64{1, 2, 3}, []float64{1, 4, 0})
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{
		"AE-at-10th-percentile": 0.4,
		"AE-at-50th-percentile": 2,
		"AE-at-90th-percentile": 2.8,
	}, roundAll(metrics))

	_, err = training.ErrorMetrics([]float64{1}, []float64{1, 2})
	require.Error(t, err)
}

func roundAll(metrics map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(metrics))
	for k, v := range metrics {
		out[k] = float64(int64(v*1e9+0.5)) / 1e9
	}

	return out
}
