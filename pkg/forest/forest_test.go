package forest_test

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/dataset"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/forest"
)

func TestFitStepFunction(t *testing.T) {
	x := [][]float64{{0}, {1}, {2}, {3}, {10}, {11}, {12}, {13}}
	y := []float64{1, 1, 1, 1, 5, 5, 5, 5}

	params := forest.Params{NEstimators: 1, MinSamplesLeaf: 1}
	model, err := forest.Fit(context.Background(), []string{"x"}, x, y, params)
	require.NoError(t, err)

	require.Len(t, model.Trees, 1)
	root := model.Trees[0].Nodes[0]
	assert.False(t, root.IsLeaf())
	assert.InDelta(t, 6.5, root.Threshold, 1e-9)

	predictions, err := model.Predict([][]float64{{-5}, {100}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 5}, predictions)
}

func TestMinSamplesLeafIsHonoured(t *testing.T) {
	frame := dataset.Friedman1(60, 0.5, 3)
	x, err := frame.Select(dataset.FeatureNames(10))
	require.NoError(t, err)
	y, err := frame.Vector(dataset.TargetColumn)
	require.NoError(t, err)

	params := forest.Params{NEstimators: 4, MinSamplesLeaf: 5, Bootstrap: true, Seed: 9}
	model, err := forest.Fit(context.Background(), dataset.FeatureNames(10), x, y, params)
	require.NoError(t, err)

	for _, tree := range model.Trees {
		for _, node := range tree.Nodes {
			if node.IsLeaf() {
				assert.GreaterOrEqual(t, node.Samples, 5)
			}
		}
	}
}

func TestFitIsDeterministic(t *testing.T) {
	frame := dataset.Friedman1(80, 1, 5)
	x, err := frame.Select(dataset.FeatureNames(10))
	require.NoError(t, err)
	y, err := frame.Vector(dataset.TargetColumn)
	require.NoError(t, err)

	params := forest.Params{NEstimators: 6, MinSamplesLeaf: 3, Bootstrap: true, Seed: 42}

	serial := params
	serial.Parallelism = 1

	a, err := forest.Fit(context.Background(), dataset.FeatureNames(10), x, y, params)
	require.NoError(t, err)
	b, err := forest.Fit(context.Background(), dataset.FeatureNames(10), x, y, serial)
	require.NoError(t, err)

	assert.Equal(t, a.Trees, b.Trees)
}

func TestForestLearnsSignal(t *testing.T) {
	frame := dataset.Reference()
	train, test, err := dataset.TrainTestSplit(frame, dataset.DefaultTestSize, dataset.DefaultSeed)
	require.NoError(t, err)

	features := dataset.FeatureNames(10)
	x, err := train.Select(features)
	require.NoError(t, err)
	y, err := train.Vector(dataset.TargetColumn)
	require.NoError(t, err)

	model, err := forest.Fit(context.Background(), features, x, y, forest.Params{
		NEstimators: 20, MinSamplesLeaf: 3, Bootstrap: true, Seed: 1,
	})
	require.NoError(t, err)

	testX, err := test.Select(features)
	require.NoError(t, err)
	testY, err := test.Vector(dataset.TargetColumn)
	require.NoError(t, err)

	predictions, err := model.Predict(testX)
	require.NoError(t, err)

	var mean, modelErr, baselineErr float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))

	for i := range testY {
		modelErr += math.Abs(predictions[i] - testY[i])
		baselineErr += math.Abs(mean - testY[i])
	}

	assert.Less(t, modelErr, baselineErr)
}

func TestFitValidation(t *testing.T) {
	scenarios := []struct {
		name   string
		x      [][]float64
		y      []float64
		params forest.Params
	}{
		{name: "empty", params: forest.Params{NEstimators: 1, MinSamplesLeaf: 1}},
		{name: "length mismatch", x: [][]float64{{1}}, y: []float64{1, 2}, params: forest.Params{NEstimators: 1, MinSamplesLeaf: 1}},
		{name: "no estimators", x: [][]float64{{1}}, y: []float64{1}, params: forest.Params{MinSamplesLeaf: 1}},
		{name: "no leaf size", x: [][]float64{{1}}, y: []float64{1}, params: forest.Params{NEstimators: 1}},
		{name: "ragged", x: [][]float64{{1}, {1, 2}}, y: []float64{1, 2}, params: forest.Params{NEstimators: 1, MinSamplesLeaf: 1}},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			_, err := forest.Fit(context.Background(), []string{"a"}, scenario.x, scenario.y, scenario.params)
			require.Error(t, err)
		})
	}
}

func TestFitHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := forest.Fit(ctx, []string{"x"}, [][]float64{{1}, {2}}, []float64{1, 2}, forest.Params{NEstimators: 3, MinSamplesLeaf: 1})
	require.ErrorIs(t, err, context.Canceled)
}

func TestSaveLoad(t *testing.T) {
	model, err := forest.Fit(context.Background(), []string{"x"}, [][]float64{{1}, {2}, {3}}, []float64{1, 2, 3},
		forest.Params{NEstimators: 2, MinSamplesLeaf: 1, Bootstrap: true, Seed: 3})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, model.Save(path))

	loaded, err := forest.Load(path)
	require.NoError(t, err)
	assert.Equal(t, model.Trees, loaded.Trees)
	assert.Equal(t, model.PredictRow([]float64{2.5}), loaded.PredictRow([]float64{2.5}))
}
