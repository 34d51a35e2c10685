package tracking_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/server/servertest"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/tracking"
)

func newClient(t *testing.T) *tracking.Client {
	t.Helper()

	client, err := tracking.NewClient(servertest.Start(t))
	require.NoError(t, err)

	return client
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		uri   string
		valid bool
	}{
		{"http://localhost:5000", true},
		{"https://mlflow.example.com/", true},
		{"file:///tmp/mlruns", false},
		{"localhost:5000", false},
		{"::", false},
	}

	for _, test := range tests {
		t.Run(test.uri, func(t *testing.T) {
			client, err := tracking.NewClient(test.uri)
			if test.valid {
				require.NoError(t, err)
				assert.False(t, strings.HasSuffix(client.TrackingURI(), "/"))
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestModelNameFilter(t *testing.T) {
	assert.Equal(t, "name='boston-rf'", tracking.ModelNameFilter("boston-rf"))
	assert.Equal(t, `name='it\'s'`, tracking.ModelNameFilter("it's"))
	assert.Equal(t, `name='a\\b'`, tracking.ModelNameFilter(`a\b`))

	ctx := context.Background()
	client := newClient(t)

	for _, name := range []string{"boston-rf", "it's", `a\b`, `c:\models\'rf'`} {
		t.Run(name, func(t *testing.T) {
			_, err := client.RegisterModel(ctx, name, "s3://bucket/model", "")
			require.NoError(t, err)

			versions, err := client.SearchModelVersions(ctx, tracking.ModelNameFilter(name))
			require.NoError(t, err)
			require.Len(t, versions, 1)
			assert.Equal(t, name, versions[0].Name)
		})
	}
}

func TestSetExperiment(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	created, err := client.SetExperiment(ctx, "boston-house")
	require.NoError(t, err)
	assert.Equal(t, "boston-house", created.Name)
	assert.NotEmpty(t, created.ArtifactLocation)

	again, err := client.SetExperiment(ctx, "boston-house")
	require.NoError(t, err)
	assert.Equal(t, created.ExperimentID, again.ExperimentID)
}

func TestWithRun(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	experiment, err := client.SetExperiment(ctx, "runs")
	require.NoError(t, err)

	t.Run("finished", func(t *testing.T) {
		var runID string

		err := client.WithRun(ctx, experiment.ExperimentID, "ok", func(ctx context.Context, run *tracking.ActiveRun) error {
			runID = run.ID()

			require.NoError(t, run.LogParams(ctx, map[string]string{"n-estimators": "10", "min-samples-leaf": "3"}))
			require.NoError(t, run.LogMetrics(ctx, map[string]float64{"testing r2": 0.5}))

			return run.SetTags(ctx, map[string]string{"team": "ml"})
		})
		require.NoError(t, err)

		run, err := client.GetRun(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, contract.RunStatusFinished, run.Info.Status)
		assert.NotZero(t, run.Info.EndTime)

		value, ok := run.Param("n-estimators")
		assert.True(t, ok)
		assert.Equal(t, "10", value)

		metric, ok := run.Metric("testing r2")
		assert.True(t, ok)
		assert.InDelta(t, 0.5, metric, 1e-9)
	})

	t.Run("single metric with step", func(t *testing.T) {
		var runID string

		err := client.WithRun(ctx, experiment.ExperimentID, "step", func(ctx context.Context, run *tracking.ActiveRun) error {
			runID = run.ID()

			return client.LogMetric(ctx, run.ID(), "loss", 0.25, 3)
		})
		require.NoError(t, err)

		run, err := client.GetRun(ctx, runID)
		require.NoError(t, err)

		metric, ok := run.Metric("loss")
		assert.True(t, ok)
		assert.InDelta(t, 0.25, metric, 1e-9)

		require.Len(t, run.Data.Metrics, 1)
		assert.Equal(t, int64(3), run.Data.Metrics[0].Step)
	})

	t.Run("error", func(t *testing.T) {
		var runID string

		boom := errors.New("boom")
		err := client.WithRun(ctx, experiment.ExperimentID, "err", func(_ context.Context, run *tracking.ActiveRun) error {
			runID = run.ID()

			return boom
		})
		require.ErrorIs(t, err, boom)

		run, err := client.GetRun(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, contract.RunStatusFailed, run.Info.Status)
	})

	t.Run("panic", func(t *testing.T) {
		var runID string

		assert.PanicsWithValue(t, "kaboom", func() {
			_ = client.WithRun(ctx, experiment.ExperimentID, "panic", func(_ context.Context, run *tracking.ActiveRun) error {
				runID = run.ID()

				panic("kaboom")
			})
		})

		run, err := client.GetRun(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, contract.RunStatusFailed, run.Info.Status)
	})
}

func TestArtifactsRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	experiment, err := client.SetExperiment(ctx, "artifacts")
	require.NoError(t, err)

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "MLmodel"), []byte("flavors: {}\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "data"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "data", "model.json"), []byte(`{"trees":[]}`), 0o644))

	var modelURI string

	err = client.WithRun(ctx, experiment.ExperimentID, "", func(ctx context.Context, run *tracking.ActiveRun) error {
		modelURI = fmt.Sprintf("runs:/%s/model", run.ID())

		return run.LogArtifacts(ctx, src, "model")
	})
	require.NoError(t, err)

	dst, err := client.DownloadArtifacts(ctx, modelURI, t.TempDir())
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dst, "data", "model.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"trees":[]}`, string(content))

	_, err = os.Stat(filepath.Join(dst, "MLmodel"))
	require.NoError(t, err)
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	experiment, err := client.SetExperiment(ctx, "registry")
	require.NoError(t, err)

	var runID string

	err = client.WithRun(ctx, experiment.ExperimentID, "", func(_ context.Context, run *tracking.ActiveRun) error {
		runID = run.ID()

		return nil
	})
	require.NoError(t, err)

	source := fmt.Sprintf("runs:/%s/model", runID)

	first, err := client.RegisterModel(ctx, "boston-rf", source, runID)
	require.NoError(t, err)
	assert.Equal(t, "1", first.Version)
	assert.Equal(t, contract.StageNone, first.CurrentStage)

	second, err := client.RegisterModel(ctx, "boston-rf", source, runID)
	require.NoError(t, err)
	assert.Equal(t, "2", second.Version)

	versions, err := client.SearchModelVersions(ctx, tracking.ModelNameFilter("boston-rf"))
	require.NoError(t, err)
	assert.Len(t, versions, 2)

	t.Run("resolve", func(t *testing.T) {
		run, err := client.GetRun(ctx, runID)
		require.NoError(t, err)

		resolved, err := client.ResolveArtifactURI(ctx, source)
		require.NoError(t, err)
		assert.Equal(t, run.Info.ArtifactURI+"/model", resolved)

		fromModel, err := client.ResolveArtifactURI(ctx, "models:/boston-rf/1")
		require.NoError(t, err)
		assert.Equal(t, resolved, fromModel)

		unchanged, err := client.ResolveArtifactURI(ctx, "s3://bucket/key")
		require.NoError(t, err)
		assert.Equal(t, "s3://bucket/key", unchanged)

		_, err = client.ResolveArtifactURI(ctx, "models:/boston-rf")
		require.Error(t, err)
	})

	t.Run("transition", func(t *testing.T) {
		promoted, err := client.TransitionModelVersionStage(ctx, "boston-rf", "1", "staging", false)
		require.NoError(t, err)
		assert.Equal(t, contract.StageStaging, promoted.CurrentStage)

		promoted, err = client.TransitionModelVersionStage(ctx, "boston-rf", "2", contract.StageStaging, true)
		require.NoError(t, err)
		assert.Equal(t, contract.StageStaging, promoted.CurrentStage)

		archived, err := client.GetModelVersion(ctx, "boston-rf", "1")
		require.NoError(t, err)
		assert.Equal(t, contract.StageArchived, archived.CurrentStage)

		_, err = client.TransitionModelVersionStage(ctx, "boston-rf", "2", "qa", false)
		require.Error(t, err)
		assert.True(t, contract.HasCode(err, contract.ErrorCodeInvalidParameterValue))
	})

	t.Run("missing", func(t *testing.T) {
		_, err := client.GetModelVersion(ctx, "boston-rf", "9")
		require.Error(t, err)
		assert.True(t, contract.HasCode(err, contract.ErrorCodeResourceDoesNotExist))
	})
}
