package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestExpandTrainArgs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hyperparameters.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"n-estimators": "\"50\""}`), 0o644))

	scenarios := []struct {
		name     string
		argv     []string
		expected []string
	}{
		{
			name:     "train",
			argv:     []string{"--log-level", "DEBUG", "train", "--hyperparameters-file", path},
			expected: []string{"--log-level", "DEBUG", "train", "--n-estimators", "50", "--hyperparameters-file", path},
		},
		{
			name:     "other subcommand",
			argv:     []string{"prepare-data", "--output", "train", "--hyperparameters-file", path},
			expected: []string{"prepare-data", "--output", "train", "--hyperparameters-file", path},
		},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			expanded, err := expandTrainArgs(scenario.argv)
			require.NoError(t, err)
			assert.Equal(t, scenario.expected, expanded)
		})
	}
}

func TestParse(t *testing.T) {
	t.Setenv("LOGLEVEL", "")
	t.Setenv("MLFLOW_TRACKING_URI", "")

	hyperparameters := filepath.Join(t.TempDir(), "missing.json")

	t.Run("train flags win", func(t *testing.T) {
		_, parsed, err := parse([]string{
			"train", "--hyperparameters-file", hyperparameters, "--n-estimators", "7", "--features", "x0 x1",
		})
		require.NoError(t, err)
		require.NotNil(t, parsed.Train)
		assert.Equal(t, 7, parsed.Train.NEstimators)
		assert.Equal(t, 3, parsed.Train.MinSamplesLeaf)
	})

	t.Run("deploy", func(t *testing.T) {
		_, parsed, err := parse([]string{
			"--log-level", "WARNING", "deploy",
			"--model-execution-role", "role", "--sagemaker-project-id", "p-1", "--sagemaker-project-name", "forest",
			"--tracking-uri", "http://mlflow:5000", "--model-name", "forest", "--model-version", "3",
			"--container-image-uri", "image", "--initial-instance-count", "1", "--instance-type", "ml.m5.large",
			"--region", "eu-west-1",
		})
		require.NoError(t, err)
		require.NotNil(t, parsed.Deploy)
		assert.Equal(t, "WARNING", parsed.LogLevel)
		assert.Equal(t, "3", parsed.Deploy.ModelVersion)
		assert.Equal(t, "Staging", parsed.Deploy.Stage)
		assert.Equal(t, "staging-config.json", parsed.Deploy.ImportStagingConfig)
		assert.Equal(t, "eu-west-1", parsed.Deploy.Region)
	})

	t.Run("pipeline parameters", func(t *testing.T) {
		_, parsed, err := parse([]string{"pipeline", "--parameter", "ExperimentName=demo", "--local"})
		require.NoError(t, err)
		require.NotNil(t, parsed.Pipeline)
		assert.True(t, parsed.Pipeline.Local)
		assert.Equal(t, map[string]string{"ExperimentName": "demo"}, parsed.Pipeline.Parameters)
	})

	t.Run("deploy requires the model version", func(t *testing.T) {
		_, _, err := parse([]string{"deploy", "--model-name", "forest"})
		require.Error(t, err)
	})

	t.Run("help", func(t *testing.T) {
		_, _, err := parse([]string{"--help"})
		assert.ErrorIs(t, err, arg.ErrHelp)
	})
}

func TestRunPipelineWritesDefinition(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	output := filepath.Join(t.TempDir(), "definition.json")
	require.NoError(t, runPipeline(context.Background(), &pipelineArgs{Output: output}, logger))

	raw, err := os.ReadFile(output)
	require.NoError(t, err)
	require.True(t, gjson.ValidBytes(raw))

	document := gjson.ParseBytes(raw)
	assert.Equal(t, "2020-12-01", document.Get("Version").String())
	assert.Len(t, document.Get("Steps").Array(), 2)
}

func TestWriteDefinitionFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "definition.json")

	err := writeDefinition(path, `{"Version":"2020-12-01"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write pipeline definition")
}
