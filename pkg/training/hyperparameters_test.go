package training_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alexflint/go-arg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/training"
)

func writeHyperparameters(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "hyperparameters.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestHyperparameterArgs(t *testing.T) {
	path := writeHyperparameters(t, `{
		"experiment_name": "\"rf-sklearn\"",
		"n-estimators": "100",
		"features": "\"x0 x1 x2\"",
		"sagemaker_program": "\"train.py\"",
		"target": "target"
	}`)

	flags, err := training.HyperparameterArgs(path)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"--experiment_name", "rf-sklearn",
		"--n-estimators", "100",
		"--features", "x0 x1 x2",
		"--target", "target",
	}, flags)
}

func TestHyperparameterArgsErrors(t *testing.T) {
	flags, err := training.HyperparameterArgs(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, flags)

	_, err = training.HyperparameterArgs(writeHyperparameters(t, `{"n-estimators":`))
	require.Error(t, err)

	_, err = training.HyperparameterArgs(writeHyperparameters(t, `["n-estimators"]`))
	require.Error(t, err)
}

func TestExplicitFlagsWinOverHyperparameters(t *testing.T) {
	path := writeHyperparameters(t, `{"n-estimators": "100", "min-samples-leaf": "5", "target": "\"price\""}`)

	argv, err := training.WithHyperparameters([]string{"--hyperparameters-file", path, "--n-estimators", "7"})
	require.NoError(t, err)

	var args training.Args

	parser, err := arg.NewParser(arg.Config{}, &args)
	require.NoError(t, err)
	require.NoError(t, parser.Parse(argv))

	assert.Equal(t, 7, args.NEstimators)
	assert.Equal(t, 5, args.MinSamplesLeaf)
	assert.Equal(t, "price", args.Target)
	assert.Equal(t, path, args.HyperparametersFile)
}
