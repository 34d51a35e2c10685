package pipeline_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/pipeline"
)

const helperEnv = "PIPELINE_TEST_HELPER"

// TestMain lets the test binary stand in for the mlpipeline executable.
func TestMain(m *testing.M) {
	if os.Getenv(helperEnv) == "1" {
		if err := fakeCommand(os.Args[1:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		os.Exit(0)
	}

	os.Exit(m.Run())
}

func flagValue(args []string, name string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == name {
			return args[i+1]
		}
	}

	return ""
}

func fakeCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no command")
	}

	switch args[0] {
	case pipeline.PrepareDataCommand:
		return os.WriteFile(filepath.Join(flagValue(args, "--output"), "train.csv"), []byte("x0,target\n1,2\n"), 0o644)
	case pipeline.TrainCommand:
		if os.Getenv("FAIL_TRAINING") == "1" {
			return fmt.Errorf("training failed")
		}

		if _, err := os.Stat(filepath.Join(os.Getenv("SM_CHANNEL_TRAIN"), "train.csv")); err != nil {
			return err
		}

		raw, err := json.Marshal(args[1:])
		if err != nil {
			return err
		}

		return os.WriteFile(filepath.Join(os.Getenv("SM_MODEL_DIR"), "args.json"), raw, 0o644)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func newRunner(t *testing.T, env ...string) *pipeline.LocalRunner {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return &pipeline.LocalRunner{
		Executable: os.Args[0],
		WorkDir:    t.TempDir(),
		Env:        append([]string{helperEnv + "=1"}, env...),
		Logger:     logger,
	}
}

func TestLocalRunner(t *testing.T) {
	definition, err := pipeline.Build(pipeline.DefaultSpec())
	require.NoError(t, err)

	runner := newRunner(t)

	run, err := runner.Run(context.Background(), definition, map[string]string{
		pipeline.ParamTrackingURI: "http://127.0.0.1:5000",
	})
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:5000", run.Parameters[pipeline.ParamTrackingURI])
	assert.Equal(t, "rf-sklearn", run.Parameters[pipeline.ParamExperimentName])

	output := run.Outputs[pipeline.ProcessingOutputRef(pipeline.StepPrepareData, pipeline.PreprocessedOutput).Get]
	assert.Equal(t, filepath.Join(runner.WorkDir, pipeline.StepPrepareData, pipeline.PreprocessedOutput), output)
	assert.FileExists(t, filepath.Join(output, "train.csv"))

	raw, err := os.ReadFile(filepath.Join(runner.WorkDir, pipeline.StepTrain, "output", "args.json"))
	require.NoError(t, err)

	var args []string
	require.NoError(t, json.Unmarshal(raw, &args))

	assert.Equal(t, "http://127.0.0.1:5000", flagValue(args, "--tracking_uri"))
	assert.Equal(t, "rf-sklearn", flagValue(args, "--experiment_name"))
	assert.Equal(t, "sklearn-random-forest", flagValue(args, "--registered_model_name"))
	assert.Equal(t, "100", flagValue(args, "--n-estimators"))
	assert.NotEmpty(t, flagValue(args, "--hyperparameters-file"))
}

func TestLocalRunnerFailures(t *testing.T) {
	definition, err := pipeline.Build(pipeline.DefaultSpec())
	require.NoError(t, err)

	t.Run("unknown parameter", func(t *testing.T) {
		_, err := newRunner(t).Run(context.Background(), definition, map[string]string{"Nope": "x"})
		require.ErrorContains(t, err, "unknown pipeline parameter")
	})

	t.Run("failing step", func(t *testing.T) {
		_, err := newRunner(t, "FAIL_TRAINING=1").Run(context.Background(), definition, nil)
		require.ErrorContains(t, err, "step TrainEvaluateRegister failed")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newRunner(t).Run(ctx, definition, nil)
		require.Error(t, err)
	})
}
