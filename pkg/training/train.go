package training

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/dataset"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/forest"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/tracking"
)

// Result describes what a training run recorded.
type Result struct {
	RunID        string
	Metrics      map[string]float64
	ModelVersion *contract.ModelVersion
}

type partitions struct {
	xTrain [][]float64
	yTrain []float64
	xTest  [][]float64
	yTest  []float64
}

func loadPartition(path string, features []string, target string) ([][]float64, []float64, error) {
	frame, err := dataset.ReadCSV(path)
	if err != nil {
		return nil, nil, err
	}

	x, err := frame.Select(features)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	y, err := frame.Vector(target)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	return x, y, nil
}

func readPartitions(args Args, logger *logrus.Logger) (*partitions, error) {
	features := args.FeatureList()
	trainPath := filepath.Join(args.Input, args.TrainFile)

	testPath := filepath.Join(args.Input, args.TestFile)
	if args.EvaluateOn == EvaluateOnTrain {
		logger.Warnf("Evaluating on the training partition %s; pass --evaluate-on=test to use %s", trainPath, testPath)
		testPath = trainPath
	}

	logger.Info("READING DATA")

	var (
		p   partitions
		err error
	)

	if p.xTrain, p.yTrain, err = loadPartition(trainPath, features, args.Target); err != nil {
		return nil, err
	}

	if p.xTest, p.yTest, err = loadPartition(testPath, features, args.Target); err != nil {
		return nil, err
	}

	return &p, nil
}

// Train fits, evaluates and registers one model inside a single tracked run.
// The run ends FINISHED when every step succeeds and FAILED otherwise.
func Train(ctx context.Context, args Args, logger *logrus.Logger) (*Result, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	data, err := readPartitions(args, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	client, err := tracking.NewClient(args.TrackingURI, tracking.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	logger.Info("SET EXPERIMENT IN REMOTE MLFLOW SERVER")

	experiment, err := client.SetExperiment(ctx, args.ExperimentName)
	if err != nil {
		return nil, fmt.Errorf("failed to set experiment %q: %w", args.ExperimentName, err)
	}

	result := &Result{}

	err = client.WithRun(ctx, experiment.ExperimentID, args.RunName, func(ctx context.Context, run *tracking.ActiveRun) error {
		result.RunID = run.ID()

		params := map[string]string{
			"n-estimators":     fmt.Sprint(args.NEstimators),
			"min-samples-leaf": fmt.Sprint(args.MinSamplesLeaf),
			"features":         args.Features,
		}
		if err := run.LogParams(ctx, params); err != nil {
			return err
		}

		logger.Info("TRAINING MODEL")

		model, err := forest.Fit(ctx, args.FeatureList(), data.xTrain, data.yTrain, forest.Params{
			NEstimators:    args.NEstimators,
			MinSamplesLeaf: args.MinSamplesLeaf,
			Bootstrap:      true,
			Seed:           args.Seed,
		})
		if err != nil {
			return err
		}

		logger.Info("EVALUATING MODEL")

		predicted, err := model.Predict(data.xTest)
		if err != nil {
			return err
		}

		if result.Metrics, err = ErrorMetrics(predicted, data.yTest); err != nil {
			return err
		}

		// SageMaker scrapes these lines with the median-AE metric regex.
		for _, q := range Percentiles {
			logger.Infof("%s: %v", MetricName(q), result.Metrics[MetricName(q)])
		}

		if err := run.LogMetrics(ctx, result.Metrics); err != nil {
			return err
		}

		logger.Info("REGISTERING MODEL")

		result.ModelVersion, err = logModel(ctx, client, run, model, args.RegisteredModelName)

		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func logModel(
	ctx context.Context, client *tracking.Client, run *tracking.ActiveRun, model *forest.Forest, name string,
) (*contract.ModelVersion, error) {
	scratch, err := os.MkdirTemp("", "model-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	if err := SaveModel(scratch, model, run.ID()); err != nil {
		return nil, err
	}

	if err := run.LogArtifacts(ctx, scratch, ModelArtifactPath); err != nil {
		return nil, err
	}

	return client.RegisterModel(ctx, name, run.ArtifactURI(ModelArtifactPath), run.ID())
}
