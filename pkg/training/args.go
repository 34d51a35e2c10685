// Package training fits the random forest regressor, evaluates it and records
// the run and the registered model version on an MLflow tracking server.
package training

import (
	"fmt"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/utils"
)

const (
	EvaluateOnTrain = "train"
	EvaluateOnTest  = "test"
)

// Args of the training step. Flag names follow the hyperparameter keys the
// pipeline passes to the training job.
type Args struct {
	TrackingURI         string `arg:"--tracking_uri,env:MLFLOW_TRACKING_URI"         help:"MLflow tracking server URI"`
	ExperimentName      string `arg:"--experiment_name"                              help:"experiment receiving the run"`
	RegisteredModelName string `arg:"--registered_model_name"                        help:"registered model receiving the new version"`
	NEstimators         int    `arg:"--n-estimators"            default:"10"         help:"number of trees"`
	MinSamplesLeaf      int    `arg:"--min-samples-leaf"        default:"3"          help:"minimum samples per leaf"`
	Features            string `arg:"--features"                                     help:"whitespace separated feature columns"`
	Target              string `arg:"--target"                                       help:"target column"`
	Input               string `arg:"--input,env:SM_CHANNEL_TRAIN"                   help:"directory holding the partitions"`
	TrainFile           string `arg:"--train-file"              default:"train.csv"  help:"training partition"`
	TestFile            string `arg:"--test-file"               default:"test.csv"   help:"test partition"`
	EvaluateOn          string `arg:"--evaluate-on"             default:"train"      help:"partition used for evaluation: train or test"`
	Seed                int64  `arg:"--seed"                    default:"0"          help:"forest seed"`
	RunName             string `arg:"--run-name"                                     help:"optional run name"`
	HyperparametersFile string `arg:"--hyperparameters-file"                         help:"SageMaker hyperparameters file"`
}

// FeatureList returns the configured feature columns.
func (a Args) FeatureList() []string {
	return utils.SplitFields(a.Features)
}

func (a Args) Validate() error {
	required := []struct {
		flag  string
		value string
	}{
		{"--tracking_uri", a.TrackingURI},
		{"--experiment_name", a.ExperimentName},
		{"--registered_model_name", a.RegisteredModelName},
		{"--target", a.Target},
		{"--input", a.Input},
	}

	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.flag)
		}
	}

	switch {
	case len(a.FeatureList()) == 0:
		return fmt.Errorf("--features names no column")
	case a.NEstimators < 1:
		return fmt.Errorf("--n-estimators must be positive, got %d", a.NEstimators)
	case a.MinSamplesLeaf < 1:
		return fmt.Errorf("--min-samples-leaf must be positive, got %d", a.MinSamplesLeaf)
	case a.EvaluateOn != EvaluateOnTrain && a.EvaluateOn != EvaluateOnTest:
		return fmt.Errorf("--evaluate-on must be %q or %q, got %q", EvaluateOnTrain, EvaluateOnTest, a.EvaluateOn)
	}

	return nil
}
