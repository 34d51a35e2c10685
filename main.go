// Command mlpipeline prepares data, trains and registers models, assembles
// the SageMaker pipeline and promotes registered versions for deployment.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/config"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/dataset"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/training"
)

var version = "dev"

const trainCommand = "train"

type args struct {
	LogLevel string `arg:"--log-level,env:LOGLEVEL" default:"INFO" help:"log level"`

	PrepareData *dataset.Args  `arg:"subcommand:prepare-data" help:"write the train and test partitions"`
	Train       *training.Args `arg:"subcommand:train"        help:"train, evaluate and register the model"`
	Pipeline    *pipelineArgs  `arg:"subcommand:pipeline"     help:"build, upsert, start or run the pipeline locally"`
	Deploy      *deployArgs    `arg:"subcommand:deploy"       help:"package and promote a registered model version"`
	Reconcile   *reconcileArgs `arg:"subcommand:reconcile"    help:"leave at most one version per active stage"`
	Server      *config.Config `arg:"subcommand:server"       help:"run a local tracking and model registry server"`
}

func (args) Version() string {
	return "mlpipeline " + version
}

// expandTrainArgs prepends the SageMaker hyperparameters to the arguments of
// the train subcommand.
func expandTrainArgs(argv []string) ([]string, error) {
	for i := 0; i < len(argv); i++ {
		switch argv[i] {
		case "--log-level":
			i++

			continue
		case trainCommand:
			rest, err := training.WithHyperparameters(argv[i+1:])
			if err != nil {
				return nil, err
			}

			return append(append([]string{}, argv[:i+1]...), rest...), nil
		}

		if len(argv[i]) > 0 && argv[i][0] != '-' {
			break
		}
	}

	return argv, nil
}

func parse(argv []string) (*arg.Parser, *args, error) {
	var parsed args

	parser, err := arg.NewParser(arg.Config{Program: "mlpipeline"}, &parsed)
	if err != nil {
		return nil, nil, err
	}

	expanded, err := expandTrainArgs(argv)
	if err != nil {
		return parser, nil, err
	}

	if err := parser.Parse(expanded); err != nil {
		return parser, nil, err
	}

	return parser, &parsed, nil
}

func run(ctx context.Context, parsed *args, logger *logrus.Logger) error {
	switch {
	case parsed.PrepareData != nil:
		return dataset.Prepare(*parsed.PrepareData, logger)
	case parsed.Train != nil:
		_, err := training.Train(ctx, *parsed.Train, logger)

		return err
	case parsed.Pipeline != nil:
		return runPipeline(ctx, parsed.Pipeline, logger)
	case parsed.Deploy != nil:
		return runDeploy(ctx, parsed.Deploy, logger)
	case parsed.Reconcile != nil:
		return runReconcile(ctx, parsed.Reconcile, logger)
	case parsed.Server != nil:
		return runServer(ctx, parsed.Server, parsed.LogLevel, logger)
	default:
		return errors.New("missing subcommand")
	}
}

func main() {
	parser, parsed, err := parse(os.Args[1:])

	switch {
	case errors.Is(err, arg.ErrHelp):
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	case errors.Is(err, arg.ErrVersion):
		fmt.Println(args{}.Version())
		os.Exit(0)
	case err != nil && parser != nil:
		parser.Fail(err.Error())
	case err != nil:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if parser.Subcommand() == nil {
		parser.Fail("missing subcommand")
	}

	logger, err := config.NewLogger(parsed.LogLevel)
	if err != nil {
		parser.Fail(err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, parsed, logger); err != nil {
		logger.Error(err)
		stop()
		os.Exit(1)
	}
}
