package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/pipeline"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/sagemaker"
)

type pipelineArgs struct {
	sagemaker.Args

	Spec        string            `arg:"--spec,env:PIPELINE_SPEC"  help:"HCL pipeline spec, built-in defaults when empty"`
	Output      string            `arg:"--output"                  help:"file receiving the pipeline definition, stdout when empty"`
	Description string            `arg:"--description"             help:"pipeline description used on upsert"`
	Upsert      bool              `arg:"--upsert"                  help:"create or update the SageMaker pipeline"`
	Start       bool              `arg:"--start"                   help:"start an execution, implies --upsert"`
	Local       bool              `arg:"--local"                   help:"run the steps on this machine instead"`
	WorkDir     string            `arg:"--work-dir"                default:"pipeline-local" help:"output directory of a local run"`
	Parameters  map[string]string `arg:"--parameter"               help:"parameter overrides as name=value"`
}

// writeDefinition writes the definition document to path, or to stdout when
// path is empty.
func writeDefinition(path, definition string) error {
	if path == "" {
		_, err := fmt.Fprintln(os.Stdout, definition)

		return err
	}

	if err := os.WriteFile(path, []byte(definition), 0o644); err != nil {
		return fmt.Errorf("failed to write pipeline definition: %w", err)
	}

	return nil
}

func runPipeline(ctx context.Context, args *pipelineArgs, logger *logrus.Logger) error {
	spec, err := pipeline.LoadSpec(args.Spec)
	if err != nil {
		return err
	}

	definition, err := pipeline.Build(spec)
	if err != nil {
		return err
	}

	if args.Local {
		runner := &pipeline.LocalRunner{WorkDir: args.WorkDir, Logger: logger}

		run, err := runner.Run(ctx, definition, args.Parameters)
		if err != nil {
			return err
		}

		for ref, dir := range run.Outputs {
			logger.Infof("%s: %s", ref, dir)
		}

		return nil
	}

	document, err := definition.JSON()
	if err != nil {
		return err
	}

	if err := writeDefinition(args.Output, document); err != nil {
		return err
	}

	if !args.Upsert && !args.Start {
		return nil
	}

	session, err := sagemaker.NewSession(args.Args, logger)
	if err != nil {
		return err
	}

	arn, err := session.UpsertPipeline(ctx, spec.Name, spec.Role, document, args.Description)
	if err != nil {
		return err
	}

	logger.Infof("Pipeline %s: %s", spec.Name, arn)

	if !args.Start {
		return nil
	}

	executionArn, err := session.StartPipelineExecution(ctx, spec.Name, args.Parameters)
	if err != nil {
		return err
	}

	logger.Infof("Started pipeline execution %s", executionArn)

	return nil
}
