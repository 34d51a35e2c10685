package sagemaker

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/sagemaker"
	"github.com/samber/lo"
)

func isNotFound(err error) bool {
	var awsErr awserr.Error

	return errors.As(err, &awsErr) && awsErr.Code() == sagemaker.ErrCodeResourceNotFound
}

// UpsertPipeline creates the pipeline, or updates its definition when it
// already exists, and returns its ARN.
func (s *Session) UpsertPipeline(ctx context.Context, name, roleArn, definition, description string) (string, error) {
	_, err := s.clients.SageMaker.DescribePipelineWithContext(ctx, &sagemaker.DescribePipelineInput{
		PipelineName: aws.String(name),
	})

	switch {
	case err == nil:
		output, err := s.clients.SageMaker.UpdatePipelineWithContext(ctx, &sagemaker.UpdatePipelineInput{
			PipelineName:        aws.String(name),
			PipelineDefinition:  aws.String(definition),
			PipelineDescription: aws.String(description),
			RoleArn:             aws.String(roleArn),
		})
		if err != nil {
			return "", fmt.Errorf("failed to update pipeline %s: %w", name, err)
		}

		s.logger.Infof("Updated pipeline %s", name)

		return aws.StringValue(output.PipelineArn), nil
	case isNotFound(err):
		output, err := s.clients.SageMaker.CreatePipelineWithContext(ctx, &sagemaker.CreatePipelineInput{
			PipelineName:        aws.String(name),
			PipelineDefinition:  aws.String(definition),
			PipelineDescription: aws.String(description),
			RoleArn:             aws.String(roleArn),
		})
		if err != nil {
			return "", fmt.Errorf("failed to create pipeline %s: %w", name, err)
		}

		s.logger.Infof("Created pipeline %s", name)

		return aws.StringValue(output.PipelineArn), nil
	default:
		return "", fmt.Errorf("failed to describe pipeline %s: %w", name, err)
	}
}

// StartPipelineExecution starts the pipeline with the given parameter
// overrides and returns the execution ARN.
func (s *Session) StartPipelineExecution(ctx context.Context, name string, parameters map[string]string) (string, error) {
	keys := lo.Keys(parameters)
	sort.Strings(keys)

	output, err := s.clients.SageMaker.StartPipelineExecutionWithContext(ctx, &sagemaker.StartPipelineExecutionInput{
		PipelineName: aws.String(name),
		PipelineParameters: lo.Map(keys, func(k string, _ int) *sagemaker.Parameter {
			return &sagemaker.Parameter{Name: aws.String(k), Value: aws.String(parameters[k])}
		}),
	})
	if err != nil {
		return "", fmt.Errorf("failed to start pipeline %s: %w", name, err)
	}

	arn := aws.StringValue(output.PipelineExecutionArn)
	s.logger.Infof("Started execution %s", arn)

	return arn, nil
}
