package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/pipeline"
)

func TestReferences(t *testing.T) {
	definition, err := pipeline.Build(pipeline.DefaultSpec())
	require.NoError(t, err)

	train, ok := definition.Step(pipeline.StepTrain)
	require.True(t, ok)

	refs, err := train.References()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Parameters.ExperimentName",
		"Parameters.MLflowTrackingURI",
		"Parameters.RegisteredModelName",
		"Steps.PrepareData.ProcessingOutputConfig.Outputs['preprocessed'].S3Output.S3Uri",
	}, refs)
}

func TestValidate(t *testing.T) {
	scenarios := []struct {
		name   string
		mutate func(*pipeline.Definition)
		err    string
	}{
		{
			name:   "valid",
			mutate: func(*pipeline.Definition) {},
		},
		{
			name: "reversed steps",
			mutate: func(d *pipeline.Definition) {
				d.Steps[0], d.Steps[1] = d.Steps[1], d.Steps[0]
			},
			err: "not an earlier step",
		},
		{
			name: "self reference",
			mutate: func(d *pipeline.Definition) {
				d.Steps = d.Steps[1:]
				d.Steps[0].Name = pipeline.StepPrepareData
			},
			err: "not an earlier step",
		},
		{
			name: "undeclared parameter",
			mutate: func(d *pipeline.Definition) {
				d.Parameters = d.Parameters[1:]
			},
			err: "undeclared parameter MLflowTrackingURI",
		},
		{
			name: "duplicate parameter",
			mutate: func(d *pipeline.Definition) {
				d.Parameters = append(d.Parameters, d.Parameters[0])
			},
			err: "declared twice",
		},
		{
			name: "duplicate step",
			mutate: func(d *pipeline.Definition) {
				d.Steps[1].Name = d.Steps[0].Name
			},
			err: "declared twice",
		},
		{
			name: "unsupported reference",
			mutate: func(d *pipeline.Definition) {
				d.Steps[1].Arguments.(*pipeline.TrainingArguments).HyperParameters["x"] = pipeline.Ref{Get: "Execution.StartDateTime"}
			},
			err: "unsupported reference",
		},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			definition, err := pipeline.Build(pipeline.DefaultSpec())
			require.NoError(t, err)

			scenario.mutate(definition)

			err = definition.Validate()
			if scenario.err == "" {
				require.NoError(t, err)
			} else {
				require.ErrorContains(t, err, scenario.err)
			}
		})
	}
}
