// Package pipeline assembles the SageMaker pipeline definition wiring the
// data preparation step into the training step.
package pipeline

import (
	"encoding/json"
	"fmt"
)

const (
	DefinitionVersion = "2020-12-01"

	StepTypeProcessing = "Processing"
	StepTypeTraining   = "Training"

	ParameterTypeString = "String"
)

// Ref is a property reference resolved by the orchestrator at execution time.
type Ref struct {
	Get string `json:"Get"`
}

func ParameterRef(name string) Ref {
	return Ref{Get: "Parameters." + name}
}

// ProcessingOutputRef points at the S3 location of a processing step output.
func ProcessingOutputRef(step, output string) Ref {
	return Ref{Get: fmt.Sprintf("Steps.%s.ProcessingOutputConfig.Outputs['%s'].S3Output.S3Uri", step, output)}
}

// Definition is the pipeline definition document.
type Definition struct {
	Version    string            `json:"Version"`
	Metadata   map[string]string `json:"Metadata"`
	Parameters []Parameter       `json:"Parameters"`
	Steps      []Step            `json:"Steps"`
}

type Parameter struct {
	Name         string `json:"Name"`
	Type         string `json:"Type"`
	DefaultValue string `json:"DefaultValue,omitempty"`
}

type Step struct {
	Name        string `json:"Name"`
	Type        string `json:"Type"`
	DisplayName string `json:"DisplayName,omitempty"`
	// Arguments is a *ProcessingArguments or a *TrainingArguments.
	Arguments any `json:"Arguments"`
}

type ProcessingArguments struct {
	ProcessingResources    ProcessingResources    `json:"ProcessingResources"`
	AppSpecification       AppSpecification       `json:"AppSpecification"`
	RoleArn                string                 `json:"RoleArn"`
	ProcessingOutputConfig ProcessingOutputConfig `json:"ProcessingOutputConfig"`
}

type ProcessingResources struct {
	ClusterConfig ClusterConfig `json:"ClusterConfig"`
}

type ClusterConfig struct {
	InstanceType   string `json:"InstanceType"`
	InstanceCount  int    `json:"InstanceCount"`
	VolumeSizeInGB int    `json:"VolumeSizeInGB"`
}

type AppSpecification struct {
	ImageURI            string   `json:"ImageUri"`
	ContainerEntrypoint []string `json:"ContainerEntrypoint"`
	ContainerArguments  []string `json:"ContainerArguments,omitempty"`
}

type ProcessingOutputConfig struct {
	Outputs []ProcessingOutput `json:"Outputs"`
}

type ProcessingOutput struct {
	OutputName string   `json:"OutputName"`
	AppManaged bool     `json:"AppManaged"`
	S3Output   S3Output `json:"S3Output"`
}

type S3Output struct {
	S3URI        string `json:"S3Uri"`
	LocalPath    string `json:"LocalPath"`
	S3UploadMode string `json:"S3UploadMode"`
}

type TrainingArguments struct {
	AlgorithmSpecification AlgorithmSpecification `json:"AlgorithmSpecification"`
	OutputDataConfig       OutputDataConfig       `json:"OutputDataConfig"`
	StoppingCondition      StoppingCondition      `json:"StoppingCondition"`
	ResourceConfig         ClusterConfig          `json:"ResourceConfig"`
	RoleArn                string                 `json:"RoleArn"`
	InputDataConfig        []Channel              `json:"InputDataConfig"`
	// HyperParameters values are strings or Refs.
	HyperParameters map[string]any `json:"HyperParameters"`
	ProfilerConfig  ProfilerConfig `json:"ProfilerConfig"`
}

type AlgorithmSpecification struct {
	TrainingImage     string             `json:"TrainingImage"`
	TrainingInputMode string             `json:"TrainingInputMode"`
	MetricDefinitions []MetricDefinition `json:"MetricDefinitions,omitempty"`
}

type MetricDefinition struct {
	Name  string `json:"Name"`
	Regex string `json:"Regex"`
}

type OutputDataConfig struct {
	S3OutputPath string `json:"S3OutputPath"`
}

type StoppingCondition struct {
	MaxRuntimeInSeconds int `json:"MaxRuntimeInSeconds"`
}

type Channel struct {
	ChannelName string     `json:"ChannelName"`
	DataSource  DataSource `json:"DataSource"`
	ContentType string     `json:"ContentType,omitempty"`
}

type DataSource struct {
	S3DataSource S3DataSource `json:"S3DataSource"`
}

type S3DataSource struct {
	S3DataType string `json:"S3DataType"`
	// S3URI is a string or a Ref.
	S3URI                  any    `json:"S3Uri"`
	S3DataDistributionType string `json:"S3DataDistributionType"`
}

type ProfilerConfig struct {
	DisableProfiler bool `json:"DisableProfiler"`
}

// JSON renders the definition the way the SageMaker API expects it.
func (d *Definition) JSON() (string, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("failed to encode pipeline definition: %w", err)
	}

	return string(raw), nil
}

func (d *Definition) Step(name string) (*Step, bool) {
	for i := range d.Steps {
		if d.Steps[i].Name == name {
			return &d.Steps[i], true
		}
	}

	return nil, false
}
