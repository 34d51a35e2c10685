package pipeline

import (
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/samber/lo"
)

const (
	PrepareDataCommand = "prepare-data"
	TrainCommand       = "train"

	MedianAEMetric = "median-AE"
	MedianAERegex  = "AE-at-50th-percentile: ([0-9.]+).*$"

	volumeSizeInGB    = 30
	maxRuntimeSeconds = 86400
	entrypoint        = "mlpipeline"
)

// JobName derives the job name of a step from the base job prefix.
func JobName(prefix, step string) string {
	return strings.TrimRight(prefix, "/") + "/" + strcase.ToKebab(step)
}

func trainingHyperparameters(spec Spec) map[string]any {
	hp := lo.MapValues(spec.Hyperparameters, func(v string, _ string) any { return v })

	hp["tracking_uri"] = ParameterRef(ParamTrackingURI)
	hp["experiment_name"] = ParameterRef(ParamExperimentName)
	hp["registered_model_name"] = ParameterRef(ParamRegisteredModelName)

	return hp
}

func outputPath(bucket, prefix string) string {
	if bucket == "" {
		return ""
	}

	return fmt.Sprintf("s3://%s/%s", strings.TrimPrefix(strings.TrimRight(bucket, "/"), "s3://"), strings.Trim(prefix, "/"))
}

// Build assembles the two step definition. It does not execute anything.
func Build(spec Spec) (*Definition, error) {
	spec = spec.withDefaults()

	processing := Step{
		Name:        StepPrepareData,
		Type:        StepTypeProcessing,
		DisplayName: JobName(spec.BaseJobPrefix, StepPrepareData),
		Arguments: &ProcessingArguments{
			ProcessingResources: ProcessingResources{ClusterConfig: ClusterConfig{
				InstanceType:   spec.ProcessingInstanceType,
				InstanceCount:  spec.ProcessingInstanceCount,
				VolumeSizeInGB: volumeSizeInGB,
			}},
			AppSpecification: AppSpecification{
				ImageURI:            spec.Image,
				ContainerEntrypoint: []string{entrypoint, PrepareDataCommand},
				ContainerArguments:  []string{"--output", ProcessingOutputPath},
			},
			RoleArn: spec.Role,
			ProcessingOutputConfig: ProcessingOutputConfig{Outputs: []ProcessingOutput{{
				OutputName: PreprocessedOutput,
				S3Output: S3Output{
					S3URI:        outputPath(spec.Bucket, JobName(spec.BaseJobPrefix, StepPrepareData)),
					LocalPath:    ProcessingOutputPath,
					S3UploadMode: "EndOfJob",
				},
			}}},
		},
	}

	training := Step{
		Name:        StepTrain,
		Type:        StepTypeTraining,
		DisplayName: JobName(spec.BaseJobPrefix, StepTrain),
		Arguments: &TrainingArguments{
			AlgorithmSpecification: AlgorithmSpecification{
				TrainingImage:     spec.Image,
				TrainingInputMode: "File",
				MetricDefinitions: []MetricDefinition{{Name: MedianAEMetric, Regex: MedianAERegex}},
			},
			OutputDataConfig:  OutputDataConfig{S3OutputPath: outputPath(spec.Bucket, JobName(spec.BaseJobPrefix, StepTrain))},
			StoppingCondition: StoppingCondition{MaxRuntimeInSeconds: maxRuntimeSeconds},
			ResourceConfig: ClusterConfig{
				InstanceType:   spec.TrainingInstanceType,
				InstanceCount:  spec.TrainingInstanceCount,
				VolumeSizeInGB: volumeSizeInGB,
			},
			RoleArn: spec.Role,
			InputDataConfig: []Channel{{
				ChannelName: TrainChannel,
				DataSource: DataSource{S3DataSource: S3DataSource{
					S3DataType:             "S3Prefix",
					S3URI:                  ProcessingOutputRef(StepPrepareData, PreprocessedOutput),
					S3DataDistributionType: "FullyReplicated",
				}},
				ContentType: "text/csv",
			}},
			HyperParameters: trainingHyperparameters(spec),
			ProfilerConfig:  ProfilerConfig{DisableProfiler: true},
		},
	}

	definition := &Definition{
		Version:  DefinitionVersion,
		Metadata: map[string]string{},
		Parameters: lo.Map(spec.Parameters, func(p ParameterSpec, _ int) Parameter {
			return Parameter{Name: p.Name, Type: ParameterTypeString, DefaultValue: p.Default}
		}),
		Steps: []Step{processing, training},
	}

	if err := definition.Validate(); err != nil {
		return nil, err
	}

	return definition, nil
}
