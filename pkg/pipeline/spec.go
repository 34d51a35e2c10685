package pipeline

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/samber/lo"
	"github.com/zclconf/go-cty/cty"
)

const (
	ParamTrackingURI         = "MLflowTrackingURI"
	ParamExperimentName      = "ExperimentName"
	ParamRegisteredModelName = "RegisteredModelName"

	StepPrepareData = "PrepareData"
	StepTrain       = "TrainEvaluateRegister"

	PreprocessedOutput   = "preprocessed"
	ProcessingOutputPath = "/opt/ml/processing/output"
	TrainChannel         = "train"
)

// ParameterSpec declares a pipeline parameter and its default value.
type ParameterSpec struct {
	Name    string `hcl:"name,label"`
	Default string `hcl:"default,optional"`
}

// Spec holds everything that varies between deployments of the pipeline.
type Spec struct {
	Name                    string            `hcl:"name,optional"`
	Role                    string            `hcl:"role,optional"`
	Bucket                  string            `hcl:"bucket,optional"`
	BaseJobPrefix           string            `hcl:"base_job_prefix,optional"`
	Image                   string            `hcl:"image,optional"`
	ProcessingInstanceType  string            `hcl:"processing_instance_type,optional"`
	ProcessingInstanceCount int               `hcl:"processing_instance_count,optional"`
	TrainingInstanceType    string            `hcl:"training_instance_type,optional"`
	TrainingInstanceCount   int               `hcl:"training_instance_count,optional"`
	Parameters              []ParameterSpec   `hcl:"parameter,block"`
	Hyperparameters         map[string]string `hcl:"hyperparameters,optional"`
}

// DefaultSpec mirrors the values the pipeline was first published with.
func DefaultSpec() Spec {
	return Spec{
		Name:                    "mlflow-pipeline",
		BaseJobPrefix:           "mlflow",
		Image:                   "mlpipeline:latest",
		ProcessingInstanceType:  "ml.m5.xlarge",
		ProcessingInstanceCount: 1,
		TrainingInstanceType:    "ml.m5.xlarge",
		TrainingInstanceCount:   1,
		Parameters: []ParameterSpec{
			{Name: ParamTrackingURI, Default: "<ADD YOUR MLFLOW LOAD BALANCER URI HERE>"},
			{Name: ParamExperimentName, Default: "rf-sklearn"},
			{Name: ParamRegisteredModelName, Default: "sklearn-random-forest"},
		},
		Hyperparameters: map[string]string{
			"n-estimators":     "100",
			"min-samples-leaf": "3",
			"features":         "x0 x1 x2 x3 x4 x5 x6 x7 x8 x9",
			"target":           "target",
		},
	}
}

// withDefaults fills every unset field from DefaultSpec. Declared parameters
// override the default parameter of the same name; hyperparameters are merged.
func (s Spec) withDefaults() Spec {
	defaults := DefaultSpec()

	s.Name = lo.Ternary(s.Name == "", defaults.Name, s.Name)
	s.BaseJobPrefix = lo.Ternary(s.BaseJobPrefix == "", defaults.BaseJobPrefix, s.BaseJobPrefix)
	s.Image = lo.Ternary(s.Image == "", defaults.Image, s.Image)
	s.ProcessingInstanceType = lo.Ternary(s.ProcessingInstanceType == "", defaults.ProcessingInstanceType, s.ProcessingInstanceType)
	s.TrainingInstanceType = lo.Ternary(s.TrainingInstanceType == "", defaults.TrainingInstanceType, s.TrainingInstanceType)
	s.ProcessingInstanceCount = lo.Ternary(s.ProcessingInstanceCount == 0, defaults.ProcessingInstanceCount, s.ProcessingInstanceCount)
	s.TrainingInstanceCount = lo.Ternary(s.TrainingInstanceCount == 0, defaults.TrainingInstanceCount, s.TrainingInstanceCount)

	declared := lo.Associate(s.Parameters, func(p ParameterSpec) (string, ParameterSpec) { return p.Name, p })
	params := lo.Map(defaults.Parameters, func(p ParameterSpec, _ int) ParameterSpec {
		if override, ok := declared[p.Name]; ok {
			return override
		}

		return p
	})

	for _, p := range s.Parameters {
		if _, builtin := lo.Find(defaults.Parameters, func(d ParameterSpec) bool { return d.Name == p.Name }); !builtin {
			params = append(params, p)
		}
	}

	s.Parameters = params
	s.Hyperparameters = lo.Assign(defaults.Hyperparameters, s.Hyperparameters)

	return s
}

// envObject exposes the process environment to specs as env.NAME.
func envObject(environ []string) cty.Value {
	vars := map[string]cty.Value{}

	for _, kv := range environ {
		if key, value, ok := strings.Cut(kv, "="); ok && isEnvName(key) {
			vars[key] = cty.StringVal(value)
		}
	}

	if len(vars) == 0 {
		return cty.EmptyObjectVal
	}

	return cty.ObjectVal(vars)
}

func isEnvName(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '-'):
		default:
			return false
		}
	}

	return true
}

// ParseSpec decodes an HCL spec. The evaluation context carries the given
// environment as the env object.
func ParseSpec(src []byte, filename string, environ []string) (Spec, error) {
	parser := hclparse.NewParser()

	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return Spec{}, fmt.Errorf("failed to parse pipeline spec %s: %w", filename, diags)
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": envObject(environ)},
	}

	var spec Spec
	if diags := gohcl.DecodeBody(file.Body, evalCtx, &spec); diags.HasErrors() {
		return Spec{}, fmt.Errorf("failed to decode pipeline spec %s: %w", filename, diags)
	}

	return spec.withDefaults(), nil
}

// LoadSpec reads the spec at path, or returns the defaults when path is empty.
func LoadSpec(path string) (Spec, error) {
	if path == "" {
		return DefaultSpec(), nil
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, fmt.Errorf("failed to read pipeline spec: %w", err)
	}

	return ParseSpec(src, path, os.Environ())
}
