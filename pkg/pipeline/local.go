package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// LocalRunner executes a definition on this machine, running each step as a
// child process of Executable. Steps run one after the other in declaration
// order; S3 locations are replaced by directories under WorkDir.
type LocalRunner struct {
	Executable string
	WorkDir    string
	Env        []string
	Logger     *logrus.Logger
}

// LocalRun records where each step wrote its outputs, keyed by the property
// path other steps reference.
type LocalRun struct {
	Parameters map[string]string
	Outputs    map[string]string
}

func (r *LocalRun) resolve(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case Ref:
		if name, ok := strings.CutPrefix(v.Get, "Parameters."); ok {
			if resolved, ok := r.Parameters[name]; ok {
				return resolved, nil
			}

			return "", fmt.Errorf("parameter %s has no value", name)
		}

		if resolved, ok := r.Outputs[v.Get]; ok {
			return resolved, nil
		}

		return "", fmt.Errorf("reference %s is not available", v.Get)
	default:
		return "", fmt.Errorf("unsupported value %T", value)
	}
}

// Run executes every step and returns the resolved parameters and outputs.
// overrides replace parameter defaults.
func (r *LocalRunner) Run(ctx context.Context, definition *Definition, overrides map[string]string) (*LocalRun, error) {
	if err := definition.Validate(); err != nil {
		return nil, err
	}

	for name := range overrides {
		if _, ok := lo.Find(definition.Parameters, func(p Parameter) bool { return p.Name == name }); !ok {
			return nil, fmt.Errorf("unknown pipeline parameter %s", name)
		}
	}

	executable := r.Executable
	if executable == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to locate executable: %w", err)
		}

		executable = self
	}

	run := &LocalRun{
		Parameters: lo.Assign(
			lo.Associate(definition.Parameters, func(p Parameter) (string, string) { return p.Name, p.DefaultValue }),
			overrides,
		),
		Outputs: map[string]string{},
	}

	for i := range definition.Steps {
		step := &definition.Steps[i]

		r.Logger.Infof("Running step %s", step.Name)

		var err error

		switch args := step.Arguments.(type) {
		case *ProcessingArguments:
			err = r.runProcessing(ctx, executable, run, step, args)
		case *TrainingArguments:
			err = r.runTraining(ctx, executable, run, step, args)
		default:
			err = fmt.Errorf("unsupported arguments %T", step.Arguments)
		}

		if err != nil {
			return run, fmt.Errorf("step %s failed: %w", step.Name, err)
		}

		r.Logger.Infof("Step %s succeeded", step.Name)
	}

	return run, nil
}

func (r *LocalRunner) stepDir(step *Step, parts ...string) (string, error) {
	dir := filepath.Join(append([]string{r.WorkDir, step.Name}, parts...)...)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %q: %w", dir, err)
	}

	return dir, nil
}

func (r *LocalRunner) env(extra ...string) []string {
	return append(append(os.Environ(), r.Env...), extra...)
}

func (r *LocalRunner) runProcessing(
	ctx context.Context, executable string, run *LocalRun, step *Step, args *ProcessingArguments,
) error {
	localPaths := map[string]string{}

	for _, output := range args.ProcessingOutputConfig.Outputs {
		dir, err := r.stepDir(step, output.OutputName)
		if err != nil {
			return err
		}

		localPaths[output.S3Output.LocalPath] = dir
		run.Outputs[ProcessingOutputRef(step.Name, output.OutputName).Get] = dir
	}

	entrypoint := args.AppSpecification.ContainerEntrypoint
	if len(entrypoint) == 0 {
		return fmt.Errorf("step %s has no container entrypoint", step.Name)
	}

	argv := append(append([]string{}, entrypoint[1:]...), lo.Map(args.AppSpecification.ContainerArguments, func(a string, _ int) string {
		if local, ok := localPaths[a]; ok {
			return local
		}

		return a
	})...)

	return launchCommand(ctx, r.Logger, r.env(), executable, argv...)
}

func (r *LocalRunner) runTraining(
	ctx context.Context, executable string, run *LocalRun, step *Step, args *TrainingArguments,
) error {
	var env []string

	for _, channel := range args.InputDataConfig {
		location, err := run.resolve(channel.DataSource.S3DataSource.S3URI)
		if err != nil {
			return fmt.Errorf("channel %s: %w", channel.ChannelName, err)
		}

		env = append(env, "SM_CHANNEL_"+strings.ToUpper(channel.ChannelName)+"="+location)
	}

	keys := lo.Keys(args.HyperParameters)
	sort.Strings(keys)

	argv := []string{TrainCommand}

	for _, key := range keys {
		value, err := run.resolve(args.HyperParameters[key])
		if err != nil {
			return fmt.Errorf("hyperparameter %s: %w", key, err)
		}

		argv = append(argv, "--"+key, value)
	}

	outputDir, err := r.stepDir(step, "output")
	if err != nil {
		return err
	}

	// The local machine has no SageMaker hyperparameters file.
	argv = append(argv, "--hyperparameters-file", filepath.Join(outputDir, "hyperparameters.json"))
	env = append(env, "SM_MODEL_DIR="+outputDir)

	return launchCommand(ctx, r.Logger, r.env(env...), executable, argv...)
}
