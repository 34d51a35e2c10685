package training

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultHyperparametersFile is where SageMaker training jobs find their hyperparameters.
const DefaultHyperparametersFile = "/opt/ml/input/config/hyperparameters.json"

const hyperparametersFlag = "--hyperparameters-file"

var knownHyperparameters = map[string]struct{}{
	"tracking_uri":          {},
	"experiment_name":       {},
	"registered_model_name": {},
	"n-estimators":          {},
	"min-samples-leaf":      {},
	"features":              {},
	"target":                {},
	"train-file":            {},
	"test-file":             {},
	"evaluate-on":           {},
	"seed":                  {},
	"run-name":              {},
}

// HyperparameterArgs turns the known keys of a hyperparameters file into
// flags. A missing file yields no flags.
func HyperparameterArgs(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read hyperparameters %q: %w", path, err)
	}

	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("hyperparameters %q are not valid JSON", path)
	}

	parsed := gjson.ParseBytes(raw)
	if !parsed.IsObject() {
		return nil, fmt.Errorf("hyperparameters %q must be a JSON object", path)
	}

	var flags []string

	parsed.ForEach(func(key, value gjson.Result) bool {
		if _, ok := knownHyperparameters[key.String()]; ok {
			flags = append(flags, "--"+key.String(), unquote(value.String()))
		}

		return true
	})

	return flags, nil
}

// SageMaker serializes every hyperparameter as a string, JSON encoding the
// string values a second time.
func unquote(value string) string {
	if strings.HasPrefix(value, `"`) && gjson.Valid(value) {
		return gjson.Parse(value).String()
	}

	return value
}

// WithHyperparameters prepends the hyperparameter flags to argv so that flags
// given explicitly on the command line win. The file is taken from
// --hyperparameters-file when argv carries it.
func WithHyperparameters(argv []string) ([]string, error) {
	path := DefaultHyperparametersFile

	for i, arg := range argv {
		if value, ok := strings.CutPrefix(arg, hyperparametersFlag+"="); ok {
			path = value
		} else if arg == hyperparametersFlag && i+1 < len(argv) {
			path = argv[i+1]
		}
	}

	flags, err := HyperparameterArgs(path)
	if err != nil {
		return nil, err
	}

	return append(flags, argv...), nil
}
