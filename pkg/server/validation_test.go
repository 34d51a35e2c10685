package server

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type PositiveInteger struct {
	Value string `validate:"stringAsPositiveInteger"`
}

type validationScenario struct {
	name          string
	input         any
	shouldTrigger bool
}

func runscenarios(t *testing.T, scenarios []validationScenario) {
	t.Helper()

	validator, err := NewValidator()
	require.NoError(t, err)

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			errs := validator.Struct(scenario.input)

			if scenario.shouldTrigger {
				require.Error(t, errs)
			} else {
				require.NoError(t, errs)
			}
		})
	}
}

func TestStringAsPositiveInteger(t *testing.T) {
	scenarios := []validationScenario{
		{name: "positive integer", input: PositiveInteger{Value: "1"}},
		{name: "zero", input: PositiveInteger{Value: "0"}},
		{name: "negative integer", input: PositiveInteger{Value: "-1"}, shouldTrigger: true},
		{name: "alphabet", input: PositiveInteger{Value: "a"}, shouldTrigger: true},
	}

	runscenarios(t, scenarios)
}

type uriWithoutFragmentsOrParams struct {
	Value string `validate:"uriWithoutFragmentsOrParamsOrDotDotInQuery"`
}

func TestUriWithoutFragmentsOrParams(t *testing.T) {
	scenarios := []validationScenario{
		{name: "valid url", input: uriWithoutFragmentsOrParams{Value: "s3://bucket/prefix"}},
		{name: "only trigger when url is not empty", input: uriWithoutFragmentsOrParams{Value: ""}},
		{name: "url with fragment", input: uriWithoutFragmentsOrParams{Value: "http://example.com#fragment"}, shouldTrigger: true},
		{name: "url with query parameters", input: uriWithoutFragmentsOrParams{Value: "http://example.com?query=param"}, shouldTrigger: true},
		{name: "unparsable url", input: uriWithoutFragmentsOrParams{Value: ":invalid-url"}, shouldTrigger: true},
		{name: ".. in query", input: uriWithoutFragmentsOrParams{Value: "http://example.com?query=./.."}, shouldTrigger: true},
	}

	runscenarios(t, scenarios)
}

type relativePath struct {
	Value string `validate:"relativePathWithoutDotDot"`
}

type stageValue struct {
	Value string `validate:"stage"`
}

func TestArtifactPathAndStage(t *testing.T) {
	scenarios := []validationScenario{
		{name: "root", input: relativePath{Value: ""}},
		{name: "nested", input: relativePath{Value: "1/abc/artifacts/model"}},
		{name: "absolute", input: relativePath{Value: "/etc"}, shouldTrigger: true},
		{name: "escaping", input: relativePath{Value: "1/../../etc"}, shouldTrigger: true},
		{name: "canonical stage", input: stageValue{Value: "Production"}},
		{name: "lower case stage", input: stageValue{Value: "staging"}},
		{name: "unknown stage", input: stageValue{Value: "Canary"}, shouldTrigger: true},
	}

	runscenarios(t, scenarios)
}
