package server

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
)

// Verify that the input string is a non-negative integer.
func stringAsPositiveInteger(fl validator.FieldLevel) bool {
	valueStr := fl.Field().String()
	if valueStr == "" {
		return true
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return false
	}

	return value > -1
}

// Verify that the input is a URI without fragments or query parameters.
// This also rules out ".." in the query.
func uriWithoutFragmentsOrParamsOrDotDotInQuery(fl validator.FieldLevel) bool {
	valueStr := fl.Field().String()
	if valueStr == "" {
		return true
	}

	u, err := url.Parse(valueStr)
	if err != nil {
		return false
	}

	return u.Fragment == "" && u.RawQuery == "" && !u.ForceQuery
}

// Artifact paths stay below the artifact root.
func relativePathWithoutDotDot(fl validator.FieldLevel) bool {
	valueStr := fl.Field().String()

	return !strings.HasPrefix(valueStr, "/") && !strings.Contains(valueStr, "..")
}

func stage(fl validator.FieldLevel) bool {
	_, ok := contract.CanonicalStage(fl.Field().String())

	return ok
}

func NewValidator() (*validator.Validate, error) {
	validate := validator.New()

	for tag, fn := range map[string]validator.Func{
		"stringAsPositiveInteger":                    stringAsPositiveInteger,
		"uriWithoutFragmentsOrParamsOrDotDotInQuery": uriWithoutFragmentsOrParamsOrDotDotInQuery,
		"relativePathWithoutDotDot":                  relativePathWithoutDotDot,
		"stage":                                      stage,
	} {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			return nil, fmt.Errorf("validation registration for '%s' failed: %w", tag, err)
		}
	}

	return validate, nil
}
