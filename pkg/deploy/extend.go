package deploy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/samber/lo"
)

const (
	KeyParameters = "Parameters"
	KeyTags       = "Tags"
	KeyStageName  = "StageName"
)

// Document is a stage configuration file.
type Document map[string]any

// DeploymentParams are the values merged into every stage configuration.
type DeploymentParams struct {
	ProjectID             string
	ProjectName           string
	ModelDataLocation     string
	ContainerImageURI     string
	ModelExecutionRoleArn string
	EndpointInstanceCount string
	EndpointInstanceType  string
	ModelName             string
	ModelVersion          string
	TrackingURI           string
}

func section(doc Document, key string, required bool) (map[string]any, error) {
	raw, ok := doc[key]
	if !ok || raw == nil {
		if required {
			return nil, &ConfigurationError{Path: key, Message: "section is missing"}
		}

		return map[string]any{}, nil
	}

	values, ok := raw.(map[string]any)
	if !ok {
		return nil, &ConfigurationError{Path: key, Message: fmt.Sprintf("expected an object, got %T", raw)}
	}

	return values, nil
}

// Extend returns a copy of doc whose Parameters and Tags carry the deployment
// values. Deployment values win over existing keys; doc is left untouched.
func Extend(params DeploymentParams, doc Document) (Document, error) {
	parameters, err := section(doc, KeyParameters, true)
	if err != nil {
		return nil, err
	}

	stageName, ok := parameters[KeyStageName]
	if !ok {
		return nil, &ConfigurationError{
			Path:    KeyParameters + "." + KeyStageName,
			Message: "configuration file must include StageName parameter",
		}
	}

	tags, err := section(doc, KeyTags, false)
	if err != nil {
		return nil, err
	}

	extended := Document(lo.Assign(map[string]any(doc)))
	extended[KeyParameters] = lo.Assign(parameters, map[string]any{
		"SageMakerProjectName":  params.ProjectName,
		"ModelDataLocation":     params.ModelDataLocation,
		"ContainerImageURI":     params.ContainerImageURI,
		"ModelExecutionRoleArn": params.ModelExecutionRoleArn,
		"EndpointInstanceCount": params.EndpointInstanceCount,
		"EndpointInstanceType":  params.EndpointInstanceType,
	})
	extended[KeyTags] = lo.Assign(tags, map[string]any{
		"sagemaker:deployment-stage": stageName,
		"sagemaker:project-id":       params.ProjectID,
		"sagemaker:project-name":     params.ProjectName,
		"ModelName":                  params.ModelName,
		"ModelVersion":               params.ModelVersion,
		"TrackingURI":                params.TrackingURI,
	})

	return extended, nil
}

func ReadDocument(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %q: %w", path, err)
	}

	if doc == nil {
		return nil, &ConfigurationError{Path: path, Message: "document must be a JSON object"}
	}

	return doc, nil
}

// Marshal renders doc as JSON indented with four spaces. Object keys are
// written in sorted order at every level, whatever order the source file used.
func (d Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "    ")

	if err := encoder.Encode(d); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func WriteDocument(path string, doc Document) error {
	raw, err := doc.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write %q: %w", path, err)
	}

	return nil
}
