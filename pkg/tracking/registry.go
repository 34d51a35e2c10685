package tracking

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
)

const searchPageSize = 100

func (c *Client) CreateRegisteredModel(ctx context.Context, name string) (*contract.RegisteredModel, error) {
	var response contract.RegisteredModelResponse
	if err := c.post(ctx, "registered-models/create", contract.CreateRegisteredModel{Name: name}, &response); err != nil {
		return nil, err
	}

	return response.RegisteredModel, nil
}

func (c *Client) GetRegisteredModel(ctx context.Context, name string) (*contract.RegisteredModel, error) {
	var response contract.RegisteredModelResponse
	if err := c.get(ctx, "registered-models/get", url.Values{"name": {name}}, &response); err != nil {
		return nil, err
	}

	return response.RegisteredModel, nil
}

func (c *Client) CreateModelVersion(ctx context.Context, name, source, runID string) (*contract.ModelVersion, error) {
	request := contract.CreateModelVersion{Name: name, Source: source, RunID: runID}

	var response contract.ModelVersionResponse
	if err := c.post(ctx, "model-versions/create", request, &response); err != nil {
		return nil, err
	}

	return response.ModelVersion, nil
}

// RegisterModel creates the registered model when missing and adds a version
// pointing at source.
func (c *Client) RegisterModel(ctx context.Context, name, source, runID string) (*contract.ModelVersion, error) {
	if _, err := c.CreateRegisteredModel(ctx, name); err != nil {
		if !contract.HasCode(err, contract.ErrorCodeResourceAlreadyExists) {
			return nil, fmt.Errorf("failed to create registered model %q: %w", name, err)
		}
	} else {
		c.logger.Infof("Successfully registered model '%s'.", name)
	}

	version, err := c.CreateModelVersion(ctx, name, source, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to create version of model %q: %w", name, err)
	}

	c.logger.Infof("Created version '%s' of model '%s'.", version.Version, name)

	return version, nil
}

func (c *Client) GetModelVersion(ctx context.Context, name, version string) (*contract.ModelVersion, error) {
	var response contract.ModelVersionResponse
	if err := c.get(ctx, "model-versions/get", url.Values{"name": {name}, "version": {version}}, &response); err != nil {
		return nil, err
	}

	return response.ModelVersion, nil
}

// SearchModelVersions returns every version matching filter, following page tokens.
func (c *Client) SearchModelVersions(ctx context.Context, filter string) ([]*contract.ModelVersion, error) {
	var (
		versions  []*contract.ModelVersion
		pageToken string
	)

	for {
		query := url.Values{
			"filter":      {filter},
			"max_results": {fmt.Sprint(searchPageSize)},
		}
		if pageToken != "" {
			query.Set("page_token", pageToken)
		}

		var response contract.SearchModelVersionsResponse
		if err := c.get(ctx, "model-versions/search", query, &response); err != nil {
			return nil, err
		}

		versions = append(versions, response.ModelVersions...)

		if response.NextPageToken == "" {
			return versions, nil
		}

		pageToken = response.NextPageToken
	}
}

var filterEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// ModelNameFilter builds a search filter matching every version of name.
func ModelNameFilter(name string) string {
	return "name='" + filterEscaper.Replace(name) + "'"
}

func (c *Client) TransitionModelVersionStage(
	ctx context.Context, name, version, stage string, archiveExistingVersions bool,
) (*contract.ModelVersion, error) {
	request := contract.TransitionModelVersionStage{
		Name:                    name,
		Version:                 version,
		Stage:                   stage,
		ArchiveExistingVersions: archiveExistingVersions,
	}

	var response contract.ModelVersionResponse
	if err := c.post(ctx, "model-versions/transition-stage", request, &response); err != nil {
		return nil, err
	}

	return response.ModelVersion, nil
}

func (c *Client) GetModelVersionDownloadURI(ctx context.Context, name, version string) (string, error) {
	var response contract.GetModelVersionDownloadURIResponse

	query := url.Values{"name": {name}, "version": {version}}
	if err := c.get(ctx, "model-versions/get-download-uri", query, &response); err != nil {
		return "", err
	}

	return response.ArtifactURI, nil
}
