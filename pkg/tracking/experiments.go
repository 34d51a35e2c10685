package tracking

import (
	"context"
	"fmt"
	"net/url"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
)

func (c *Client) GetExperimentByName(ctx context.Context, name string) (*contract.Experiment, error) {
	var response contract.GetExperimentResponse
	if err := c.get(ctx, "experiments/get-by-name", url.Values{"experiment_name": {name}}, &response); err != nil {
		return nil, err
	}

	return response.Experiment, nil
}

func (c *Client) GetExperiment(ctx context.Context, id string) (*contract.Experiment, error) {
	var response contract.GetExperimentResponse
	if err := c.get(ctx, "experiments/get", url.Values{"experiment_id": {id}}, &response); err != nil {
		return nil, err
	}

	return response.Experiment, nil
}

func (c *Client) CreateExperiment(ctx context.Context, name, artifactLocation string) (string, error) {
	var response contract.CreateExperimentResponse

	request := contract.CreateExperiment{Name: name, ArtifactLocation: artifactLocation}
	if err := c.post(ctx, "experiments/create", request, &response); err != nil {
		return "", err
	}

	return response.ExperimentID, nil
}

// SetExperiment returns the experiment called name, creating it when missing.
func (c *Client) SetExperiment(ctx context.Context, name string) (*contract.Experiment, error) {
	experiment, err := c.GetExperimentByName(ctx, name)
	if err == nil {
		return experiment, nil
	}

	if !contract.HasCode(err, contract.ErrorCodeResourceDoesNotExist) {
		return nil, err
	}

	id, err := c.CreateExperiment(ctx, name, "")
	if err != nil && !contract.HasCode(err, contract.ErrorCodeResourceAlreadyExists) {
		return nil, fmt.Errorf("failed to create experiment %q: %w", name, err)
	}

	c.logger.Infof("Created experiment %q", name)

	if id == "" {
		return c.GetExperimentByName(ctx, name)
	}

	return c.GetExperiment(ctx, id)
}
