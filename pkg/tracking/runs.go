package tracking

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
)

const runNameTag = "mlflow.runName"

func (c *Client) CreateRun(ctx context.Context, experimentID, runName string, tags map[string]string) (*contract.Run, error) {
	request := contract.CreateRun{
		ExperimentID: experimentID,
		RunName:      runName,
		StartTime:    time.Now().UnixMilli(),
		Tags:         toRunTags(tags),
	}

	var response contract.CreateRunResponse
	if err := c.post(ctx, "runs/create", request, &response); err != nil {
		return nil, err
	}

	return response.Run, nil
}

func (c *Client) UpdateRun(ctx context.Context, runID string, status contract.RunStatus) (*contract.RunInfo, error) {
	request := contract.UpdateRun{RunID: runID, Status: status}
	if status.IsTerminated() {
		request.EndTime = time.Now().UnixMilli()
	}

	var response contract.UpdateRunResponse
	if err := c.post(ctx, "runs/update", request, &response); err != nil {
		return nil, err
	}

	return response.RunInfo, nil
}

func (c *Client) GetRun(ctx context.Context, runID string) (*contract.Run, error) {
	var response contract.GetRunResponse
	if err := c.get(ctx, "runs/get", url.Values{"run_id": {runID}}, &response); err != nil {
		return nil, err
	}

	return response.Run, nil
}

func (c *Client) LogBatch(
	ctx context.Context, runID string, metrics []contract.Metric, params []contract.Param, tags []contract.RunTag,
) error {
	request := contract.LogBatch{RunID: runID, Metrics: metrics, Params: params, Tags: tags}

	return c.post(ctx, "runs/log-batch", request, nil)
}

func (c *Client) LogMetric(ctx context.Context, runID, key string, value float64, step int64) error {
	request := contract.LogMetric{
		RunID:     runID,
		Key:       key,
		Value:     value,
		Timestamp: time.Now().UnixMilli(),
		Step:      step,
	}

	return c.post(ctx, "runs/log-metric", request, nil)
}

func toRunTags(tags map[string]string) []contract.RunTag {
	keys := lo.Keys(tags)
	sort.Strings(keys)

	return lo.Map(keys, func(k string, _ int) contract.RunTag { return contract.RunTag{Key: k, Value: tags[k]} })
}

// ActiveRun is a run opened by WithRun.
type ActiveRun struct {
	client *Client
	run    *contract.Run
}

func (r *ActiveRun) ID() string {
	return r.run.Info.RunID
}

func (r *ActiveRun) Info() contract.RunInfo {
	return r.run.Info
}

func (r *ActiveRun) LogParams(ctx context.Context, params map[string]string) error {
	keys := lo.Keys(params)
	sort.Strings(keys)

	batch := lo.Map(keys, func(k string, _ int) contract.Param { return contract.Param{Key: k, Value: params[k]} })

	return r.client.LogBatch(ctx, r.ID(), nil, batch, nil)
}

func (r *ActiveRun) LogMetrics(ctx context.Context, metrics map[string]float64) error {
	keys := lo.Keys(metrics)
	sort.Strings(keys)

	now := time.Now().UnixMilli()
	batch := lo.Map(keys, func(k string, _ int) contract.Metric {
		return contract.Metric{Key: k, Value: metrics[k], Timestamp: now}
	})

	return r.client.LogBatch(ctx, r.ID(), batch, nil, nil)
}

func (r *ActiveRun) SetTags(ctx context.Context, tags map[string]string) error {
	return r.client.LogBatch(ctx, r.ID(), nil, nil, toRunTags(tags))
}

// LogArtifacts uploads localDir below artifactPath in the run's artifact store.
func (r *ActiveRun) LogArtifacts(ctx context.Context, localDir, artifactPath string) error {
	repo, err := r.client.resolver.Resolve(r.run.Info.ArtifactURI)
	if err != nil {
		return err
	}

	if err := repo.LogArtifacts(ctx, localDir, artifactPath); err != nil {
		return fmt.Errorf("failed to log artifacts of run %s: %w", r.ID(), err)
	}

	return nil
}

// ArtifactURI returns the URI of artifactPath inside the run's artifact store.
func (r *ActiveRun) ArtifactURI(artifactPath string) string {
	return joinURI(r.run.Info.ArtifactURI, artifactPath)
}

// WithRun opens a run in experimentID, calls fn and terminates the run exactly
// once: FINISHED when fn succeeds, FAILED when it returns an error or panics.
// Panics are re-raised after the run is terminated.
func (c *Client) WithRun(
	ctx context.Context, experimentID, runName string, fn func(context.Context, *ActiveRun) error,
) (err error) {
	tags := map[string]string{}
	if runName != "" {
		tags[runNameTag] = runName
	}

	run, err := c.CreateRun(ctx, experimentID, runName, tags)
	if err != nil {
		return fmt.Errorf("failed to start run in experiment %s: %w", experimentID, err)
	}

	active := &ActiveRun{client: c, run: run}
	c.logger.Infof("Started run %s in experiment %s", active.ID(), experimentID)

	finished := false

	defer func() {
		status := contract.RunStatusFinished

		recovered := recover()
		if recovered != nil || err != nil || !finished {
			status = contract.RunStatusFailed
		}

		if _, termErr := c.UpdateRun(context.WithoutCancel(ctx), active.ID(), status); termErr != nil {
			c.logger.Errorf("Failed to terminate run %s as %s: %v", active.ID(), status, termErr)
			err = errors.Join(err, termErr)
		} else {
			c.logger.Infof("Run %s terminated as %s", active.ID(), status)
		}

		if recovered != nil {
			panic(recovered)
		}
	}()

	err = fn(ctx, active)
	finished = true

	return err
}
