package deploy

import (
	"context"
	"fmt"
	"strconv"

	"github.com/samber/lo"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/tracking"
)

// TransitionReport lists what a promotion or a reconciliation changed.
type TransitionReport struct {
	ModelName string
	// Archived holds the versions moved to Archived, in the order they moved.
	Archived []string
	// Target is the promoted version, nil when no promotion happened.
	Target *contract.ModelVersion
	// Kept maps each active stage to the version left in it by Reconcile.
	Kept map[string]string
}

func (h *Handler) archive(ctx context.Context, report *TransitionReport, version *contract.ModelVersion) error {
	if _, err := h.registry.TransitionModelVersionStage(
		ctx, version.Name, version.Version, contract.StageArchived, false,
	); err != nil {
		return err
	}

	report.Archived = append(report.Archived, version.Version)
	h.logger.Infof("Transitioning %s/%s to Archived", version.Name, version.Version)

	return nil
}

// TransitionModelVersionStage archives every other version of the model that
// sits in Staging or Production, then moves the target version to stage.
// The sequence is not atomic: a *TransitionError reports the versions already
// archived when a later call fails, and Reconcile repairs concurrent runs.
func (h *Handler) TransitionModelVersionStage(ctx context.Context, stage string) (*TransitionReport, error) {
	report := &TransitionReport{ModelName: h.modelName}

	canonical, ok := contract.CanonicalStage(stage)
	if !ok {
		return report, &TransitionError{Report: report, Err: fmt.Errorf("invalid stage %q", stage)}
	}

	versions, err := h.registry.SearchModelVersions(ctx, tracking.ModelNameFilter(h.modelName))
	if err != nil {
		return report, &TransitionError{Report: report, Err: err}
	}

	for _, version := range versions {
		if !contract.IsActiveStage(version.CurrentStage) || version.Version == h.modelVersion {
			continue
		}

		if err := h.archive(ctx, report, version); err != nil {
			h.logger.Error(err)

			return report, &TransitionError{Report: report, Err: err}
		}
	}

	target, err := h.registry.TransitionModelVersionStage(ctx, h.modelName, h.modelVersion, canonical, false)
	if err != nil {
		h.logger.Error(err)

		return report, &TransitionError{Report: report, Err: err}
	}

	report.Target = target
	h.logger.Infof("Model transitioned to %s", canonical)

	return report, nil
}

func versionNumber(v *contract.ModelVersion) int64 {
	n, _ := strconv.ParseInt(v.Version, 10, 64)

	return n
}

// newer orders versions by last update, then by version number.
func newer(a, b *contract.ModelVersion) bool {
	if a.LastUpdatedTimestamp != b.LastUpdatedTimestamp {
		return a.LastUpdatedTimestamp > b.LastUpdatedTimestamp
	}

	return versionNumber(a) > versionNumber(b)
}

// Reconcile leaves at most one version per active stage: the most recently
// updated one stays and the others are archived.
func (h *Handler) Reconcile(ctx context.Context) (*TransitionReport, error) {
	report := &TransitionReport{ModelName: h.modelName, Kept: map[string]string{}}

	versions, err := h.registry.SearchModelVersions(ctx, tracking.ModelNameFilter(h.modelName))
	if err != nil {
		return report, &TransitionError{Report: report, Err: err}
	}

	for _, stage := range contract.ActiveStages() {
		occupants := lo.Filter(versions, func(v *contract.ModelVersion, _ int) bool { return v.CurrentStage == stage })
		if len(occupants) == 0 {
			continue
		}

		keep := lo.MaxBy(occupants, newer)
		report.Kept[stage] = keep.Version

		for _, version := range occupants {
			if version == keep {
				continue
			}

			if err := h.archive(ctx, report, version); err != nil {
				return report, &TransitionError{Report: report, Err: err}
			}
		}

		if len(occupants) > 1 {
			h.logger.Warnf("Kept %s/%s in %s, archived %d other versions", h.modelName, keep.Version, stage, len(occupants)-1)
		}
	}

	return report, nil
}
