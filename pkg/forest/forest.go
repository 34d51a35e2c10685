// Package forest implements a random forest regressor built from bootstrapped
// CART trees.
package forest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"
)

type Params struct {
	NEstimators    int   `json:"n_estimators"`
	MinSamplesLeaf int   `json:"min_samples_leaf"`
	MaxFeatures    int   `json:"max_features,omitempty"`
	Bootstrap      bool  `json:"bootstrap"`
	Seed           int64 `json:"seed"`
	// Parallelism bounds concurrent tree fits; zero uses GOMAXPROCS.
	Parallelism int `json:"-"`
}

// Forest is a fitted ensemble. Predictions are the mean of the tree predictions.
type Forest struct {
	Features []string `json:"features"`
	Params   Params   `json:"params"`
	Trees    []Tree   `json:"trees"`
}

var ErrEmptyTrainingSet = errors.New("training set is empty")

func validate(x [][]float64, y []float64, params Params) error {
	switch {
	case len(x) == 0:
		return ErrEmptyTrainingSet
	case len(x) != len(y):
		return fmt.Errorf("feature rows (%d) and targets (%d) differ", len(x), len(y))
	case params.NEstimators < 1:
		return fmt.Errorf("n_estimators must be positive, got %d", params.NEstimators)
	case params.MinSamplesLeaf < 1:
		return fmt.Errorf("min_samples_leaf must be positive, got %d", params.MinSamplesLeaf)
	}

	width := len(x[0])
	if width == 0 {
		return errors.New("no features")
	}

	for i, row := range x {
		if len(row) != width {
			return fmt.Errorf("row %d has %d features, expected %d", i, len(row), width)
		}
	}

	return nil
}

// Fit trains params.NEstimators trees concurrently. Each tree draws from its
// own generator seeded from params.Seed and its index, so the result does not
// depend on scheduling.
func Fit(ctx context.Context, features []string, x [][]float64, y []float64, params Params) (*Forest, error) {
	if err := validate(x, y, params); err != nil {
		return nil, err
	}

	if len(features) != len(x[0]) {
		return nil, fmt.Errorf("%d feature names for %d columns", len(features), len(x[0]))
	}

	trees := make([]Tree, params.NEstimators)

	group, ctx := errgroup.WithContext(ctx)
	if params.Parallelism > 0 {
		group.SetLimit(params.Parallelism)
	} else {
		group.SetLimit(runtime.GOMAXPROCS(0))
	}

	for i := range trees {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			trees[i] = fitTree(x, y, params, params.Seed+int64(i))

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("failed to fit forest: %w", err)
	}

	return &Forest{
		Features: append([]string(nil), features...),
		Params:   params,
		Trees:    trees,
	}, nil
}

func fitTree(x [][]float64, y []float64, params Params, seed int64) Tree {
	//nolint:gosec
	rng := rand.New(rand.NewSource(seed))

	samples := make([]int, len(x))
	for i := range samples {
		if params.Bootstrap {
			samples[i] = rng.Intn(len(x))
		} else {
			samples[i] = i
		}
	}

	builder := &treeBuilder{
		x:              x,
		y:              y,
		minSamplesLeaf: params.MinSamplesLeaf,
		maxFeatures:    params.MaxFeatures,
		rng:            rng,
	}
	builder.build(samples)

	return Tree{Nodes: builder.nodes}
}

func (f *Forest) PredictRow(row []float64) float64 {
	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].Predict(row)
	}

	return sum / float64(len(f.Trees))
}

func (f *Forest) Predict(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i, row := range x {
		if len(row) != len(f.Features) {
			return nil, fmt.Errorf("row %d has %d features, model expects %d", i, len(row), len(f.Features))
		}

		out[i] = f.PredictRow(row)
	}

	return out, nil
}

func (f *Forest) Save(path string) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode forest: %w", err)
	}

	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write %q: %w", path, err)
	}

	return nil
}

func Load(path string) (*Forest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}

	var f Forest
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to decode %q: %w", path, err)
	}

	if len(f.Trees) == 0 {
		return nil, fmt.Errorf("%q holds no trees", path)
	}

	return &f, nil
}
