package dataset

import (
	"fmt"
	"math"
	"math/rand"
)

const (
	// ReferenceSamples matches the row count of the classic housing regression set.
	ReferenceSamples = 506
	ReferenceSeed    = 0
	referenceNoise   = 1.0
	friedmanFeatures = 10
)

// TargetColumn is the name given to the label column in prepared partitions.
const TargetColumn = "target"

// FeatureNames returns x0..x{n-1}.
func FeatureNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("x%d", i)
	}

	return names
}

// Friedman1 generates the Friedman #1 regression problem:
// y = 10 sin(pi x0 x1) + 20 (x2 - 0.5)^2 + 10 x3 + 5 x4 + noise * N(0, 1),
// with ten features drawn uniformly on [0, 1). Only the first five carry signal.
func Friedman1(samples int, noise float64, seed int64) *Frame {
	//nolint:gosec
	rng := rand.New(rand.NewSource(seed))

	frame := &Frame{
		Columns: append(FeatureNames(friedmanFeatures), TargetColumn),
		Rows:    make([][]float64, samples),
	}

	for i := range frame.Rows {
		row := make([]float64, friedmanFeatures+1)
		for j := 0; j < friedmanFeatures; j++ {
			row[j] = rng.Float64()
		}

		row[friedmanFeatures] = 10*math.Sin(math.Pi*row[0]*row[1]) +
			20*(row[2]-0.5)*(row[2]-0.5) +
			10*row[3] + 5*row[4] +
			noise*rng.NormFloat64()
		frame.Rows[i] = row
	}

	return frame
}

// Reference returns the fixed reference dataset.
func Reference() *Frame {
	return Friedman1(ReferenceSamples, referenceNoise, ReferenceSeed)
}
