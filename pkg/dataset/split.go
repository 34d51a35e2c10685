package dataset

import (
	"fmt"
	"math"
	"math/rand"
)

// DefaultTestSize and DefaultSeed reproduce a 75/25 split with a fixed seed.
const (
	DefaultTestSize = 0.25
	DefaultSeed     = 42
)

// TrainTestSplit shuffles row positions with seed and assigns the first
// ceil(testSize * n) shuffled rows to the test partition, the rest to train.
func TrainTestSplit(frame *Frame, testSize float64, seed int64) (*Frame, *Frame, error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size must be in (0, 1), got %v", testSize)
	}

	n := frame.Len()
	nTest := int(math.Ceil(testSize * float64(n)))

	if n < 2 || nTest >= n {
		return nil, nil, fmt.Errorf("cannot split %d rows with test size %v", n, testSize)
	}

	//nolint:gosec
	perm := rand.New(rand.NewSource(seed)).Perm(n)

	return frame.Take(perm[nTest:]), frame.Take(perm[:nTest]), nil
}
