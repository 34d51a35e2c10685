package forest

import (
	"math/rand"
	"sort"
)

const leafMarker = -1

// Node of a regression tree. Leaves have Left == Right == -1.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
	Samples   int     `json:"samples"`
}

func (n Node) IsLeaf() bool {
	return n.Left == leafMarker
}

// Tree is a CART regression tree stored as a flat node list rooted at index 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) Predict(row []float64) float64 {
	node := t.Nodes[0]
	for !node.IsLeaf() {
		if row[node.Feature] <= node.Threshold {
			node = t.Nodes[node.Left]
		} else {
			node = t.Nodes[node.Right]
		}
	}

	return node.Value
}

type treeBuilder struct {
	x              [][]float64
	y              []float64
	minSamplesLeaf int
	maxFeatures    int
	rng            *rand.Rand
	nodes          []Node
}

type split struct {
	feature   int
	threshold float64
	score     float64
	position  int
	order     []int
}

func (b *treeBuilder) build(samples []int) int {
	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{Left: leafMarker, Right: leafMarker, Samples: len(samples), Value: b.mean(samples)})

	if len(samples) < 2*b.minSamplesLeaf || b.isPure(samples) {
		return idx
	}

	best, ok := b.bestSplit(samples)
	if !ok {
		return idx
	}

	left := b.build(best.order[:best.position])
	right := b.build(best.order[best.position:])

	b.nodes[idx].Feature = best.feature
	b.nodes[idx].Threshold = best.threshold
	b.nodes[idx].Left = left
	b.nodes[idx].Right = right

	return idx
}

func (b *treeBuilder) mean(samples []int) float64 {
	var sum float64
	for _, s := range samples {
		sum += b.y[s]
	}

	return sum / float64(len(samples))
}

func (b *treeBuilder) isPure(samples []int) bool {
	first := b.y[samples[0]]
	for _, s := range samples[1:] {
		if b.y[s] != first {
			return false
		}
	}

	return true
}

func (b *treeBuilder) candidateFeatures() []int {
	features := b.rng.Perm(len(b.x[0]))
	if b.maxFeatures > 0 && b.maxFeatures < len(features) {
		return features[:b.maxFeatures]
	}

	return features
}

// bestSplit maximises the reduction of the squared error, which for a fixed
// parent is the same as maximising sumL^2/nL + sumR^2/nR.
func (b *treeBuilder) bestSplit(samples []int) (split, bool) {
	var (
		best  split
		found bool
		total float64
	)

	for _, s := range samples {
		total += b.y[s]
	}

	n := len(samples)

	for _, feature := range b.candidateFeatures() {
		order := append([]int(nil), samples...)
		sort.SliceStable(order, func(i, j int) bool { return b.x[order[i]][feature] < b.x[order[j]][feature] })

		var left float64
		for pos := 1; pos < n; pos++ {
			left += b.y[order[pos-1]]

			if pos < b.minSamplesLeaf || n-pos < b.minSamplesLeaf {
				continue
			}

			lo, hi := b.x[order[pos-1]][feature], b.x[order[pos]][feature]
			if lo == hi {
				continue
			}

			right := total - left
			score := left*left/float64(pos) + right*right/float64(n-pos)

			if !found || score > best.score {
				best = split{feature: feature, threshold: lo + (hi-lo)/2, score: score, position: pos, order: order}
				found = true
			}
		}
	}

	return best, found
}
