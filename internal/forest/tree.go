package forest

import (
	"slices"
)

// node is a flattened tree node. Feature < 0 marks a leaf.
type node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
}

// Tree is a CART regression tree.
type Tree struct {
	nodes []node
}

// Predict walks x down to a leaf and returns the leaf mean.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		n := t.nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Leaves returns the number of leaf nodes.
func (t *Tree) Leaves() int {
	count := 0
	for _, n := range t.nodes {
		if n.Feature < 0 {
			count++
		}
	}
	return count
}

type builder struct {
	x        [][]float64
	y        []float64
	width    int
	minLeaf  int
	maxDepth int
	nodes    []node
}

func growTree(x [][]float64, y []float64, sample []int, minLeaf, maxDepth int) *Tree {
	b := &builder{
		x:        x,
		y:        y,
		width:    len(x[0]),
		minLeaf:  minLeaf,
		maxDepth: maxDepth,
		nodes:    make([]node, 0, 2*len(sample)/max(minLeaf, 1)),
	}
	b.grow(sample, 0)
	return &Tree{nodes: b.nodes}
}

func (b *builder) grow(idx []int, depth int) int {
	id := len(b.nodes)
	b.nodes = append(b.nodes, node{Feature: -1, Value: b.mean(idx)})

	if len(idx) < 2*b.minLeaf || (b.maxDepth > 0 && depth >= b.maxDepth) || b.constant(idx) {
		return id
	}

	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		return id
	}

	left, right := b.partition(idx, feature, threshold)
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)

	b.nodes[id].Feature = feature
	b.nodes[id].Threshold = threshold
	b.nodes[id].Left = l
	b.nodes[id].Right = r
	return id
}

// bestSplit maximizes the variance reduction over every feature. Minimizing the
// children's squared error is the same as maximizing sumL²/nL + sumR²/nR.
func (b *builder) bestSplit(idx []int) (int, float64, bool) {
	n := len(idx)
	total := 0.0
	for _, i := range idx {
		total += b.y[i]
	}
	parentScore := total * total / float64(n)

	bestFeature, bestThreshold := -1, 0.0
	bestScore := parentScore + 1e-9

	sorted := make([]int, n)
	for f := 0; f < b.width; f++ {
		copy(sorted, idx)
		slices.SortStableFunc(sorted, func(a, c int) int {
			switch {
			case b.x[a][f] < b.x[c][f]:
				return -1
			case b.x[a][f] > b.x[c][f]:
				return 1
			}
			return 0
		})

		left := 0.0
		for pos := 1; pos < n; pos++ {
			left += b.y[sorted[pos-1]]
			lo, hi := b.x[sorted[pos-1]][f], b.x[sorted[pos]][f]
			if lo == hi || pos < b.minLeaf || n-pos < b.minLeaf {
				continue
			}
			right := total - left
			score := left*left/float64(pos) + right*right/float64(n-pos)
			if score > bestScore {
				bestScore = score
				bestFeature = f
				bestThreshold = (lo + hi) / 2
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

func (b *builder) partition(idx []int, feature int, threshold float64) ([]int, []int) {
	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

func (b *builder) mean(idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	sum := 0.0
	for _, i := range idx {
		sum += b.y[i]
	}
	return sum / float64(len(idx))
}

func (b *builder) constant(idx []int) bool {
	first := b.y[idx[0]]
	for _, i := range idx[1:] {
		if b.y[i] != first {
			return false
		}
	}
	return true
}
