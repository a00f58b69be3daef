// Package forest implements a seeded random forest of CART regression trees.
package forest

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoSamples is returned when Fit is called without training rows.
	ErrNoSamples = errors.New("no training samples")
	// ErrShape is returned when the feature matrix is ragged or does not match the targets.
	ErrShape = errors.New("malformed feature matrix")
)

// Options controls forest training.
type Options struct {
	Trees    int   `json:"trees"`
	Seed     int64 `json:"seed"`
	MinLeaf  int   `json:"min_leaf"`
	MaxDepth int   `json:"max_depth"` // 0 = unlimited
	Workers  int   `json:"-"`         // 0 = GOMAXPROCS
}

// DefaultOptions returns 100 fully grown trees seeded with 42.
func DefaultOptions() Options {
	return Options{Trees: 100, Seed: 42, MinLeaf: 1}
}

func (o Options) withDefaults() Options {
	if o.Trees <= 0 {
		o.Trees = 100
	}
	if o.MinLeaf <= 0 {
		o.MinLeaf = 1
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// Regressor is a trained forest. It is read-only and safe for concurrent use.
type Regressor struct {
	trees []*Tree
	width int
}

// Fit grows opts.Trees trees, each on a bootstrap sample of the rows.
// Per-tree seeds are drawn from opts.Seed before any tree is grown, so the
// result does not depend on goroutine scheduling.
func Fit(ctx context.Context, x [][]float64, y []float64, opts Options) (*Regressor, error) {
	if len(x) == 0 {
		return nil, ErrNoSamples
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d rows, %d targets", ErrShape, len(x), len(y))
	}
	width := len(x[0])
	if width == 0 {
		return nil, fmt.Errorf("%w: zero feature columns", ErrShape)
	}
	for i, row := range x {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrShape, i, len(row), width)
		}
	}
	opts = opts.withDefaults()

	// 1. Seeds
	src := rand.New(rand.NewSource(opts.Seed))
	seeds := make([]int64, opts.Trees)
	for i := range seeds {
		seeds[i] = src.Int63()
	}

	// 2. Trees
	trees := make([]*Tree, opts.Trees)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range trees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(seeds[i]))
			trees[i] = growTree(x, y, bootstrap(rng, len(x)), opts.MinLeaf, opts.MaxDepth)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Regressor{trees: trees, width: width}, nil
}

func bootstrap(rng *rand.Rand, n int) []int {
	sample := make([]int, n)
	for i := range sample {
		sample[i] = rng.Intn(n)
	}
	return sample
}

// Predict returns the mean of the tree predictions for x.
func (r *Regressor) Predict(x []float64) float64 {
	if len(x) != r.width {
		panic(fmt.Sprintf("forest: predict with %d columns, trained on %d", len(x), r.width))
	}
	sum := 0.0
	for _, t := range r.trees {
		sum += t.Predict(x)
	}
	return sum / float64(len(r.trees))
}

// Size returns the number of trees.
func (r *Regressor) Size() int { return len(r.trees) }

// Width returns the number of feature columns the forest was trained on.
func (r *Regressor) Width() int { return r.width }

// R2 returns the coefficient of determination of the forest on x/y.
// It is 1 for a perfect fit and can be negative for a poor one.
func (r *Regressor) R2(x [][]float64, y []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))

	var ssRes, ssTot float64
	for i, row := range x {
		d := y[i] - r.Predict(row)
		ssRes += d * d
		t := y[i] - mean
		ssTot += t * t
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}
