// Package funnel trains and queries one regressor per funnel stage.
package funnel

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"seatcast/internal/apperr"
	"seatcast/internal/calendar"
	"seatcast/internal/dataset"
	"seatcast/internal/forest"
)

// Stage is one of the four funnel counts.
type Stage int

const (
	Invited Stage = iota
	Confirmed
	Declined
	Attended
)

// Stages lists every stage in funnel order.
var Stages = [...]Stage{Invited, Confirmed, Declined, Attended}

func (s Stage) String() string {
	switch s {
	case Invited:
		return "invited"
	case Confirmed:
		return "confirmed"
	case Declined:
		return "declined"
	case Attended:
		return "attended"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Predictor estimates a stage count from calendar features.
type Predictor interface {
	Predict(stage Stage, f calendar.Features) float64
}

// Options controls ensemble training. It is part of the model cache key.
type Options struct {
	Trees int   `json:"trees"`
	Seed  int64 `json:"seed"`
}

// DefaultOptions returns 100 trees seeded with 42.
func DefaultOptions() Options {
	return Options{Trees: 100, Seed: 42}
}

// StageFit describes how well a stage model fits its training data.
type StageFit struct {
	Stage string  `json:"stage"`
	R2    float64 `json:"r2"`
}

// Ensemble holds the four trained stage models. It is read-only after Train.
type Ensemble struct {
	models  [len(Stages)]*forest.Regressor
	Options Options       `json:"options"`
	Samples int           `json:"samples"`
	Fit     []StageFit    `json:"fit"`
	Elapsed time.Duration `json:"-"`
}

// Train fits every stage on the same feature matrix. Stages train concurrently.
func Train(ctx context.Context, records []dataset.Record, opts Options) (*Ensemble, error) {
	if len(records) == 0 {
		return nil, apperr.NewEmptyTrainingSetError("all stages")
	}
	started := time.Now()

	// 1. Feature matrix and targets
	x := make([][]float64, len(records))
	var targets [len(Stages)][]float64
	for s := range targets {
		targets[s] = make([]float64, len(records))
	}
	for i, r := range records {
		x[i] = r.Features.Vector()
		targets[Invited][i] = float64(r.Invited)
		targets[Confirmed][i] = float64(r.Confirmed)
		targets[Declined][i] = float64(r.Declined)
		targets[Attended][i] = float64(r.Attended)
	}

	// 2. Train stages
	e := &Ensemble{Options: opts, Samples: len(records)}
	fo := forest.Options{Trees: opts.Trees, Seed: opts.Seed, MinLeaf: 1}
	g, gctx := errgroup.WithContext(ctx)
	for _, stage := range Stages {
		g.Go(func() error {
			m, err := forest.Fit(gctx, x, targets[stage], fo)
			if err != nil {
				return stageError(stage, err)
			}
			e.models[stage] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 3. Diagnostics
	for _, stage := range Stages {
		e.Fit = append(e.Fit, StageFit{Stage: stage.String(), R2: e.models[stage].R2(x, targets[stage])})
	}
	e.Elapsed = time.Since(started)

	log.Info().
		Int("samples", e.Samples).
		Int("trees", opts.Trees).
		Int64("seed", opts.Seed).
		Dur("elapsed", e.Elapsed).
		Msg("Funnel ensemble trained")

	return e, nil
}

func stageError(stage Stage, err error) error {
	switch {
	case errors.Is(err, forest.ErrNoSamples):
		return apperr.NewEmptyTrainingSetError(stage.String())
	case errors.Is(err, forest.ErrShape):
		return apperr.NewDegenerateModelError(fmt.Sprintf("%s: %v", stage, err))
	}
	return fmt.Errorf("train %s model: %w", stage, err)
}

// Predict returns the non-negative, unrounded estimate for stage.
func (e *Ensemble) Predict(stage Stage, f calendar.Features) float64 {
	return math.Max(0, e.models[stage].Predict(f.Vector()))
}
