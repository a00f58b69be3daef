// Package optimizer searches, per business day, for the invitation count whose
// scaled attendance best approaches the target utilization without exceeding
// room capacity.
package optimizer

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"seatcast/internal/apperr"
	"seatcast/internal/calendar"
	"seatcast/internal/funnel"
)

// Candidate invitation counts are scanned over [SearchMin, SearchMax).
const (
	SearchMin = 20
	SearchMax = 150
)

// CapacityPolicy defines the attendance ceiling and the desired fill level.
type CapacityPolicy struct {
	MaxCapacity       float64 `json:"max_capacity"`
	TargetUtilization float64 `json:"target_utilization"`
}

// DefaultPolicy is a 45-seat room filled to 90%.
func DefaultPolicy() CapacityPolicy {
	return CapacityPolicy{MaxCapacity: 45, TargetUtilization: 0.9}
}

// Validate rejects a non-positive ceiling or a target outside (0, 1].
func (p CapacityPolicy) Validate() error {
	if !(p.MaxCapacity > 0) || math.IsInf(p.MaxCapacity, 0) {
		return apperr.NewInvalidCapacityError(p.MaxCapacity)
	}
	if !(p.TargetUtilization > 0 && p.TargetUtilization <= 1) {
		return apperr.NewInvalidTargetError(p.TargetUtilization)
	}
	return nil
}

// Target returns the desired attendance, TargetUtilization × MaxCapacity.
func (p CapacityPolicy) Target() float64 {
	return p.TargetUtilization * p.MaxCapacity
}

// ScalingStrategy maps a candidate invitation count onto the multiplier applied
// to every baseline stage prediction.
type ScalingStrategy interface {
	Name() string
	Ratio(candidate int, baselineInvited float64) float64
}

// LinearScaling assumes every stage scales proportionally with invitations.
type LinearScaling struct{}

func (LinearScaling) Name() string { return "linear" }

// Ratio is candidate / baseline, or 1 when the baseline is zero.
func (LinearScaling) Ratio(candidate int, baselineInvited float64) float64 {
	if baselineInvited == 0 {
		return 1
	}
	return float64(candidate) / baselineInvited
}

// Options tunes the search. Zero values select the defaults.
type Options struct {
	Scaling ScalingStrategy
	Min     int
	Max     int
}

func (o Options) withDefaults() Options {
	if o.Scaling == nil {
		o.Scaling = LinearScaling{}
	}
	if o.Min == 0 && o.Max == 0 {
		o.Min, o.Max = SearchMin, SearchMax
	}
	return o
}

// Decision is the chosen invitation count for one date and its scaled funnel.
type Decision struct {
	Date             time.Time `json:"date"`
	Invited          int       `json:"invited"`
	Confirmed        int       `json:"confirmed"`
	Declined         int       `json:"declined"`
	Attending        int       `json:"attending"`
	Ratio            float64   `json:"ratio"`
	Baseline         float64   `json:"baseline_invited"`
	ScaledAttendance float64   `json:"scaled_attendance"`
	Rejected         int       `json:"rejected"`
	Fallback         bool      `json:"fallback"`
}

// Optimize picks the invitation count for date. The caller is expected to have
// validated policy and to pass only business days.
func Optimize(date time.Time, predictor funnel.Predictor, policy CapacityPolicy, opts Options) (Decision, error) {
	opts = opts.withDefaults()
	if opts.Min >= opts.Max {
		return Decision{}, apperr.NewInvalidSettingError("search range", fmt.Sprintf("[%d,%d)", opts.Min, opts.Max), nil)
	}

	// 1. Features, always as a business day
	features := calendar.Extract(date, nil)
	features.HolidayOrWeekend = false

	// 2. Baselines
	baseline := predictor.Predict(funnel.Invited, features)
	attended := predictor.Predict(funnel.Attended, features)

	// 3. Scan
	target, ceiling := policy.Target(), policy.MaxCapacity
	best, bestRatio, bestScaled := -1, 0.0, 0.0
	bestDistance := math.Inf(1)
	rejected := 0
	for k := opts.Min; k < opts.Max; k++ {
		r := opts.Scaling.Ratio(k, baseline)
		a := attended * r
		if a > ceiling {
			rejected++
			continue
		}
		if d := math.Abs(a - target); d < bestDistance {
			best, bestRatio, bestScaled, bestDistance = k, r, a, d
		}
	}

	// 4. Fallback
	fallback := best < 0
	if fallback {
		best = opts.Min
		bestRatio = opts.Scaling.Ratio(best, baseline)
		bestScaled = attended * bestRatio
		log.Warn().
			Str("date", date.Format(calendar.DateLayout)).
			Float64("baseline_invited", baseline).
			Float64("baseline_attended", attended).
			Float64("scaled_attendance", bestScaled).
			Float64("max_capacity", ceiling).
			Msg("No candidate satisfies the capacity ceiling, using lower bound")
	}

	// 5. Scale every stage by the chosen ratio, halves to even
	return Decision{
		Date:             calendar.Day(date),
		Invited:          best,
		Confirmed:        int(math.RoundToEven(predictor.Predict(funnel.Confirmed, features) * bestRatio)),
		Declined:         int(math.RoundToEven(predictor.Predict(funnel.Declined, features) * bestRatio)),
		Attending:        int(math.RoundToEven(bestScaled)),
		Ratio:            bestRatio,
		Baseline:         baseline,
		ScaledAttendance: bestScaled,
		Rejected:         rejected,
		Fallback:         fallback,
	}, nil
}
