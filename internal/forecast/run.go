package forecast

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"seatcast/internal/apperr"
	"seatcast/internal/calendar"
	"seatcast/internal/dataset"
	"seatcast/internal/funnel"
	"seatcast/internal/metrics"
	"seatcast/internal/optimizer"
)

// DefaultCountry is used when a request names no holiday country.
const DefaultCountry = "TR"

// Request describes one forecast: the range, the policy and where the history comes from.
type Request struct {
	Start time.Time
	End   time.Time

	Policy  optimizer.CapacityPolicy
	Locale  string
	Scaling optimizer.ScalingStrategy

	// History: Rows wins over DatasetPath when both are set.
	DatasetPath string
	Rows        []dataset.RawRow
	Holidays    calendar.Provider
	Country     string
	Training    funnel.Options
}

// Validate checks the range and the policy. It runs before any data is loaded.
func (r Request) Validate() error {
	if r.End.Before(r.Start) {
		return apperr.NewInvalidRangeError(r.Start.Format(calendar.DateLayout), r.End.Format(calendar.DateLayout))
	}
	return r.Policy.Validate()
}

// Result is a completed forecast with its derived series and diagnostics.
type Result struct {
	ID          string                   `json:"id,omitempty"`
	Start       string                   `json:"start"`
	End         string                   `json:"end"`
	Policy      optimizer.CapacityPolicy `json:"policy"`
	Sequence    Sequence                 `json:"sequence"`
	Summary     Summary                  `json:"summary"`
	Dataset     dataset.PrepareResult    `json:"dataset"`
	Model       *funnel.Ensemble         `json:"model"`
	GeneratedAt time.Time                `json:"generated_at"`
}

// trainer produces an ensemble for prepared records.
type trainer func(ctx context.Context, prepared dataset.PrepareResult, opts funnel.Options) (*funnel.Ensemble, error)

// Run executes a forecast end to end, training a fresh ensemble.
func Run(ctx context.Context, req Request) (*Result, error) {
	return execute(ctx, req, trainFresh)
}

func trainFresh(ctx context.Context, prepared dataset.PrepareResult, opts funnel.Options) (*funnel.Ensemble, error) {
	started := time.Now()
	e, err := funnel.Train(ctx, prepared.Records, opts)
	if err != nil {
		return nil, err
	}
	metrics.TrainingDuration.Observe(time.Since(started).Seconds())
	return e, nil
}

func execute(ctx context.Context, req Request, train trainer) (*Result, error) {
	if req.Holidays == nil {
		req.Holidays = calendar.Builtin{}
	}
	if req.Country == "" {
		req.Country = DefaultCountry
	}
	if req.Training.Trees == 0 {
		req.Training = funnel.DefaultOptions()
	}

	// 1. Validate before touching data
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// 2. Load and prepare
	prepared, err := prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	// 3. Train
	ensemble, err := train(ctx, prepared, req.Training)
	if err != nil {
		return nil, err
	}

	// 4. Generate
	seq, err := Generate(ctx, req.Start, req.End, ensemble, req.Holidays, req.Country, req.Policy, Options{Locale: req.Locale, Scaling: req.Scaling})
	if err != nil {
		return nil, err
	}

	summary := Summarize(seq, req.Policy)
	metrics.ForecastDays.Add(float64(len(seq)))
	if summary.FallbackDays > 0 {
		metrics.FallbackDecisions.Add(float64(summary.FallbackDays))
	}

	log.Info().
		Str("start", req.Start.Format(calendar.DateLayout)).
		Str("end", req.End.Format(calendar.DateLayout)).
		Int("days", len(seq)).
		Int("total_attending", summary.TotalAttending).
		Int("fallback_days", summary.FallbackDays).
		Msg("Forecast generated")

	return &Result{
		Start:       req.Start.Format(calendar.DateLayout),
		End:         req.End.Format(calendar.DateLayout),
		Policy:      req.Policy,
		Sequence:    seq,
		Summary:     summary,
		Dataset:     prepared,
		Model:       ensemble,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func prepare(ctx context.Context, req Request) (dataset.PrepareResult, error) {
	rows := req.Rows
	if rows == nil {
		var err error
		if rows, err = dataset.LoadFile(req.DatasetPath); err != nil {
			return dataset.PrepareResult{}, err
		}
	}

	prepared, err := dataset.Prepare(ctx, rows, req.Holidays, req.Country)
	if prepared.DroppedDates > 0 {
		metrics.DroppedRows.WithLabelValues("date").Add(float64(prepared.DroppedDates))
	}
	if prepared.DroppedCounts > 0 {
		metrics.DroppedRows.WithLabelValues("count").Add(float64(prepared.DroppedCounts))
	}
	return prepared, err
}
