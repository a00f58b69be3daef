package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"seatcast/internal/cache"
	"seatcast/internal/calendar"
	"seatcast/internal/dataset"
	"seatcast/internal/funnel"
	"seatcast/internal/metrics"
)

// ServiceConfig holds the defaults a Service applies to incoming requests.
type ServiceConfig struct {
	DatasetPath    string
	Holidays       calendar.Provider
	Country        string
	Training       funnel.Options
	Locale         string
	ModelCacheSize int
}

// Service answers repeated forecasts against the same history without
// retraining. Ensembles are cached by dataset fingerprint and training options.
type Service struct {
	cfg    ServiceConfig
	models *cache.LRUWithTTL[string, *funnel.Ensemble]
	group  singleflight.Group
	train  trainer
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Holidays == nil {
		cfg.Holidays = calendar.Builtin{}
	}
	if cfg.Country == "" {
		cfg.Country = DefaultCountry
	}
	if cfg.ModelCacheSize <= 0 {
		cfg.ModelCacheSize = 8
	}
	if cfg.Training.Trees == 0 {
		cfg.Training = funnel.DefaultOptions()
	}

	models, err := cache.NewLRUWithTTL[string, *funnel.Ensemble](cfg.ModelCacheSize, 0)
	if err != nil {
		return nil, fmt.Errorf("model cache: %w", err)
	}
	return &Service{cfg: cfg, models: models, train: trainFresh}, nil
}

// Config returns the service defaults.
func (s *Service) Config() ServiceConfig { return s.cfg }

// Forecast fills unset request fields from the service defaults and runs the
// forecast with a cached ensemble.
func (s *Service) Forecast(ctx context.Context, req Request) (*Result, error) {
	return execute(ctx, s.withDefaults(req), s.cachedModel)
}

// ForecastFresh fills unset request fields from the service defaults and
// runs the forecast with a newly trained ensemble, bypassing the cache.
func (s *Service) ForecastFresh(ctx context.Context, req Request) (*Result, error) {
	return Run(ctx, s.withDefaults(req))
}

func (s *Service) withDefaults(req Request) Request {
	if req.DatasetPath == "" && req.Rows == nil {
		req.DatasetPath = s.cfg.DatasetPath
	}
	if req.Holidays == nil {
		req.Holidays = s.cfg.Holidays
	}
	if req.Country == "" {
		req.Country = s.cfg.Country
	}
	if req.Training.Trees == 0 {
		req.Training = s.cfg.Training
	}
	if req.Locale == "" {
		req.Locale = s.cfg.Locale
	}
	return req
}

// Holidays lists the holidays of year under the service's provider.
func (s *Service) Holidays(ctx context.Context, year int) ([]calendar.Holiday, error) {
	set, err := s.cfg.Holidays.Holidays(ctx, s.cfg.Country, []int{year})
	if err != nil {
		return nil, err
	}
	return set.Sorted(), nil
}

// Warm loads the default dataset and makes sure its ensemble is cached.
func (s *Service) Warm(ctx context.Context) (*funnel.Ensemble, error) {
	req := Request{DatasetPath: s.cfg.DatasetPath, Holidays: s.cfg.Holidays, Country: s.cfg.Country}
	prepared, err := prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.cachedModel(ctx, prepared, s.cfg.Training)
}

// CacheStats exposes the model cache counters.
func (s *Service) CacheStats() cache.Stats {
	return s.models.Stats()
}

func modelKey(prepared dataset.PrepareResult, opts funnel.Options) string {
	return fmt.Sprintf("%s/%d/%d", dataset.Fingerprint(prepared.Records), opts.Trees, opts.Seed)
}

func (s *Service) cachedModel(ctx context.Context, prepared dataset.PrepareResult, opts funnel.Options) (*funnel.Ensemble, error) {
	key := modelKey(prepared, opts)
	if e, ok := s.models.Get(key); ok {
		metrics.ModelCacheLookups.WithLabelValues("hit").Inc()
		return e, nil
	}
	metrics.ModelCacheLookups.WithLabelValues("miss").Inc()

	// Concurrent misses on the same key share one training run. The run is
	// detached from the caller that started it; each caller only stops
	// waiting when its own context ends.
	trainCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		e, err := s.train(trainCtx, prepared, opts)
		if err != nil {
			return nil, err
		}
		s.models.Set(key, e)
		return e, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			log.Debug().Str("key", key[:12]).Msg("Joined in-flight model training")
		}
		return res.Val.(*funnel.Ensemble), nil
	}
}

// Refresher retrains the default dataset's ensemble on a cron schedule so
// edits to the history file are picked up without a restart.
type Refresher struct {
	cron    *cron.Cron
	service *Service
	timeout time.Duration
}

// NewRefresher schedules svc.Warm with a standard five-field cron spec.
func NewRefresher(svc *Service, spec string) (*Refresher, error) {
	r := &Refresher{
		cron:    cron.New(),
		service: svc,
		timeout: 5 * time.Minute,
	}
	if _, err := r.cron.AddFunc(spec, r.refresh); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return r, nil
}

func (r *Refresher) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	started := time.Now()
	e, err := r.service.Warm(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Scheduled model refresh failed")
		return
	}
	log.Info().Int("samples", e.Samples).Dur("elapsed", time.Since(started)).Msg("Scheduled model refresh complete")
}

// Start runs the schedule in the background.
func (r *Refresher) Start() { r.cron.Start() }

// Stop halts the schedule and returns a context done when running jobs finish.
func (r *Refresher) Stop() context.Context { return r.cron.Stop() }
