// Package web serves the forecast form, the JSON API and spreadsheet downloads.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"seatcast/internal/cache"
	"seatcast/internal/calendar"
	"seatcast/internal/forecast"
	"seatcast/internal/optimizer"
)

//go:embed templates/*.html
var templateFS embed.FS

// Forecaster is the part of forecast.Service the server depends on.
type Forecaster interface {
	Forecast(ctx context.Context, req forecast.Request) (*forecast.Result, error)
	Holidays(ctx context.Context, year int) ([]calendar.Holiday, error)
}

// Options configures the server.
type Options struct {
	Policy          optimizer.CapacityPolicy
	Locale          string
	ResultCacheSize int
	ResultTTL       time.Duration
	RatePerMinute   int // 0 disables limiting
	Charts          bool
}

// Server holds the routes and the per-process result store. Results are
// addressed by handle, so concurrent users never see each other's forecast.
type Server struct {
	svc     Forecaster
	opts    Options
	mux     *http.ServeMux
	results *cache.LRUWithTTL[string, *forecast.Result]
	limiter *rate.Limiter
	page    *template.Template
}

// NewServer constructs a Server.
func NewServer(svc Forecaster, opts Options) (*Server, error) {
	if opts.ResultCacheSize <= 0 {
		opts.ResultCacheSize = 64
	}
	if opts.Policy == (optimizer.CapacityPolicy{}) {
		opts.Policy = optimizer.DefaultPolicy()
	}

	results, err := cache.NewLRUWithTTL[string, *forecast.Result](opts.ResultCacheSize, opts.ResultTTL)
	if err != nil {
		return nil, fmt.Errorf("result store: %w", err)
	}

	page, err := template.New("index.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		svc:     svc,
		opts:    opts,
		mux:     http.NewServeMux(),
		results: results,
		page:    page,
	}
	if opts.RatePerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RatePerMinute)), opts.RatePerMinute)
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the root handler with request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /{$}", s.handleIndexSubmit)
	s.mux.HandleFunc("POST /api/forecast", s.handleForecast)
	s.mux.HandleFunc("GET /api/forecast/{id}", s.handleGetForecast)
	s.mux.HandleFunc("GET /api/forecast/{id}/export", s.handleExport)
	s.mux.HandleFunc("GET /api/holidays", s.handleHolidays)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// store assigns a handle to res and keeps it for later export.
func (s *Server) store(res *forecast.Result) string {
	res.ID = uuid.NewString()
	s.results.Set(res.ID, res)
	return res.ID
}

func (s *Server) lookup(id string) (*forecast.Result, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	return s.results.Get(id)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(url string)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      5 * time.Minute,
	}

	go s.sweep(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	url := "http://" + ln.Addr().String()
	log.Info().Str("url", url).Msg("HTTP server listening")
	if ready != nil {
		ready(url)
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

// sweep drops expired results once a minute.
func (s *Server) sweep(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.results.CleanupExpired(); n > 0 {
				log.Debug().Int("removed", n).Msg("Expired forecast results dropped")
			}
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(started)).
			Msg("HTTP request")
	})
}
