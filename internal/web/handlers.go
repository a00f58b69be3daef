package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"seatcast/internal/apperr"
	"seatcast/internal/calendar"
	"seatcast/internal/export"
	"seatcast/internal/forecast"
	"seatcast/internal/metrics"
	"seatcast/internal/optimizer"
	"seatcast/internal/visuals"
)

var templateFuncs = template.FuncMap{
	"percent": func(f float64) string { return fmt.Sprintf("%.0f%%", f*100) },
	"isoDate": func(t time.Time) string { return t.Format(calendar.DateLayout) },
}

// forecastRequest is the JSON body of POST /api/forecast.
type forecastRequest struct {
	Start             string   `json:"start"`
	End               string   `json:"end"`
	MaxCapacity       *float64 `json:"max_capacity,omitempty"`
	TargetUtilization *float64 `json:"target_utilization,omitempty"`
	Locale            string   `json:"locale,omitempty"`
}

func (s *Server) toRequest(in forecastRequest) (forecast.Request, error) {
	start, err := calendar.ParseDate(in.Start)
	if err != nil {
		return forecast.Request{}, err
	}
	end, err := calendar.ParseDate(in.End)
	if err != nil {
		return forecast.Request{}, err
	}

	policy := s.opts.Policy
	if in.MaxCapacity != nil {
		policy.MaxCapacity = *in.MaxCapacity
	}
	if in.TargetUtilization != nil {
		policy.TargetUtilization = *in.TargetUtilization
	}

	locale := in.Locale
	if locale == "" {
		locale = s.opts.Locale
	}
	return forecast.Request{Start: start, End: end, Policy: policy, Locale: locale}, nil
}

// run executes and stores one forecast, recording metrics under source.
func (s *Server) run(r *http.Request, source string, in forecastRequest) (*forecast.Result, error) {
	started := time.Now()
	defer func() {
		metrics.ForecastDuration.WithLabelValues(source).Observe(time.Since(started).Seconds())
	}()

	req, err := s.toRequest(in)
	if err == nil {
		var res *forecast.Result
		if res, err = s.svc.Forecast(r.Context(), req); err == nil {
			metrics.ForecastsTotal.WithLabelValues(source, "ok").Inc()
			s.store(res)
			return res, nil
		}
	}

	outcome := string(apperr.KindOf(err))
	if outcome == "" {
		outcome = "internal"
	}
	metrics.ForecastsTotal.WithLabelValues(source, outcome).Inc()
	log.Warn().Err(err).Str("source", source).Msg("Forecast request failed")
	return nil, err
}

func (s *Server) allow(w http.ResponseWriter) bool {
	if s.limiter == nil || s.limiter.Allow() {
		return true
	}
	metrics.RateLimited.Inc()
	w.Header().Set("Retry-After", "60")
	return false
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w) {
		writeError(w, http.StatusTooManyRequests, "too many forecast requests")
		return
	}

	var in forecastRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	res, err := s.run(r, "api", in)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetForecast(w http.ResponseWriter, r *http.Request) {
	res, ok := s.lookup(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "no forecast yet")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	res, ok := s.lookup(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "no forecast yet")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, res.Sequence); err != nil {
		log.Error().Err(err).Str("id", res.ID).Msg("Spreadsheet export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleHolidays(w http.ResponseWriter, r *http.Request) {
	year := time.Now().Year()
	if v := r.URL.Query().Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1900 || n > 2200 {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = n
	}

	holidays, err := s.svc.Holidays(r.Context(), year)
	if err != nil {
		writeAppError(w, err)
		return
	}

	type item struct {
		Date string `json:"date"`
		Name string `json:"name"`
	}
	out := make([]item, 0, len(holidays))
	for _, h := range holidays {
		out = append(out, item{Date: h.Date.Format(calendar.DateLayout), Name: h.Name})
	}
	writeJSON(w, http.StatusOK, map[string]any{"year": year, "holidays": out})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"results": s.results.Stats(),
	})
}

// pageData feeds templates/index.html.
type pageData struct {
	Start      string
	End        string
	Policy     optimizer.CapacityPolicy
	Result     *forecast.Result
	Error      string
	Charts     []string
	ExportURL  string
	RangeLabel string
	ShowCharts bool
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	today := time.Now()
	s.render(w, http.StatusOK, pageData{
		Start:  today.Format(calendar.DateLayout),
		End:    today.AddDate(0, 0, 13).Format(calendar.DateLayout),
		Policy: s.opts.Policy,
	})
}

func (s *Server) handleIndexSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	data := pageData{
		Start:  r.PostFormValue("start_date"),
		End:    r.PostFormValue("end_date"),
		Policy: s.opts.Policy,
	}
	if !s.allow(w) {
		data.Error = "Too many forecast requests, try again in a minute."
		s.render(w, http.StatusTooManyRequests, data)
		return
	}

	res, err := s.run(r, "form", forecastRequest{Start: data.Start, End: data.End})
	if err != nil {
		data.Error = err.Error()
		s.render(w, statusFor(err), data)
		return
	}

	data.Result = res
	data.RangeLabel = fmt.Sprintf("%s → %s", res.Start, res.End)
	data.ExportURL = "/api/forecast/" + res.ID + "/export"
	if s.opts.Charts && len(res.Sequence) > 0 {
		data.ShowCharts = true
		data.Charts = []string{
			visuals.GenerateFunnelChart(res.Sequence),
			visuals.GenerateCumulativeChart(res.Summary),
			visuals.GenerateUtilizationChart(res.Summary),
		}
	}
	s.render(w, http.StatusOK, data)
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		log.Error().Err(err).Msg("Failed to render page")
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// statusFor maps an error onto an HTTP status by its kind.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindConfig, apperr.KindData, apperr.KindDateParse:
		return http.StatusBadRequest
	case apperr.KindModel:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeAppError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	var ae *apperr.Error
	if errors.As(err, &ae) {
		writeJSON(w, status, map[string]any{"error": ae.Message, "kind": ae.Kind, "code": ae.Code, "details": ae.Details})
		return
	}
	writeError(w, status, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
