package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"seatcast/internal/apperr"
	"seatcast/internal/calendar"
	"seatcast/internal/export"
	"seatcast/internal/forecast"
	"seatcast/internal/visuals"
)

func (s *Server) callTool(ctx context.Context, params json.RawMessage) (interface{}, interface{}) {
	var call struct {
		Name      string                 `json:"name"`
		Arguments map[string]interface{} `json:"arguments"`
	}
	if err := json.Unmarshal(params, &call); err != nil {
		return nil, map[string]interface{}{"code": -32602, "message": "Invalid params"}
	}

	schema, ok := inputSchema(call.Name)
	if !ok {
		return nil, map[string]interface{}{"code": -32601, "message": "Tool not found"}
	}
	if call.Arguments == nil {
		call.Arguments = map[string]interface{}{}
	}
	if err := validateArguments(schema, call.Arguments); err != nil {
		return nil, map[string]interface{}{"code": -32602, "message": err.Error()}
	}

	var data interface{}
	var err error

	switch call.Name {
	case "run_capacity_forecast":
		data, err = s.handleRunForecast(ctx, call.Arguments)
	case "list_holidays":
		data, err = s.handleListHolidays(ctx, asInt(call.Arguments["year"]))
	case "export_forecast":
		data, err = s.handleExport(asString(call.Arguments["forecast_id"]), asString(call.Arguments["file_name"]))
	default:
		return nil, map[string]interface{}{"code": -32601, "message": "Tool not found"}
	}

	if err != nil {
		log.Warn().Err(err).Str("tool", call.Name).Msg("Tool call failed")
		return nil, toolError(err)
	}

	return map[string]interface{}{
		"content": []interface{}{
			map[string]interface{}{
				"type": "text",
				"text": s.formatResult(data),
			},
		},
	}, nil
}

func (s *Server) handleRunForecast(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	start, err := calendar.ParseDate(asString(args["start_date"]))
	if err != nil {
		return nil, err
	}
	end, err := calendar.ParseDate(asString(args["end_date"]))
	if err != nil {
		return nil, err
	}

	policy := s.opts.Policy
	if v, ok := asFloat(args["max_capacity"]); ok {
		policy.MaxCapacity = v
	}
	if v, ok := asFloat(args["target_utilization"]); ok {
		policy.TargetUtilization = v
	}
	locale := asString(args["locale"])
	if locale == "" {
		locale = s.opts.Locale
	}

	res, err := s.svc.Forecast(ctx, forecast.Request{Start: start, End: end, Policy: policy, Locale: locale})
	if err != nil {
		return nil, err
	}
	res.ID = uuid.NewString()
	s.results.Set(res.ID, res)

	var guidance []string
	if res.Summary.FallbackDays > 0 {
		guidance = append(guidance, fmt.Sprintf("%d day(s) could not be planned within capacity; the minimum invitation count was used and attendance may exceed %.0f seats.", res.Summary.FallbackDays, policy.MaxCapacity))
	}
	if len(res.Sequence) == 0 {
		guidance = append(guidance, "The range contains no business days.")
	}

	out := map[string]interface{}{
		"forecast_id": res.ID,
		"start":       res.Start,
		"end":         res.End,
		"policy":      res.Policy,
		"sequence":    res.Sequence,
		"summary":     res.Summary,
		"dataset": map[string]interface{}{
			"rows":           res.Dataset.Total,
			"dropped_dates":  res.Dataset.DroppedDates,
			"dropped_counts": res.Dataset.DroppedCounts,
		},
	}
	if s.opts.Charts && len(res.Sequence) > 0 {
		out["charts"] = map[string]string{
			"funnel":      visuals.Fence(visuals.GenerateFunnelChart(res.Sequence)),
			"cumulative":  visuals.Fence(visuals.GenerateCumulativeChart(res.Summary)),
			"utilization": visuals.Fence(visuals.GenerateUtilizationChart(res.Summary)),
		}
	}
	return wrapResponse(out, guidance), nil
}

func (s *Server) handleListHolidays(ctx context.Context, year int) (interface{}, error) {
	if year < 1900 || year > 2200 {
		return nil, apperr.NewInvalidSettingError("year", fmt.Sprint(year), nil)
	}
	holidays, err := s.svc.Holidays(ctx, year)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]string, 0, len(holidays))
	for _, h := range holidays {
		items = append(items, map[string]string{"date": h.Date.Format(calendar.DateLayout), "name": h.Name})
	}
	return wrapResponse(map[string]interface{}{"year": year, "holidays": items}, nil), nil
}

func (s *Server) handleExport(id, fileName string) (interface{}, error) {
	res, ok := s.results.Get(id)
	if !ok {
		return nil, fmt.Errorf("no forecast yet for id %q; call run_capacity_forecast first", id)
	}

	if fileName == "" {
		fileName = export.FileName
	}
	// Exports never leave the export directory.
	fileName = filepath.Base(fileName)
	if !strings.HasSuffix(strings.ToLower(fileName), ".xlsx") {
		fileName += ".xlsx"
	}
	path := filepath.Join(s.opts.ExportDir, fileName)

	if err := os.MkdirAll(s.opts.ExportDir, 0755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create export file: %w", err)
	}
	if err := export.WriteXLSX(f, res.Sequence); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	log.Info().Str("path", path).Int("rows", len(res.Sequence)).Msg("Forecast exported")
	return wrapResponse(map[string]interface{}{"path": path, "rows": len(res.Sequence)}, nil), nil
}
