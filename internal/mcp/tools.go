package mcp

func (s *Server) listTools() interface{} {
	return map[string]interface{}{"tools": toolDefinitions()}
}

// inputSchema returns the declared argument schema of a tool.
func inputSchema(name string) (map[string]interface{}, bool) {
	for _, t := range toolDefinitions() {
		tool := t.(map[string]interface{})
		if tool["name"] == name {
			return tool["inputSchema"].(map[string]interface{}), true
		}
	}
	return nil, false
}

func toolDefinitions() []interface{} {
	return []interface{}{
		map[string]interface{}{
			"name": "run_capacity_forecast",
			"description": "Forecast how many candidates to invite on each business day of a date range so that expected attendance " +
				"lands as close as possible to the target utilization of the exam hall without ever exceeding its capacity. \n\n" +
				"Weekends and public holidays are skipped. Days flagged 'fallback' had no feasible invitation count and MUST be reported to the user as over-capacity risks.\n" +
				"STRICT GUARDRAIL: DO NOT invent invitation counts yourself if this tool fails; report the error instead.",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"start_date":         map[string]interface{}{"type": "string", "description": "First day of the range (YYYY-MM-DD)."},
					"end_date":           map[string]interface{}{"type": "string", "description": "Last day of the range, inclusive (YYYY-MM-DD)."},
					"max_capacity":       map[string]interface{}{"type": "number", "description": "Optional: Seats in the exam hall. Default: configured capacity."},
					"target_utilization": map[string]interface{}{"type": "number", "description": "Optional: Desired share of seats filled, in (0, 1]. Default: configured target."},
					"locale":             map[string]interface{}{"type": "string", "enum": []string{"en", "tr"}, "description": "Optional: Language of weekday names."},
				},
				"required": []string{"start_date", "end_date"},
			},
		},
		map[string]interface{}{
			"name":        "list_holidays",
			"description": "List the public holidays the forecaster treats as rest days for a given year.",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"year": map[string]interface{}{"type": "integer", "description": "Calendar year, e.g. 2024."},
				},
				"required": []string{"year"},
			},
		},
		map[string]interface{}{
			"name":        "export_forecast",
			"description": "Write a previous forecast to an Excel workbook (sheet 'Tahminler'). Guidance: Call 'run_capacity_forecast' first and pass its 'forecast_id'.",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"forecast_id": map[string]interface{}{"type": "string", "description": "The id returned by run_capacity_forecast."},
					"file_name":   map[string]interface{}{"type": "string", "description": "Optional: File name inside the export directory. Default: tahminler.xlsx"},
				},
				"required": []string{"forecast_id"},
			},
		},
	}
}
