package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"seatcast/internal/apperr"
)

// response is the envelope every tool result is wrapped in.
type response struct {
	Data     interface{} `json:"data"`
	Guidance []string    `json:"guidance,omitempty"`
}

func wrapResponse(data interface{}, guidance []string) response {
	return response{Data: data, Guidance: guidance}
}

// toolError maps a failure onto a JSON-RPC error, keeping the error kind
// visible to the client.
func toolError(err error) map[string]interface{} {
	out := map[string]interface{}{"code": -32000, "message": err.Error()}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		out["data"] = map[string]interface{}{"kind": ae.Kind, "code": ae.Code, "details": ae.Details}
	}
	return out
}

// validateArguments checks tool arguments against the tool's input schema.
func validateArguments(schema, args map[string]interface{}) error {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("invalid arguments: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (s *Server) formatResult(data interface{}) string {
	out, _ := json.MarshalIndent(data, "", "  ")
	return string(out)
}

func asString(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func asInt(v interface{}) int {
	if v == nil {
		return 0
	}
	switch val := v.(type) {
	case float64:
		return int(val)
	case int:
		return val
	case string:
		var res int
		fmt.Sscanf(val, "%d", &res)
		return res
	default:
		return 0
	}
}

// asFloat reports whether v held a usable number.
func asFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
