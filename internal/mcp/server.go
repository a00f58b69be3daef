package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"seatcast/internal/cache"
	"seatcast/internal/calendar"
	"seatcast/internal/forecast"
	"seatcast/internal/optimizer"
)

// JSONRPCRequest represents a standard MCP/JSON-RPC request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a standard MCP/JSON-RPC response.
type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

// Forecaster is the part of forecast.Service the tools call into.
type Forecaster interface {
	Forecast(ctx context.Context, req forecast.Request) (*forecast.Result, error)
	Holidays(ctx context.Context, year int) ([]calendar.Holiday, error)
}

// Options configures the tool defaults.
type Options struct {
	Policy    optimizer.CapacityPolicy
	Locale    string
	Charts    bool
	ExportDir string
	Version   string
}

// Server holds the state for the MCP server.
type Server struct {
	svc     Forecaster
	opts    Options
	results *cache.LRUWithTTL[string, *forecast.Result]

	mu  sync.Mutex
	out io.Writer
}

// NewServer creates a new MCP server. Forecasts stay addressable for export
// for one hour.
func NewServer(svc Forecaster, opts Options) *Server {
	if opts.Policy == (optimizer.CapacityPolicy{}) {
		opts.Policy = optimizer.DefaultPolicy()
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	results, _ := cache.NewLRUWithTTL[string, *forecast.Result](32, time.Hour)
	return &Server{svc: svc, opts: opts, results: results}
}

// Serve runs the JSON-RPC loop, one message per line, until in is exhausted
// or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.out = out
	reader := bufio.NewReader(in)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			var req JSONRPCRequest
			if uerr := json.Unmarshal(line, &req); uerr != nil {
				log.Error().Err(uerr).Msg("Failed to unmarshal request")
				s.write(JSONRPCResponse{
					JSONRPC: "2.0",
					Error:   map[string]interface{}{"code": -32700, "message": "Parse error"},
				})
			} else {
				s.handleRequest(ctx, req)
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, req JSONRPCRequest) {
	var result interface{}
	var errRes interface{}

	switch req.Method {
	case "initialize":
		result = map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "seatcast",
				"version": s.opts.Version,
			},
		}
	case "ping":
		result = map[string]interface{}{}
	case "tools/list":
		result = s.listTools()
	case "tools/call":
		result, errRes = s.callTool(ctx, req.Params)
	default:
		errRes = map[string]interface{}{
			"code":    -32601,
			"message": fmt.Sprintf("Method %s not found", req.Method),
		}
	}

	// Notifications carry no id and get no response.
	if req.ID == nil {
		log.Debug().Str("method", req.Method).Msg("Notification received")
		return
	}

	s.write(JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
		Error:   errRes,
	})
}

func (s *Server) write(resp JSONRPCResponse) {
	out, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal response")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "%s\n", out)
}
