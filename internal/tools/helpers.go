// Package tools implements the foundry MCP tool handlers.
//
// Each tool is a struct with its dependencies injected via constructor,
// a Definition() that returns the mcp.Tool schema, and a Handle() that
// processes the call. Tools are thin: argument extraction and shaping
// here, semantics in internal/ops.
//
// Results are operation envelopes rendered as indented JSON. A
// validation_status of "incomplete" is workflow guidance for the caller,
// never a failure. Failures the caller can fix (bad input, missing
// documents, selector misses) come back as tool errors carrying the
// message and any candidates; only internal faults propagate as Go
// errors.
package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/foundrymcp/foundry/internal/backend"
)

// envelopeResult renders an operation envelope as an indented JSON tool
// result.
func envelopeResult(env *backend.Envelope) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding envelope: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// resultFromError maps a failed operation onto the tool protocol.
// Classified failures become tool errors the model can read and act on;
// internal faults and unclassified errors propagate.
func resultFromError(err error) (*mcp.CallToolResult, error) {
	var e *backend.Error
	if !errors.As(err, &e) || e.Kind == backend.KindInternal {
		return nil, err
	}
	msg := e.Error()
	if len(e.Candidates) > 0 {
		msg += "\ncandidates: " + strings.Join(e.Candidates, ", ")
	}
	return mcp.NewToolResultError(msg), nil
}

// rawArg returns the named argument as JSON bytes. A string value is
// taken as JSON text; arrays and objects are re-marshaled, so callers
// may pass either form. Missing or blank yields nil.
func rawArg(req mcp.CallToolRequest, key string) ([]byte, error) {
	v, ok := req.GetArguments()[key]
	if !ok || v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok {
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		return []byte(s), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("re-encoding %q: %w", key, err)
	}
	return data, nil
}

// intArg extracts an integer argument, returning defaultVal if the key
// is missing or not a number (JSON numbers arrive as float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}
