package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/suka712/inyeon-upstream/internal/engine"
)

const (
	opGenerate  = "generate"
	opWithTools = "generate_with_tools"
)

var errInvalidMessage = errors.New("invalid chat message")

// validateMessages rejects a conversation before it is sent to a backend.
func validateMessages(provider string, messages []engine.ChatMessage) error {
	for i, m := range messages {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("%s: %w %d: %w", provider, errInvalidMessage, i, err)
		}
	}
	return nil
}

// decodeRecord turns raw model output into a record. In JSON mode the output
// must be exactly one JSON object.
func decodeRecord(provider, raw string, jsonMode bool) (engine.Record, error) {
	if !jsonMode {
		return engine.Record{"text": raw}, nil
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &rec); err != nil {
		return nil, &engine.BackendError{
			Provider: provider,
			Op:       opGenerate,
			Kind:     engine.KindDecode,
			Err:      fmt.Errorf("response is not a JSON object: %w", err),
		}
	}
	if rec == nil {
		return nil, &engine.BackendError{
			Provider: provider,
			Op:       opGenerate,
			Kind:     engine.KindDecode,
			Err:      errors.New("response is JSON null"),
		}
	}
	return engine.Record(rec), nil
}

// toolParameters decodes a tool's raw JSON schema.
func toolParameters(ts engine.ToolSchema) (map[string]any, error) {
	if strings.TrimSpace(ts.JSONSchema) == "" {
		return map[string]any{"type": "object", "properties": map[string]any{}}, nil
	}
	var schema map[string]any
	if err := json.Unmarshal([]byte(ts.JSONSchema), &schema); err != nil {
		return nil, fmt.Errorf("invalid tool schema JSON for %s: %w", ts.Name, err)
	}
	return schema, nil
}

// decodeArgs parses tool call arguments delivered as a JSON string.
func decodeArgs(raw string) map[string]any {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{"_raw": raw}
	}
	return args
}

// wrapCallError wraps an SDK error, classifying it by status code when the
// SDK exposes one and by message otherwise.
func wrapCallError(provider, op string, status int, err error) error {
	if err == nil {
		return nil
	}
	if status == 0 {
		status = statusFromMessage(err.Error())
	}
	kind := engine.KindStatus
	if status == 0 || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		kind = engine.KindTransport
	}
	return engine.WrapBackendError(provider, op, kind, status, err)
}

// statusFromMessage sniffs an HTTP status out of an SDK error message.
func statusFromMessage(msg string) int {
	msg = strings.ToLower(msg)
	for _, code := range []int{
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusNotFound,
		http.StatusBadRequest,
	} {
		if strings.Contains(msg, fmt.Sprintf("status code: %d", code)) ||
			strings.Contains(msg, fmt.Sprintf("status %d", code)) ||
			strings.Contains(msg, fmt.Sprintf("error %d", code)) ||
			strings.Contains(msg, fmt.Sprintf("code %d", code)) {
			return code
		}
	}
	return 0
}

func ensureToolCalls(calls []engine.ToolCall) []engine.ToolCall {
	if calls == nil {
		return []engine.ToolCall{}
	}
	return calls
}
