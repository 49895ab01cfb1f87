package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func mockToolFn(ctx context.Context, repoRoot string, args map[string]any) (string, error) {
	if val, ok := args["should_error"]; ok && val.(bool) {
		return "", errors.New("mock error")
	}
	return "success in " + repoRoot, nil
}

func newMockRegistry(t *testing.T) *ToolRegistry {
	t.Helper()
	reg, err := NewToolRegistry(Tool{
		Name:       "mock_tool",
		Fn:         mockToolFn,
		SchemaJSON: `{"type": "object", "properties": {"should_error": {"type": "boolean"}}}`,
	}, Tool{
		Name:       "needs_path",
		Fn:         mockToolFn,
		SchemaJSON: `{"type": "object", "properties": {"path": {"type": "string"}}, "required": ["path"]}`,
	})
	if err != nil {
		t.Fatalf("NewToolRegistry() error = %v", err)
	}
	return reg
}

func TestExecuteTool(t *testing.T) {
	ctx := context.Background()
	reg := newMockRegistry(t)

	tests := []struct {
		name       string
		call       ToolCall
		want       string
		wantPrefix string
	}{
		{
			name: "success",
			call: ToolCall{Name: "mock_tool", Args: map[string]any{"should_error": false}},
			want: "success in /repo",
		},
		{
			name: "nil args are treated as empty",
			call: ToolCall{Name: "mock_tool"},
			want: "success in /repo",
		},
		{
			name: "tool execution error becomes text",
			call: ToolCall{Name: "mock_tool", Args: map[string]any{"should_error": true}},
			want: "Error executing mock_tool: mock error",
		},
		{
			name: "tool not found",
			call: ToolCall{Name: "non_existent_tool", Args: map[string]any{}},
			want: `Error: unknown tool "non_existent_tool"`,
		},
		{
			name:       "missing required argument",
			call:       ToolCall{Name: "needs_path", Args: map[string]any{}},
			wantPrefix: "Error: invalid arguments for needs_path:",
		},
		{
			name:       "wrong argument type",
			call:       ToolCall{Name: "mock_tool", Args: map[string]any{"should_error": "yes"}},
			wantPrefix: "Error: invalid arguments for mock_tool:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reg.Execute(ctx, "/repo", tt.call)
			if tt.wantPrefix != "" {
				if !strings.HasPrefix(got, tt.wantPrefix) {
					t.Errorf("Execute() = %q, want prefix %q", got, tt.wantPrefix)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Execute() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewToolRegistryRejectsBadTools(t *testing.T) {
	noop := func(context.Context, string, map[string]any) (string, error) { return "", nil }

	tests := []struct {
		name  string
		tools []Tool
	}{
		{name: "empty name", tools: []Tool{{Fn: noop}}},
		{name: "missing action", tools: []Tool{{Name: "a"}}},
		{name: "duplicate", tools: []Tool{{Name: "a", Fn: noop}, {Name: "a", Fn: noop}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewToolRegistry(tt.tools...); err == nil {
				t.Error("NewToolRegistry() expected error, got nil")
			}
		})
	}
}

func TestSchemasAreSortedByName(t *testing.T) {
	reg := newMockRegistry(t)
	schemas := reg.Schemas()
	if len(schemas) != 2 {
		t.Fatalf("Schemas() len = %d, want 2", len(schemas))
	}
	if schemas[0].Name != "mock_tool" || schemas[1].Name != "needs_path" {
		t.Errorf("Schemas() order = %s, %s", schemas[0].Name, schemas[1].Name)
	}
	if !strings.Contains(schemas[1].JSONSchema, `"required"`) {
		t.Errorf("Schemas() lost the JSON schema: %s", schemas[1].JSONSchema)
	}
}

func TestBackendErrorHelpers(t *testing.T) {
	base := errors.New("connection refused")
	err := WrapBackendError("ollama", "generate", KindTransport, 0, base)
	if !IsBackendError(err) {
		t.Fatalf("IsBackendError(%v) = false", err)
	}
	if !errors.Is(err, base) {
		t.Error("BackendError does not unwrap to the cause")
	}
	if again := WrapBackendError("gemini", "generate", KindStatus, 500, err); again != err {
		t.Error("WrapBackendError re-wrapped an existing BackendError")
	}
	if WrapBackendError("ollama", "generate", KindTransport, 0, nil) != nil {
		t.Error("WrapBackendError(nil) should be nil")
	}

	status := &BackendError{Provider: "gemini", Op: "generate", Kind: KindStatus, StatusCode: 429, Err: errors.New("slow down")}
	if !status.IsRateLimit() || status.IsAuth() {
		t.Errorf("classification wrong for %v", status)
	}
	if got := status.Error(); got != "gemini generate failed (status 429): slow down" {
		t.Errorf("Error() = %q", got)
	}

	ve := &ValidationError{Op: "analyze", Problems: []string{"summary is required"}}
	if !IsValidationError(ve) || IsBackendError(ve) {
		t.Error("ValidationError must be distinguishable from BackendError")
	}
}

func TestRecordString(t *testing.T) {
	r := Record{"message": "feat: add x", "count": 3}
	if r.String("message") != "feat: add x" {
		t.Errorf("String(message) = %q", r.String("message"))
	}
	if r.String("count") != "" || r.String("missing") != "" {
		t.Error("String() should be empty for non-strings and missing keys")
	}
}
