package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

// ToolFunc is the bound action of a tool. repoRoot is the repository the
// current run works against; tools resolve every path relative to it.
type ToolFunc func(ctx context.Context, repoRoot string, args map[string]any) (string, error)

type Tool struct {
	Name        string
	Description string
	SchemaJSON  string
	Fn          ToolFunc
}

// ValidateArgs validates the provided arguments against the tool's JSON schema.
func (t Tool) ValidateArgs(args map[string]any) error {
	if args == nil {
		args = map[string]any{}
	}
	schemaLoader := gojsonschema.NewStringLoader(t.SchemaJSON)
	documentLoader := gojsonschema.NewGoLoader(args)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var errorMsgs []string
		for _, err := range result.Errors() {
			errorMsgs = append(errorMsgs, err.String())
		}
		return &ToolValidationError{
			ToolName: t.Name,
			Errors:   errorMsgs,
		}
	}

	return nil
}

// ToolRegistry is a fixed set of tools keyed by name. It is built once and
// never modified, so it can be shared by concurrent runs.
type ToolRegistry struct {
	tools map[string]Tool
}

// NewToolRegistry builds a registry. Names must be unique and non-empty.
func NewToolRegistry(tools ...Tool) (*ToolRegistry, error) {
	r := &ToolRegistry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if t.Name == "" {
			return nil, errors.New("tool name is required")
		}
		if t.Fn == nil {
			return nil, fmt.Errorf("tool %q has no action", t.Name)
		}
		if _, dup := r.tools[t.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", t.Name)
		}
		if t.SchemaJSON == "" {
			t.SchemaJSON = `{"type":"object","properties":{}}`
		}
		r.tools[t.Name] = t
	}
	return r, nil
}

// Get looks a tool up by name.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in sorted order.
func (r *ToolRegistry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Schemas returns the descriptors handed to a backend for function calling.
func (r *ToolRegistry) Schemas() []ToolSchema {
	s := make([]ToolSchema, 0, len(r.tools))
	for _, name := range r.Names() {
		t := r.tools[name]
		s = append(s, ToolSchema{
			Name:        t.Name,
			Description: t.Description,
			JSONSchema:  t.SchemaJSON,
		})
	}
	return s
}

// Execute runs a tool call and returns its textual result. It never returns an
// error: unknown tools, invalid arguments and failing actions all come back as
// an error message the model can read.
func (r *ToolRegistry) Execute(ctx context.Context, repoRoot string, call ToolCall) string {
	t, ok := r.tools[call.Name]
	if !ok {
		return fmt.Sprintf("Error: unknown tool %q", call.Name)
	}
	if err := t.ValidateArgs(call.Args); err != nil {
		var tv *ToolValidationError
		if errors.As(err, &tv) {
			return tv.Error()
		}
		return (&ToolExecutionError{Tool: t.Name, Err: err}).Error()
	}
	args := call.Args
	if args == nil {
		args = map[string]any{}
	}
	out, err := t.Fn(ctx, repoRoot, args)
	if err != nil {
		return (&ToolExecutionError{Tool: t.Name, Err: err}).Error()
	}
	return out
}
