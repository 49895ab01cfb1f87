package engine

import (
	"context"
	"fmt"
)

// DefaultTemperature is the sampling temperature used when a caller does not pick one.
const DefaultTemperature float32 = 0.3

// Record is a decoded JSON object returned by a backend in JSON mode.
// In text mode it holds a single "text" key.
type Record map[string]any

// String returns the string value stored under key, or "" when it is absent or not a string.
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// MessageRole represents the role of a chat message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ChatMessage is the provider-agnostic message passed to tool-augmented calls.
type ChatMessage struct {
	Role    MessageRole
	Content string
}

// Validate checks if the ChatMessage is valid.
func (m ChatMessage) Validate() error {
	switch m.Role {
	case RoleSystem, RoleUser, RoleAssistant:
	default:
		return fmt.Errorf("invalid message role: %s", m.Role)
	}
	return nil
}

// ToolCall represents a function/tool the model requested.
type ToolCall struct {
	ID   string // Provider-specific call ID, empty when the provider has none
	Name string
	Args map[string]any
}

// ToolSchema is the JSON schema the provider expects for function calling.
type ToolSchema struct {
	Name        string
	Description string
	JSONSchema  string // raw JSON object schema
}

// ToolResponse is the normalized result of a tool-augmented call.
// ToolCalls is never nil.
type ToolResponse struct {
	Content   string
	ToolCalls []ToolCall
}

// Backend is the capability every model-serving adapter implements.
// Implementations must be safe for concurrent use by independent runs.
type Backend interface {
	// Generate sends a single prompt. With jsonMode the raw output must decode
	// as a JSON object, otherwise a *BackendError is returned. Without jsonMode
	// the raw output is returned as {"text": raw}.
	Generate(ctx context.Context, prompt string, jsonMode bool, temperature float32) (Record, error)
	// GenerateWithTools sends a conversation together with the tools the model may call.
	GenerateWithTools(ctx context.Context, messages []ChatMessage, tools []ToolSchema) (ToolResponse, error)
	// IsHealthy is a liveness probe. It never panics; failures report false.
	IsHealthy(ctx context.Context) bool
}

// Named is implemented by backends that can report a provider/model label.
type Named interface {
	Name() string
}

// BackendName returns b's label when it has one.
func BackendName(b Backend) string {
	if n, ok := b.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", b)
}
