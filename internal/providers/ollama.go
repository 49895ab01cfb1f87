package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/suka712/inyeon-upstream/internal/engine"
)

const (
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "qwen2.5-coder:7b"
)

// OllamaClient talks to a local Ollama server through its native API.
type OllamaClient struct {
	http    *http.Client
	baseURL string
	model   string
}

// NewOllamaClient creates an Ollama client. Timeout bounds each request.
func NewOllamaClient(baseURL, model string, timeout time.Duration) *OllamaClient {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaClient{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
	}
}

func (c *OllamaClient) Name() string { return "ollama:" + c.model }

type ollamaOptions struct {
	Temperature float32 `json:"temperature"`
}

type ollamaGenerateReq struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Format  string        `json:"format,omitempty"`
	Options ollamaOptions `json:"options"`
}

type ollamaGenerateResp struct {
	Response string `json:"response"`
}

type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
}

type ollamaToolCall struct {
	Function struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"function"`
}

type ollamaTool struct {
	Type     string             `json:"type"`
	Function ollamaToolFunction `json:"function"`
}

type ollamaToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type ollamaChatReq struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Tools    []ollamaTool    `json:"tools,omitempty"`
	Stream   bool            `json:"stream"`
}

type ollamaChatResp struct {
	Message ollamaMessage `json:"message"`
}

// Generate implements engine.Backend.
func (c *OllamaClient) Generate(ctx context.Context, prompt string, jsonMode bool, temperature float32) (engine.Record, error) {
	body := ollamaGenerateReq{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  false,
		Options: ollamaOptions{Temperature: temperature},
	}
	if jsonMode {
		body.Format = "json"
	}

	var out ollamaGenerateResp
	if err := c.post(ctx, opGenerate, "/api/generate", body, &out); err != nil {
		return nil, err
	}
	return decodeRecord(c.Name(), out.Response, jsonMode)
}

// GenerateWithTools implements engine.Backend.
func (c *OllamaClient) GenerateWithTools(ctx context.Context, messages []engine.ChatMessage, tools []engine.ToolSchema) (engine.ToolResponse, error) {
	if err := validateMessages(c.Name(), messages); err != nil {
		return engine.ToolResponse{}, err
	}
	req := ollamaChatReq{Model: c.model, Stream: false}
	for _, m := range messages {
		req.Messages = append(req.Messages, ollamaMessage{Role: string(m.Role), Content: m.Content})
	}
	for _, ts := range tools {
		params, err := toolParameters(ts)
		if err != nil {
			return engine.ToolResponse{}, err
		}
		req.Tools = append(req.Tools, ollamaTool{
			Type:     "function",
			Function: ollamaToolFunction{Name: ts.Name, Description: ts.Description, Parameters: params},
		})
	}

	var out ollamaChatResp
	if err := c.post(ctx, opWithTools, "/api/chat", req, &out); err != nil {
		return engine.ToolResponse{}, err
	}

	calls := make([]engine.ToolCall, 0, len(out.Message.ToolCalls))
	for _, tc := range out.Message.ToolCalls {
		args := tc.Function.Arguments
		if args == nil {
			args = map[string]any{}
		}
		calls = append(calls, engine.ToolCall{Name: tc.Function.Name, Args: args})
	}
	return engine.ToolResponse{Content: out.Message.Content, ToolCalls: calls}, nil
}

// IsHealthy implements engine.Backend by listing the server's local models.
func (c *OllamaClient) IsHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

func (c *OllamaClient) post(ctx context.Context, op, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &engine.BackendError{Provider: c.Name(), Op: op, Kind: engine.KindTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &engine.BackendError{
			Provider:   c.Name(),
			Op:         op,
			Kind:       engine.KindStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body))),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &engine.BackendError{Provider: c.Name(), Op: op, Kind: engine.KindDecode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
