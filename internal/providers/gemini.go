package providers

import (
	"context"
	"fmt"
	"strings"

	genai "google.golang.org/genai"

	"github.com/suka712/inyeon-upstream/internal/engine"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

// NewGeminiClient creates a Gemini client. baseURL overrides the API endpoint
// and is empty in production.
func NewGeminiClient(ctx context.Context, apiKey, model, baseURL string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	cfg := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

func (g *GeminiClient) Name() string { return "gemini:" + g.model }

// Generate implements engine.Backend. JSON mode is requested through the
// response MIME type.
func (g *GeminiClient) Generate(ctx context.Context, prompt string, jsonMode bool, temperature float32) (engine.Record, error) {
	temp := temperature
	cfg := &genai.GenerateContentConfig{Temperature: &temp, ResponseMIMEType: "text/plain"}
	if jsonMode {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}},
		cfg,
	)
	if err != nil {
		return nil, wrapCallError(g.Name(), opGenerate, 0, err)
	}
	return decodeRecord(g.Name(), responseText(resp), jsonMode)
}

// GenerateWithTools implements engine.Backend using function declarations.
func (g *GeminiClient) GenerateWithTools(ctx context.Context, messages []engine.ChatMessage, tools []engine.ToolSchema) (engine.ToolResponse, error) {
	if err := validateMessages(g.Name(), messages); err != nil {
		return engine.ToolResponse{}, err
	}
	var system *genai.Content
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		part := &genai.Part{Text: m.Content}
		switch m.Role {
		case engine.RoleSystem:
			system = &genai.Content{Parts: []*genai.Part{part}}
		case engine.RoleUser:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{part}})
		default:
			contents = append(contents, &genai.Content{Role: "model", Parts: []*genai.Part{part}})
		}
	}

	cfg := &genai.GenerateContentConfig{SystemInstruction: system}
	if len(tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(tools))
		for _, ts := range tools {
			params, err := toolParameters(ts)
			if err != nil {
				return engine.ToolResponse{}, err
			}
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        ts.Name,
				Description: ts.Description,
				Parameters:  toGenaiSchema(params),
			})
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return engine.ToolResponse{}, wrapCallError(g.Name(), opWithTools, 0, err)
	}

	out := engine.ToolResponse{Content: responseText(resp), ToolCalls: []engine.ToolCall{}}
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part == nil || part.FunctionCall == nil {
				continue
			}
			args := part.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			out.ToolCalls = append(out.ToolCalls, engine.ToolCall{
				ID:   part.FunctionCall.ID,
				Name: part.FunctionCall.Name,
				Args: args,
			})
		}
	}
	return out, nil
}

// IsHealthy implements engine.Backend with a one-word prompt.
func (g *GeminiClient) IsHealthy(ctx context.Context) bool {
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: "ping"}}}}, nil)
	return err == nil && resp != nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.FunctionCall == nil {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

// toGenaiSchema converts a JSON schema object into genai's schema type.
func toGenaiSchema(m map[string]any) *genai.Schema {
	s := &genai.Schema{}
	switch m["type"] {
	case "object":
		s.Type = genai.TypeObject
	case "string":
		s.Type = genai.TypeString
	case "integer":
		s.Type = genai.TypeInteger
	case "number":
		s.Type = genai.TypeNumber
	case "boolean":
		s.Type = genai.TypeBoolean
	case "array":
		s.Type = genai.TypeArray
	}
	if d, ok := m["description"].(string); ok {
		s.Description = d
	}
	if props, ok := m["properties"].(map[string]any); ok && len(props) > 0 {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if sub, ok := raw.(map[string]any); ok {
				s.Properties[name] = toGenaiSchema(sub)
			}
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		s.Items = toGenaiSchema(items)
	}
	if req, ok := m["required"].([]any); ok {
		for _, r := range req {
			if name, ok := r.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}
	if enum, ok := m["enum"].([]any); ok {
		for _, e := range enum {
			if v, ok := e.(string); ok {
				s.Enum = append(s.Enum, v)
			}
		}
	}
	return s
}
