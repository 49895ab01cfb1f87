package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/suka712/inyeon-upstream/internal/engine"
)

const DefaultAnthropicModel = "claude-3-5-haiku-latest"

const anthropicMaxTokens = 4096

// jsonInstruction is the system prompt used for JSON mode; the assistant turn
// is prefilled with "{" so the reply continues a JSON object.
const jsonInstruction = "Respond with a single valid JSON object and nothing else."

// AnthropicClient calls the Anthropic Messages API.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicClient creates a new Anthropic client. baseURL may be empty.
func NewAnthropicClient(apiKey, modelName, baseURL string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: api key is required")
	}
	if modelName == "" {
		modelName = DefaultAnthropicModel
	}
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &AnthropicClient{
		client: anthropic.NewClient(apiKey, opts...),
		model:  modelName,
	}, nil
}

func (c *AnthropicClient) Name() string { return "anthropic:" + c.model }

// Generate implements engine.Backend.
func (c *AnthropicClient) Generate(ctx context.Context, prompt string, jsonMode bool, temperature float32) (engine.Record, error) {
	temp := temperature
	req := anthropic.MessagesRequest{
		Model: anthropic.Model(c.model),
		Messages: []anthropic.Message{{
			Role:    anthropic.RoleUser,
			Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(prompt)},
		}},
		MaxTokens:   anthropicMaxTokens,
		Temperature: &temp,
	}
	if jsonMode {
		req.MultiSystem = []anthropic.MessageSystemPart{{Type: "text", Text: jsonInstruction}}
		req.Messages = append(req.Messages, anthropic.Message{
			Role:    anthropic.RoleAssistant,
			Content: []anthropic.MessageContent{anthropic.NewTextMessageContent("{")},
		})
	}

	resp, err := c.client.CreateMessages(ctx, req)
	if err != nil {
		return nil, wrapCallError(c.Name(), opGenerate, 0, err)
	}
	text, _ := splitContent(resp)
	if jsonMode {
		text = "{" + text
	}
	return decodeRecord(c.Name(), text, jsonMode)
}

// GenerateWithTools implements engine.Backend.
func (c *AnthropicClient) GenerateWithTools(ctx context.Context, messages []engine.ChatMessage, tools []engine.ToolSchema) (engine.ToolResponse, error) {
	if err := validateMessages(c.Name(), messages); err != nil {
		return engine.ToolResponse{}, err
	}
	var systemParts []anthropic.MessageSystemPart
	var msgs []anthropic.Message
	for _, m := range messages {
		switch m.Role {
		case engine.RoleSystem:
			systemParts = append(systemParts, anthropic.MessageSystemPart{Type: "text", Text: m.Content})
		case engine.RoleAssistant:
			msgs = append(msgs, anthropic.Message{
				Role:    anthropic.RoleAssistant,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(m.Content)},
			})
		default:
			msgs = append(msgs, anthropic.Message{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(m.Content)},
			})
		}
	}

	req := anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		Messages:  msgs,
		MaxTokens: anthropicMaxTokens,
	}
	if len(systemParts) > 0 {
		req.MultiSystem = systemParts
	}
	for _, ts := range tools {
		params, err := toolParameters(ts)
		if err != nil {
			return engine.ToolResponse{}, err
		}
		req.Tools = append(req.Tools, anthropic.ToolDefinition{
			Name:        ts.Name,
			Description: ts.Description,
			InputSchema: params,
		})
	}

	resp, err := c.client.CreateMessages(ctx, req)
	if err != nil {
		return engine.ToolResponse{}, wrapCallError(c.Name(), opWithTools, 0, err)
	}
	text, calls := splitContent(resp)
	return engine.ToolResponse{Content: text, ToolCalls: ensureToolCalls(calls)}, nil
}

// IsHealthy implements engine.Backend with a one-token request.
func (c *AnthropicClient) IsHealthy(ctx context.Context) bool {
	_, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model: anthropic.Model(c.model),
		Messages: []anthropic.Message{{
			Role:    anthropic.RoleUser,
			Content: []anthropic.MessageContent{anthropic.NewTextMessageContent("ping")},
		}},
		MaxTokens: 1,
	})
	return err == nil
}

// splitContent separates text blocks from tool_use blocks.
func splitContent(resp anthropic.MessagesResponse) (string, []engine.ToolCall) {
	var text string
	var calls []engine.ToolCall
	for _, block := range resp.Content {
		switch block.Type {
		case anthropic.MessagesContentTypeText:
			if block.Text != nil {
				text += *block.Text
			}
		case "tool_use":
			if block.MessageContentToolUse == nil || block.Name == "" {
				continue
			}
			args := map[string]any{}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					args = map[string]any{"_raw": string(block.Input)}
				}
			}
			calls = append(calls, engine.ToolCall{ID: block.ID, Name: block.Name, Args: args})
		}
	}
	return text, calls
}
