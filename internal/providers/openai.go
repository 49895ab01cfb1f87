package providers

import (
	"context"
	"fmt"

	"github.com/suka712/inyeon-upstream/internal/engine"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient targets any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	baseURL string
}

// NewOpenAIClient creates a new OpenAI client. baseURL selects an
// OpenAI-compatible server and may be empty.
func NewOpenAIClient(apiKey, modelName, baseURL string) (*OpenAIClient, error) {
	if apiKey == "" && baseURL == "" {
		return nil, fmt.Errorf("openai: api key is required")
	}
	if modelName == "" {
		modelName = DefaultOpenAIModel
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(config),
		model:   modelName,
		baseURL: baseURL,
	}, nil
}

func (c *OpenAIClient) Name() string { return "openai:" + c.model }

// Generate implements engine.Backend. JSON mode uses the json_object response format.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, jsonMode bool, temperature float32) (engine.Record, error) {
	temp := temperature
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
		Temperature: &temp,
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, wrapCallError(c.Name(), opGenerate, 0, err)
	}
	if len(resp.Choices) == 0 {
		return nil, &engine.BackendError{Provider: c.Name(), Op: opGenerate, Kind: engine.KindDecode, Err: fmt.Errorf("empty response")}
	}
	return decodeRecord(c.Name(), resp.Choices[0].Message.Content, jsonMode)
}

// GenerateWithTools implements engine.Backend.
func (c *OpenAIClient) GenerateWithTools(ctx context.Context, messages []engine.ChatMessage, tools []engine.ToolSchema) (engine.ToolResponse, error) {
	if err := validateMessages(c.Name(), messages); err != nil {
		return engine.ToolResponse{}, err
	}
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case engine.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case engine.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	req := openai.ChatCompletionRequest{Model: c.model, Messages: msgs}
	for _, ts := range tools {
		params, err := toolParameters(ts)
		if err != nil {
			return engine.ToolResponse{}, err
		}
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        ts.Name,
				Description: ts.Description,
				Parameters:  params,
			},
		})
	}
	if len(req.Tools) > 0 {
		req.ToolChoice = "auto"
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return engine.ToolResponse{}, wrapCallError(c.Name(), opWithTools, 0, err)
	}
	if len(resp.Choices) == 0 {
		return engine.ToolResponse{}, &engine.BackendError{Provider: c.Name(), Op: opWithTools, Kind: engine.KindDecode, Err: fmt.Errorf("empty response")}
	}

	choice := resp.Choices[0]
	calls := make([]engine.ToolCall, 0, len(choice.Message.ToolCalls))
	for _, tc := range choice.Message.ToolCalls {
		calls = append(calls, engine.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: decodeArgs(tc.Function.Arguments),
		})
	}
	return engine.ToolResponse{Content: choice.Message.Content, ToolCalls: calls}, nil
}

// IsHealthy implements engine.Backend by listing models.
func (c *OpenAIClient) IsHealthy(ctx context.Context) bool {
	_, err := c.client.ListModels(ctx)
	return err == nil
}
