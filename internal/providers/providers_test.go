package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	genai "google.golang.org/genai"

	"github.com/suka712/inyeon-upstream/internal/engine"
)

// fakeUpstream answers every provider's wire format with the same model text.
func fakeUpstream(t *testing.T, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		var body any
		switch {
		case strings.HasSuffix(r.URL.Path, "/api/generate"):
			body = map[string]any{"model": "m", "response": text, "done": true}
		case strings.HasSuffix(r.URL.Path, "/api/chat"):
			body = map[string]any{"model": "m", "message": map[string]any{"role": "assistant", "content": text}, "done": true}
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			body = map[string]any{
				"id": "chatcmpl-1", "object": "chat.completion", "model": "m",
				"choices": []any{map[string]any{
					"index": 0, "finish_reason": "stop",
					"message": map[string]any{"role": "assistant", "content": text},
				}},
			}
		case strings.HasSuffix(r.URL.Path, "/messages"):
			body = map[string]any{
				"id": "msg_1", "type": "message", "role": "assistant", "model": "m",
				"stop_reason": "end_turn",
				"content":     []any{map[string]any{"type": "text", "text": text}},
				"usage":       map[string]any{"input_tokens": 1, "output_tokens": 1},
			}
		case strings.Contains(r.URL.Path, ":generateContent"):
			body = map[string]any{
				"candidates": []any{map[string]any{
					"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": text}}},
				}},
			}
		default:
			http.NotFound(w, r)
			return
		}
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}))
}

type adapterCase struct {
	name  string
	build func(t *testing.T, url string) engine.Backend
}

func adapters() []adapterCase {
	return []adapterCase{
		{"ollama", func(t *testing.T, url string) engine.Backend {
			return NewOllamaClient(url, "m", 5*time.Second)
		}},
		{"openai", func(t *testing.T, url string) engine.Backend {
			c, err := NewOpenAIClient("key", "m", url+"/v1")
			require.NoError(t, err)
			return c
		}},
		{"anthropic", func(t *testing.T, url string) engine.Backend {
			c, err := NewAnthropicClient("key", "m", url+"/v1")
			require.NoError(t, err)
			return c
		}},
		{"gemini", func(t *testing.T, url string) engine.Backend {
			c, err := NewGeminiClient(context.Background(), "key", "m", url)
			require.NoError(t, err)
			return c
		}},
	}
}

func TestAdaptersRejectNonJSONInJSONMode(t *testing.T) {
	srv := fakeUpstream(t, "sure, here is the analysis")
	defer srv.Close()

	for _, tc := range adapters() {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.build(t, srv.URL).Generate(context.Background(), "prompt", true, 0.3)
			require.Error(t, err)
			var be *engine.BackendError
			require.True(t, errors.As(err, &be), "got %T: %v", err, err)
			assert.Equal(t, engine.KindDecode, be.Kind)
		})
	}
}

func TestAdaptersDecodeJSONObject(t *testing.T) {
	srv := fakeUpstream(t, `{"summary":"adds login","needs_context":false}`)
	defer srv.Close()

	for _, tc := range adapters() {
		if tc.name == "anthropic" {
			continue // the reply continues a prefilled "{"
		}
		t.Run(tc.name, func(t *testing.T) {
			rec, err := tc.build(t, srv.URL).Generate(context.Background(), "prompt", true, 0.3)
			require.NoError(t, err)
			assert.Equal(t, "adds login", rec.String("summary"))
			assert.Equal(t, false, rec["needs_context"])
		})
	}
}

func TestAnthropicPrefillCompletesObject(t *testing.T) {
	srv := fakeUpstream(t, `"message":"feat: add login"}`)
	defer srv.Close()

	c, err := NewAnthropicClient("key", "m", srv.URL+"/v1")
	require.NoError(t, err)
	rec, err := c.Generate(context.Background(), "prompt", true, 0.3)
	require.NoError(t, err)
	assert.Equal(t, "feat: add login", rec.String("message"))
}

func TestAdaptersTextMode(t *testing.T) {
	srv := fakeUpstream(t, "plain words")
	defer srv.Close()

	for _, tc := range adapters() {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := tc.build(t, srv.URL).Generate(context.Background(), "prompt", false, 0.3)
			require.NoError(t, err)
			assert.Equal(t, engine.Record{"text": "plain words"}, rec)
		})
	}
}

func TestAdaptersUnhealthyWhenServerDown(t *testing.T) {
	srv := fakeUpstream(t, "")
	url := srv.URL
	srv.Close()

	for _, tc := range adapters() {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			assert.False(t, tc.build(t, url).IsHealthy(ctx))
		})
	}
}

func TestOllamaStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewOllamaClient(srv.URL, "m", time.Second).Generate(context.Background(), "p", true, 0.3)
	var be *engine.BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, engine.KindStatus, be.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, be.StatusCode)
	assert.Contains(t, be.Error(), "ollama:m generate failed (status 503)")
}

func TestOllamaHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	assert.True(t, NewOllamaClient(srv.URL, "m", time.Second).IsHealthy(context.Background()))
}

func TestOllamaGenerateWithTools(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Tools, 1)
		assert.Equal(t, "read_file", req.Tools[0].Function.Name)
		assert.Equal(t, "system", req.Messages[0].Role)

		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"","tool_calls":[
			{"function":{"name":"read_file","arguments":{"path":"main.go"}}}]}}`))
	}))
	defer srv.Close()

	resp, err := NewOllamaClient(srv.URL, "m", time.Second).GenerateWithTools(context.Background(),
		[]engine.ChatMessage{
			{Role: engine.RoleSystem, Content: "you are a reviewer"},
			{Role: engine.RoleUser, Content: "look at main.go"},
		},
		[]engine.ToolSchema{{
			Name:       "read_file",
			JSONSchema: `{"type":"object","properties":{"path":{"type":"string"}},"required":["path"]}`,
		}},
	)
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "read_file", resp.ToolCalls[0].Name)
	assert.Equal(t, "main.go", resp.ToolCalls[0].Args["path"])
}

func TestOpenAIGenerateWithToolsNoCalls(t *testing.T) {
	srv := fakeUpstream(t, "nothing to call")
	defer srv.Close()

	c, err := NewOpenAIClient("key", "m", srv.URL+"/v1")
	require.NoError(t, err)
	resp, err := c.GenerateWithTools(context.Background(),
		[]engine.ChatMessage{{Role: engine.RoleUser, Content: "hi"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "nothing to call", resp.Content)
	assert.NotNil(t, resp.ToolCalls)
	assert.Empty(t, resp.ToolCalls)
}

var readFileSchema = engine.ToolSchema{
	Name:        "read_file",
	Description: "Read a file",
	JSONSchema:  `{"type":"object","properties":{"path":{"type":"string","description":"file path"}},"required":["path"]}`,
}

// toolUpstream answers a single tool-augmented call with body and records the request.
func toolUpstream(t *testing.T, body string, request *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		if request != nil {
			*request = string(raw)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

func TestGeminiGenerateWithTools(t *testing.T) {
	var request string
	srv := toolUpstream(t, `{"candidates":[{"content":{"role":"model","parts":[
		{"text":"Reading it."},
		{"functionCall":{"id":"call-1","name":"read_file","args":{"path":"main.go"}}}]}}]}`, &request)
	defer srv.Close()

	c, err := NewGeminiClient(context.Background(), "key", "m", srv.URL)
	require.NoError(t, err)
	resp, err := c.GenerateWithTools(context.Background(),
		[]engine.ChatMessage{
			{Role: engine.RoleSystem, Content: "you are a reviewer"},
			{Role: engine.RoleUser, Content: "look at main.go"},
		},
		[]engine.ToolSchema{readFileSchema},
	)
	require.NoError(t, err)
	assert.Equal(t, "Reading it.", resp.Content)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, engine.ToolCall{ID: "call-1", Name: "read_file", Args: map[string]any{"path": "main.go"}}, resp.ToolCalls[0])

	assert.Contains(t, request, "functionDeclarations")
	assert.Contains(t, request, `"read_file"`)
	assert.Contains(t, request, "you are a reviewer")
}

func TestGeminiGenerateWithToolsNoCalls(t *testing.T) {
	srv := toolUpstream(t, `{"candidates":[{"content":{"role":"model","parts":[{"text":"nothing to call"}]}}]}`, nil)
	defer srv.Close()

	c, err := NewGeminiClient(context.Background(), "key", "m", srv.URL)
	require.NoError(t, err)
	resp, err := c.GenerateWithTools(context.Background(),
		[]engine.ChatMessage{{Role: engine.RoleUser, Content: "hi"}}, []engine.ToolSchema{readFileSchema})
	require.NoError(t, err)
	assert.Equal(t, "nothing to call", resp.Content)
	assert.NotNil(t, resp.ToolCalls)
	assert.Empty(t, resp.ToolCalls)
}

func TestToGenaiSchema(t *testing.T) {
	var params map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{
		"type":"object",
		"properties":{
			"path":{"type":"string","description":"file path"},
			"count":{"type":"integer"},
			"mode":{"type":"string","enum":["short","full"]},
			"paths":{"type":"array","items":{"type":"string"}}
		},
		"required":["path"]
	}`), &params))

	s := toGenaiSchema(params)
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"path"}, s.Required)
	require.Len(t, s.Properties, 4)
	assert.Equal(t, genai.TypeString, s.Properties["path"].Type)
	assert.Equal(t, "file path", s.Properties["path"].Description)
	assert.Equal(t, genai.TypeInteger, s.Properties["count"].Type)
	assert.Equal(t, []string{"short", "full"}, s.Properties["mode"].Enum)
	assert.Equal(t, genai.TypeArray, s.Properties["paths"].Type)
	require.NotNil(t, s.Properties["paths"].Items)
	assert.Equal(t, genai.TypeString, s.Properties["paths"].Items.Type)
}

func TestAnthropicGenerateWithTools(t *testing.T) {
	var request string
	srv := toolUpstream(t, `{"id":"msg_1","type":"message","role":"assistant","model":"m","stop_reason":"tool_use",
		"content":[
			{"type":"text","text":"Reading it."},
			{"type":"tool_use","id":"toolu_1","name":"read_file","input":{"path":"main.go"}}],
		"usage":{"input_tokens":1,"output_tokens":1}}`, &request)
	defer srv.Close()

	c, err := NewAnthropicClient("key", "m", srv.URL+"/v1")
	require.NoError(t, err)
	resp, err := c.GenerateWithTools(context.Background(),
		[]engine.ChatMessage{
			{Role: engine.RoleSystem, Content: "you are a reviewer"},
			{Role: engine.RoleUser, Content: "look at main.go"},
		},
		[]engine.ToolSchema{readFileSchema},
	)
	require.NoError(t, err)
	assert.Equal(t, "Reading it.", resp.Content)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, engine.ToolCall{ID: "toolu_1", Name: "read_file", Args: map[string]any{"path": "main.go"}}, resp.ToolCalls[0])

	assert.Contains(t, request, `"input_schema"`)
	assert.Contains(t, request, "you are a reviewer")
}

func TestAnthropicGenerateWithToolsNoCalls(t *testing.T) {
	srv := fakeUpstream(t, "nothing to call")
	defer srv.Close()

	c, err := NewAnthropicClient("key", "m", srv.URL+"/v1")
	require.NoError(t, err)
	resp, err := c.GenerateWithTools(context.Background(),
		[]engine.ChatMessage{{Role: engine.RoleUser, Content: "hi"}}, []engine.ToolSchema{readFileSchema})
	require.NoError(t, err)
	assert.Equal(t, "nothing to call", resp.Content)
	assert.NotNil(t, resp.ToolCalls)
	assert.Empty(t, resp.ToolCalls)
}

func TestAdaptersRejectInvalidRole(t *testing.T) {
	srv := fakeUpstream(t, "unused")
	defer srv.Close()

	for _, tc := range adapters() {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.build(t, srv.URL).GenerateWithTools(context.Background(),
				[]engine.ChatMessage{{Role: "tool", Content: "x"}}, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, errInvalidMessage)
			assert.False(t, countsAsFailure(err))
		})
	}
}

func TestConstructorsRequireCredentials(t *testing.T) {
	_, err := NewOpenAIClient("", "m", "")
	assert.Error(t, err)
	_, err = NewAnthropicClient("", "m", "")
	assert.Error(t, err)
	_, err = NewGeminiClient(context.Background(), "", "m", "")
	assert.Error(t, err)
}

func TestDecodeRecord(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		json    bool
		want    engine.Record
		wantErr bool
	}{
		{"object", ` {"a":1} `, true, engine.Record{"a": float64(1)}, false},
		{"array", `[1,2]`, true, nil, true},
		{"null", `null`, true, nil, true},
		{"prose", `hello`, true, nil, true},
		{"text mode", `hello`, false, engine.Record{"text": "hello"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeRecord("p", tt.raw, tt.json)
			if tt.wantErr {
				assert.True(t, engine.IsBackendError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusFromMessage(t *testing.T) {
	assert.Equal(t, 429, statusFromMessage("error, status code: 429, message: slow down"))
	assert.Equal(t, 401, statusFromMessage("Error 401, Message: bad key"))
	assert.Equal(t, 0, statusFromMessage("connection refused"))
}
