package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/suka712/inyeon-upstream/internal/agent"
	"github.com/suka712/inyeon-upstream/internal/engine"
	"github.com/suka712/inyeon-upstream/internal/prompts"
)

const runIDHeader = "X-Run-ID"

// AnalyzeRequest is the body of POST /api/v1/analyze.
type AnalyzeRequest struct {
	Diff    string `json:"diff" binding:"required,min=1,max=50000"`
	Context string `json:"context"`
}

// CommitRequest is the body of POST /api/v1/generate-commit.
type CommitRequest struct {
	Diff     string `json:"diff" binding:"required,min=1,max=50000"`
	IssueRef string `json:"issue_ref"`
}

// AgentRunRequest is the body of POST /api/v1/agent/run.
type AgentRunRequest struct {
	Diff     string `json:"diff" binding:"required,min=1,max=50000"`
	RepoPath string `json:"repo_path"`
	Verbose  bool   `json:"verbose"`
	Provider string `json:"provider" binding:"omitempty,oneof=ollama gemini openai anthropic"`
}

// AgentRunResponse is returned by POST /api/v1/agent/run.
type AgentRunResponse struct {
	CommitMessage string         `json:"commit_message"`
	Reasoning     []string       `json:"reasoning,omitempty"`
	Analysis      map[string]any `json:"analysis,omitempty"`
	RunID         string         `json:"run_id"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status       string `json:"status"`
	Provider     string `json:"provider"`
	ModelBackend bool   `json:"model_backend"`
	Version      string `json:"version"`
}

func (s *Server) health(c *gin.Context) {
	ctx := c.Request.Context()
	healthy := false
	if b, err := s.deps.Backends.Get(ctx, ""); err == nil {
		healthy = b.IsHealthy(ctx)
	}
	resp := HealthResponse{
		Status:       "healthy",
		Provider:     s.deps.Config.LLMProvider,
		ModelBackend: healthy,
		Version:      s.deps.Version,
	}
	if !healthy {
		resp.Status = "degraded"
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) analyze(c *gin.Context) {
	var req AnalyzeRequest
	if !bind(c, &req) {
		return
	}
	prompt, err := prompts.Analyze(req.Diff, req.Context)
	if err != nil {
		writeError(c, err)
		return
	}
	s.generate(c, prompt, prompts.ValidateAnalysis)
}

func (s *Server) generateCommit(c *gin.Context) {
	var req CommitRequest
	if !bind(c, &req) {
		return
	}
	prompt, err := prompts.Commit(req.Diff, req.IssueRef)
	if err != nil {
		writeError(c, err)
		return
	}
	s.generate(c, prompt, prompts.ValidateCommit)
}

// generate sends prompt in JSON mode and returns the validated record.
func (s *Server) generate(c *gin.Context, prompt string, validate func(engine.Record) error) {
	ctx := c.Request.Context()
	b, err := s.deps.Backends.Get(ctx, "")
	if err != nil {
		writeError(c, err)
		return
	}
	rec, err := b.Generate(ctx, prompt, true, engine.DefaultTemperature)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := validate(rec); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) runAgent(c *gin.Context) {
	var req AgentRunRequest
	if !bind(c, &req) {
		return
	}
	if req.RepoPath == "" {
		req.RepoPath = "."
	}

	ctx := c.Request.Context()
	b, err := s.deps.Backends.Get(ctx, req.Provider)
	if err != nil {
		writeError(c, err)
		return
	}

	a := agent.New(b, s.deps.Tools,
		agent.WithLogger(s.deps.Logger),
		agent.WithHooks(s.deps.Hooks...),
	)
	res, err := a.Run(ctx, req.Diff, req.RepoPath)
	c.Header(runIDHeader, res.RunID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "run_id": res.RunID})
		return
	}

	resp := AgentRunResponse{CommitMessage: res.CommitMessage, RunID: res.RunID}
	if req.Verbose {
		resp.Reasoning = res.Reasoning
		resp.Analysis = res.Analysis
	}
	c.JSON(http.StatusOK, resp)
}

// bind decodes the JSON body into req, answering 422 on failure.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// statusFor maps an error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case engine.IsValidationError(err):
		return http.StatusBadGateway
	case engine.IsBackendError(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, agent.ErrEmptyDiff):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
