package agent

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/suka712/inyeon-upstream/internal/engine"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Result is what a run hands back to its caller.
type Result struct {
	RunID         string
	CommitMessage string
	Reasoning     []string
	Analysis      map[string]any
	FileContents  map[string]string
}

// Agent runs the workflow against one backend and tool registry.
// It holds no per-run state and is safe for concurrent use.
type Agent struct {
	backend     engine.Backend
	tools       *engine.ToolRegistry
	logger      *zap.Logger
	hooks       Hooks
	tracer      trace.Tracer
	temperature float32
	graph       *Graph
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger sets the logger used for step progress.
func WithLogger(l *zap.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

// WithHooks adds hooks that observe every run.
func WithHooks(hs ...Hook) Option {
	return func(a *Agent) { a.hooks = append(a.hooks, hs...) }
}

// WithTemperature overrides the sampling temperature of both model calls.
func WithTemperature(t float32) Option {
	return func(a *Agent) { a.temperature = t }
}

// WithTracer overrides the tracer used for run and step spans.
func WithTracer(t trace.Tracer) Option {
	return func(a *Agent) { a.tracer = t }
}

// New builds an Agent.
func New(backend engine.Backend, tools *engine.ToolRegistry, opts ...Option) *Agent {
	a := &Agent{
		backend:     backend,
		tools:       tools,
		logger:      zap.NewNop(),
		temperature: engine.DefaultTemperature,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.tracer == nil {
		a.tracer = otel.Tracer(tracerName)
	}

	hooks := append(Hooks{LoggerHook{L: a.logger}}, a.hooks...)
	a.graph = &Graph{
		Analyze:        a.analyze,
		GatherContext:  a.gatherContext,
		GenerateCommit: a.generateCommit,
		Route:          ShouldGatherContext,
		Hooks:          hooks,
		tracer:         a.tracer,
	}
	return a
}

// Run executes one workflow for diff against the repository at repoPath
// ("." when empty). On failure the returned Result still carries the
// reasoning and analysis produced before the failing step, but never a
// commit message.
func (a *Agent) Run(ctx context.Context, diff, repoPath string) (Result, error) {
	runID := RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = WithRunID(ctx, runID)
	}
	res := Result{RunID: runID, Reasoning: []string{}}

	if strings.TrimSpace(diff) == "" {
		return res, ErrEmptyDiff
	}
	if repoPath == "" {
		repoPath = "."
	}

	ctx, span := a.tracer.Start(ctx, "agent.run", trace.WithAttributes(
		attribute.String("agent.run_id", runID),
		attribute.String("agent.backend", engine.BackendName(a.backend)),
		attribute.Int("agent.diff.bytes", len(diff)),
	))
	defer span.End()

	final, err := a.graph.Invoke(ctx, NewState(diff, repoPath))
	a.graph.Hooks.OnDone(ctx, final, err)

	res.Reasoning = final.Reasoning
	res.Analysis = final.Analysis
	res.FileContents = final.FileContents
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	if final.CommitMessage != nil {
		res.CommitMessage = *final.CommitMessage
	}
	return res, nil
}
