package agent

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/suka712/inyeon-upstream/internal/agent"

// StepFunc is one step of the workflow. It reads a snapshot of the state and
// returns only the fields it changes.
type StepFunc func(ctx context.Context, st State) (Update, error)

// Graph drives a run from PhaseStart to PhaseDone:
//
//	start -> analyze -> analyzed
//	analyzed -> gather_context -> context_gathered -> generate_commit -> done
//	analyzed -> generate_commit -> done
//
// Each step runs at most once and there is no retry.
type Graph struct {
	Analyze        StepFunc
	GatherContext  StepFunc
	GenerateCommit StepFunc
	Route          func(State) Route
	Hooks          Hooks

	tracer trace.Tracer
}

// Invoke runs the graph. On failure it returns the state as it was when the
// failing step started, so the reasoning log collected so far is preserved.
func (g *Graph) Invoke(ctx context.Context, st State) (State, error) {
	route := g.Route
	if route == nil {
		route = ShouldGatherContext
	}
	tracer := g.tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	phase := PhaseStart
	for phase != PhaseDone {
		var (
			name StepName
			fn   StepFunc
			next Phase
		)
		switch phase {
		case PhaseStart:
			name, fn, next = StepAnalyze, g.Analyze, PhaseAnalyzed
		case PhaseAnalyzed:
			r := route(st)
			g.Hooks.OnRoute(ctx, r, st)
			switch r {
			case RouteGatherContext:
				name, fn, next = StepGatherContext, g.GatherContext, PhaseContextGathered
			case RouteGenerateCommit:
				name, fn, next = StepGenerateCommit, g.GenerateCommit, PhaseDone
			default:
				return st, fmt.Errorf("unknown route %v", r)
			}
		case PhaseContextGathered:
			name, fn, next = StepGenerateCommit, g.GenerateCommit, PhaseDone
		default:
			return st, fmt.Errorf("invalid phase %v", phase)
		}

		if err := g.runStep(ctx, tracer, name, fn, &st); err != nil {
			return st, err
		}
		phase = next
	}
	return st, nil
}

func (g *Graph) runStep(ctx context.Context, tracer trace.Tracer, name StepName, fn StepFunc, st *State) error {
	fail := func(err error) error {
		return &StepError{Step: name, Reasoning: slices.Clone(st.Reasoning), Err: err}
	}
	if fn == nil {
		return fail(fmt.Errorf("step %s is not configured", name))
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	ctx, span := tracer.Start(ctx, "agent.step."+string(name))
	defer span.End()

	g.Hooks.OnStepStart(ctx, name, *st)
	start := time.Now()

	u, err := fn(ctx, st.snapshot())
	if err == nil {
		if len(u.Reasoning) == 0 {
			u.Reasoning = []string{string(name) + " completed"}
		}
		err = st.apply(u)
	}

	g.Hooks.OnStepEnd(ctx, name, *st, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fail(err)
	}
	span.SetAttributes(attribute.Int("agent.reasoning.len", len(st.Reasoning)))
	return nil
}
