package agent

import "fmt"

// Route is the decision taken after the analyze step.
type Route int

const (
	RouteGatherContext Route = iota + 1
	RouteGenerateCommit
)

func (r Route) String() string {
	switch r {
	case RouteGatherContext:
		return "gather_context"
	case RouteGenerateCommit:
		return "generate_commit"
	default:
		return fmt.Sprintf("Route(%d)", int(r))
	}
}

// ShouldGatherContext picks the next step. Context is gathered only when the
// model asked for it and named at least one file.
func ShouldGatherContext(st State) Route {
	if st.NeedsContext && len(st.FilesToRead) > 0 {
		return RouteGatherContext
	}
	return RouteGenerateCommit
}

// StepName identifies a step in logs, spans and errors.
type StepName string

const (
	StepAnalyze        StepName = "analyze"
	StepGatherContext  StepName = "gather_context"
	StepGenerateCommit StepName = "generate_commit"
)

// Phase is the position of a run in the graph.
type Phase int

const (
	PhaseStart Phase = iota
	PhaseAnalyzed
	PhaseContextGathered
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseStart:
		return "start"
	case PhaseAnalyzed:
		return "analyzed"
	case PhaseContextGathered:
		return "context_gathered"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}
