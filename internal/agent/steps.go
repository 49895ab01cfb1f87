package agent

import (
	"context"
	"fmt"
	"sort"

	"github.com/suka712/inyeon-upstream/internal/engine"
	"github.com/suka712/inyeon-upstream/internal/prompts"
	"github.com/suka712/inyeon-upstream/internal/tools"
)

const generatedEntry = "Generated commit message"

// analyze asks the model to classify the diff and decide whether it needs to
// read more files.
func (a *Agent) analyze(ctx context.Context, st State) (Update, error) {
	prompt, err := prompts.AgentAnalyze(st.Diff)
	if err != nil {
		return Update{}, err
	}
	rec, err := a.backend.Generate(ctx, prompt, true, a.temperature)
	if err != nil {
		return Update{}, err
	}

	analysis := make(map[string]any, len(rec))
	for k, v := range rec {
		analysis[k] = v
	}
	needsContext, _ := rec["needs_context"].(bool)
	files := []string{}
	if needsContext {
		files = stringList(rec["files_to_read"])
	}

	return Update{
		Analysis:     analysis,
		NeedsContext: &needsContext,
		FilesToRead:  files,
		Reasoning:    []string{rec.String("reasoning")},
	}, nil
}

// gatherContext reads every requested file, one at a time, in the order the
// model listed them. Unreadable files keep the tool's error text in their slot.
func (a *Agent) gatherContext(ctx context.Context, st State) (Update, error) {
	contents := make(map[string]string, len(st.FilesToRead))
	for _, path := range st.FilesToRead {
		if err := ctx.Err(); err != nil {
			return Update{}, err
		}
		if _, seen := contents[path]; seen {
			continue
		}
		contents[path] = a.tools.Execute(ctx, st.RepoPath, engine.ToolCall{
			Name: tools.ReadFile,
			Args: map[string]any{"path": path},
		})
	}

	return Update{
		FileContents: contents,
		Reasoning:    []string{fmt.Sprintf("Read %d files for context", len(contents))},
	}, nil
}

// generateCommit writes the commit message from the diff, the analysis and
// any gathered files.
func (a *Agent) generateCommit(ctx context.Context, st State) (Update, error) {
	prompt, err := prompts.AgentCommit(st.Diff, st.Analysis, orderedFiles(st))
	if err != nil {
		return Update{}, err
	}
	rec, err := a.backend.Generate(ctx, prompt, true, a.temperature)
	if err != nil {
		return Update{}, err
	}

	msg, err := commitMessage(rec)
	if err != nil {
		return Update{}, err
	}
	return Update{
		CommitMessage: &msg,
		Reasoning:     []string{generatedEntry},
	}, nil
}

// commitMessage extracts the "message" field. A missing or null field yields "".
func commitMessage(rec engine.Record) (string, error) {
	v, ok := rec["message"]
	if !ok || v == nil {
		return "", nil
	}
	msg, ok := v.(string)
	if !ok {
		return "", &engine.ValidationError{
			Op:       string(StepGenerateCommit),
			Problems: []string{fmt.Sprintf("message must be a string, got %T", v)},
		}
	}
	return msg, nil
}

// orderedFiles lists gathered files in request order, then anything else by path.
func orderedFiles(st State) []prompts.FileContext {
	if len(st.FileContents) == 0 {
		return nil
	}
	files := make([]prompts.FileContext, 0, len(st.FileContents))
	seen := make(map[string]bool, len(st.FileContents))
	for _, path := range st.FilesToRead {
		content, ok := st.FileContents[path]
		if !ok || seen[path] {
			continue
		}
		seen[path] = true
		files = append(files, prompts.FileContext{Path: path, Content: content})
	}

	var rest []string
	for path := range st.FileContents {
		if !seen[path] {
			rest = append(rest, path)
		}
	}
	sort.Strings(rest)
	for _, path := range rest {
		files = append(files, prompts.FileContext{Path: path, Content: st.FileContents[path]})
	}
	return files
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return append([]string{}, ss...)
		}
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
