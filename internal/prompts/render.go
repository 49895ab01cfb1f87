package prompts

import (
	"encoding/json"
	"strings"
)

// FileContext is one gathered file rendered into the commit prompt.
type FileContext struct {
	Path    string
	Content string
}

func build(id string, vars map[string]string) (string, error) {
	b, err := NewPromptBuilder(DefaultRegistry(), id, PromptV1)
	if err != nil {
		return "", err
	}
	for k, v := range vars {
		b.SetVariable(k, v)
	}
	return b.Build(), nil
}

// AgentAnalyze builds the prompt for the workflow's analyze step.
func AgentAnalyze(diff string) (string, error) {
	return build(AgentAnalyzeID, map[string]string{"diff": diff})
}

// AgentCommit builds the prompt for the workflow's commit step. Files are
// rendered in the given order, each under its path.
func AgentCommit(diff string, analysis map[string]any, files []FileContext) (string, error) {
	return build(AgentCommitID, map[string]string{
		"diff":     diff,
		"analysis": renderAnalysis(analysis),
		"context":  renderFiles(files),
	})
}

// Analyze builds the standalone analysis prompt. context is optional.
func Analyze(diff, context string) (string, error) {
	section := ""
	if context != "" {
		section = "\nAdditional context: " + context + "\n"
	}
	return build(AnalyzeID, map[string]string{"diff": diff, "context": section})
}

// Commit builds the standalone commit prompt. issueRef is optional.
func Commit(diff, issueRef string) (string, error) {
	section := ""
	if issueRef != "" {
		section = "\nReference issue: " + issueRef + "\n"
	}
	return build(CommitID, map[string]string{"diff": diff, "issue": section})
}

func renderAnalysis(analysis map[string]any) string {
	if len(analysis) == 0 {
		return "{}"
	}
	out, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out)
}

func renderFiles(files []FileContext) string {
	if len(files) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nRELATED FILES:\n")
	for _, f := range files {
		b.WriteString("\n--- " + f.Path + " ---\n")
		b.WriteString(f.Content)
		b.WriteString("\n")
	}
	return b.String()
}
