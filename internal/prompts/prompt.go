package prompts

// PromptVersion represents a version identifier for prompts.
type PromptVersion string

const (
	// PromptV1 is the first version of prompts.
	PromptV1 PromptVersion = "1.0.0"
)

// Prompt represents a versioned prompt template.
// Content may contain {{key}} placeholders filled in by a PromptBuilder.
type Prompt struct {
	ID      string        // e.g. "agent.analyze"
	Version PromptVersion // Version of this prompt
	Content string        // The template text
}
