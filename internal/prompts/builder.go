package prompts

import (
	"fmt"
	"sort"
	"strings"
)

// PromptBuilder fills a registered prompt's placeholders.
type PromptBuilder struct {
	basePrompt *Prompt
	variables  map[string]string
}

// NewPromptBuilder creates a new prompt builder based on a registered prompt.
func NewPromptBuilder(registry *PromptRegistry, id string, version PromptVersion) (*PromptBuilder, error) {
	basePrompt, err := registry.Get(id, version)
	if err != nil {
		return nil, fmt.Errorf("failed to get base prompt: %w", err)
	}

	return &PromptBuilder{
		basePrompt: basePrompt,
		variables:  make(map[string]string),
	}, nil
}

// SetVariable sets a variable for template substitution.
func (b *PromptBuilder) SetVariable(key, value string) *PromptBuilder {
	b.variables[key] = value
	return b
}

// Build constructs the final prompt string.
// Substitution is a single pass, so placeholders that appear inside a
// substituted value (a diff can contain anything) are left alone.
func (b *PromptBuilder) Build() string {
	result := b.basePrompt.Content

	keys := make([]string, 0, len(b.variables))
	for key := range b.variables {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, 2*len(keys))
	for _, key := range keys {
		pairs = append(pairs, "{{"+key+"}}", b.variables[key])
	}
	return strings.NewReplacer(pairs...).Replace(result)
}
