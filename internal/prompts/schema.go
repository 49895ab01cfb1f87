package prompts

import (
	"fmt"

	"github.com/suka712/inyeon-upstream/internal/engine"
	"github.com/xeipuuv/gojsonschema"
)

// AnalysisSchema is the shape expected from the standalone analyze prompt.
const AnalysisSchema = `{
	"type": "object",
	"required": ["summary", "impact"],
	"properties": {
		"summary": {"type": "string"},
		"impact": {"type": "string", "enum": ["low", "medium", "high"]},
		"categories": {"type": "array", "items": {"type": "string"}},
		"breaking_changes": {"type": "array", "items": {"type": "string"}},
		"security_concerns": {"type": "array", "items": {"type": "string"}},
		"files_changed": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["path", "change_type", "summary"],
				"properties": {
					"path": {"type": "string"},
					"change_type": {"type": "string"},
					"summary": {"type": "string"}
				}
			}
		}
	}
}`

// CommitSchema is the shape expected from the standalone commit prompt.
const CommitSchema = `{
	"type": "object",
	"required": ["message", "type", "subject"],
	"properties": {
		"message": {"type": "string", "minLength": 1},
		"type": {"type": "string"},
		"scope": {"type": ["string", "null"]},
		"subject": {"type": "string"},
		"body": {"type": ["string", "null"]},
		"breaking_change": {"type": ["string", "null"]},
		"issue_refs": {"type": "array", "items": {"type": "string"}}
	}
}`

var (
	analysisLoader = gojsonschema.NewStringLoader(AnalysisSchema)
	commitLoader   = gojsonschema.NewStringLoader(CommitSchema)
)

// ValidateAnalysis checks rec against AnalysisSchema.
func ValidateAnalysis(rec engine.Record) error {
	return validate("analyze", analysisLoader, rec)
}

// ValidateCommit checks rec against CommitSchema.
func ValidateCommit(rec engine.Record) error {
	return validate("generate-commit", commitLoader, rec)
}

func validate(op string, schema gojsonschema.JSONLoader, rec engine.Record) error {
	doc := map[string]any(rec)
	if doc == nil {
		doc = map[string]any{}
	}
	result, err := gojsonschema.Validate(schema, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%s: schema validation failed: %w", op, err)
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return &engine.ValidationError{Op: op, Problems: problems}
}
