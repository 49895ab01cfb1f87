package prompts

// Prompt IDs.
const (
	AgentAnalyzeID = "agent.analyze"
	AgentCommitID  = "agent.commit"
	AnalyzeID      = "analyze"
	CommitID       = "commit"
)

const fence = "```"

const analyzeSystem = `You are a senior software engineer analyzing git diffs.
Your task is to explain code changes clearly and identify important implications.`

const commitSystem = `You are an expert at writing git commit messages following the Conventional Commits specification.
Your commit messages are concise, professional, and follow team standards.`

func registerBuiltins(r *PromptRegistry) {
	r.Register(&Prompt{
		ID:      AgentAnalyzeID,
		Version: PromptV1,
		Content: `Analyze this git diff and determine:
1. What files are being changed
2. What kind of changes are being made
3. Whether you need to read any related files for context

Respond in JSON:
{
    "summary": "Brief summary of changes",
    "change_type": "feat|fix|refactor|docs|test|chore",
    "needs_context": true or false,
    "files_to_read": ["path/to/file.py"] or [],
    "reasoning": "Why you need/don't need more context"
}

DIFF:
{{diff}}
`,
	})

	r.Register(&Prompt{
		ID:      AgentCommitID,
		Version: PromptV1,
		Content: `Generate a git commit message following Conventional Commits format.

ANALYSIS:
{{analysis}}

DIFF:
{{diff}}
{{context}}

Respond in JSON:
{
    "type": "feat|fix|refactor|docs|test|chore",
    "scope": "optional scope",
    "subject": "imperative description under 50 chars",
    "body": "optional detailed explanation",
    "message": "full formatted commit message"
}
`,
	})

	r.Register(&Prompt{
		ID:      AnalyzeID,
		Version: PromptV1,
		Content: analyzeSystem + `

Analyze this git diff and provide a structured assessment.
` + fence + `diff
{{diff}}
` + fence + `
{{context}}
Respond with a JSON object in this EXACT format:
{
    "summary": "1-2 sentence overview of what changed functionally",
    "impact": "low|medium|high",
    "categories": ["feat", "fix", "refactor", "security", "perf", "docs", "test", "chore"],
    "breaking_changes": ["list of breaking changes, or empty array"],
    "security_concerns": ["list of security observations, or empty array"],
    "files_changed": [
        {
            "path": "path/to/file",
            "change_type": "added|modified|deleted|renamed",
            "summary": "what changed in this file"
        }
    ]
}

Guidelines:
- impact: low=typos/docs/formatting, medium=logic/features, high=security/breaking/architecture
- Focus on WHAT changed functionally, not line-by-line syntax
- Be concise but specific
- Only include relevant categories (usually 1-2)
- Respond with valid JSON only, no markdown or explanation`,
	})

	r.Register(&Prompt{
		ID:      CommitID,
		Version: PromptV1,
		Content: commitSystem + `

Generate a conventional commit message for this diff.
` + fence + `diff
{{diff}}
` + fence + `
{{issue}}
Respond with a JSON object in this EXACT format:
{
    "message": "full formatted commit message (see format below)",
    "type": "feat|fix|docs|style|refactor|perf|test|build|ci|chore",
    "scope": "affected area or null",
    "subject": "short imperative description",
    "body": "detailed explanation or null",
    "breaking_change": "breaking change description or null",
    "issue_refs": ["#123"]
}

The "message" field should be formatted as:
type(scope): subject

body

BREAKING CHANGE: description (only if applicable)
Refs: #issue (only if provided)

Rules:
- type: feat=new feature, fix=bug fix, docs=documentation, refactor=code restructure, etc.
- scope: optional, indicates affected area (e.g., auth, api, ui)
- subject: imperative mood, lowercase, no period (e.g., "add login validation")
- body: explain WHAT and WHY, not HOW
- Respond with valid JSON only`,
	})
}
