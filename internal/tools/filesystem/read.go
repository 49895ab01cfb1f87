package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"unicode/utf8"

	"github.com/suka712/inyeon-upstream/internal/engine"
)

const (
	// MaxFileChars is the number of characters read_file returns before truncating.
	MaxFileChars = 10000
	// TruncationMarker is appended to truncated content.
	TruncationMarker = "\n... (truncated)"
)

// ReadFile returns the content of path inside repoRoot, or a message
// describing why it could not be read.
func ReadFile(fsys FileSystem, repoRoot, path string) string {
	filePath, err := resolvePath(repoRoot, path)
	if err != nil {
		return fmt.Sprintf("Error reading file: %v", err)
	}

	data, err := fsys.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "Error: File not found: " + path
		}
		return fmt.Sprintf("Error reading file: %v", err)
	}
	if !utf8.Valid(data) {
		return fmt.Sprintf("Error reading file: %s is not valid UTF-8 text", path)
	}
	return Truncate(string(data))
}

// Truncate cuts content to MaxFileChars characters and appends TruncationMarker.
// Content at or under the limit is returned unchanged.
func Truncate(content string) string {
	n := 0
	for i := range content {
		if n == MaxFileChars {
			return content[:i] + TruncationMarker
		}
		n++
	}
	return content
}

// NewReadFileTool creates the read_file tool.
func NewReadFileTool(fsys FileSystem) engine.Tool {
	return engine.Tool{
		Name:        "read_file",
		Description: "Read the contents of a file in the repository.",
		SchemaJSON: `{"type":"object","properties":{
			"path":{"type":"string","description":"Path to the file relative to repository root"}
		},"required":["path"]}`,
		Fn: func(ctx context.Context, repoRoot string, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			return ReadFile(fsys, repoRoot, path), nil
		},
	}
}
