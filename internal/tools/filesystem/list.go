package filesystem

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
	"github.com/suka712/inyeon-upstream/internal/engine"
)

// MaxListEntries caps how many names list_files returns.
const MaxListEntries = 50

// ListFiles returns up to MaxListEntries entry names of directory, one per
// line. Entries ignored by the repository's .gitignore and .git itself are skipped.
func ListFiles(fsys FileSystem, repoRoot, directory string) string {
	if directory == "" {
		directory = "."
	}
	dirPath, err := resolvePath(repoRoot, directory)
	if err != nil {
		return fmt.Sprintf("Error listing directory: %v", err)
	}

	entries, err := fsys.ReadDir(dirPath)
	if err != nil {
		return fmt.Sprintf("Error listing directory: %v", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	matcher := loadIgnore(fsys, repoRoot)
	names := make([]string, 0, MaxListEntries)
	for _, entry := range entries {
		name := entry.Name()
		if name == ".git" {
			continue
		}
		if matcher != nil {
			relPath := filepath.ToSlash(filepath.Join(directory, name))
			if entry.IsDir() {
				relPath += "/"
			}
			if matcher.MatchesPath(relPath) {
				continue
			}
		}
		names = append(names, name)
		if len(names) == MaxListEntries {
			break
		}
	}
	return strings.Join(names, "\n")
}

// loadIgnore compiles the repository's root .gitignore, if there is one.
func loadIgnore(fsys FileSystem, repoRoot string) *gitignore.GitIgnore {
	data, err := fsys.ReadFile(filepath.Join(repoRoot, ".gitignore"))
	if err != nil {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil
	}
	return gitignore.CompileIgnoreLines(lines...)
}

// NewListFilesTool creates the list_files tool.
func NewListFilesTool(fsys FileSystem) engine.Tool {
	return engine.Tool{
		Name:        "list_files",
		Description: "List files in a directory of the repository.",
		SchemaJSON: `{"type":"object","properties":{
			"directory":{"type":"string","description":"Directory relative to repository root","default":"."}
		}}`,
		Fn: func(ctx context.Context, repoRoot string, args map[string]any) (string, error) {
			directory, _ := args["directory"].(string)
			return ListFiles(fsys, repoRoot, directory), nil
		},
	}
}
