// Package tools assembles the read-only tools available to workflow runs.
package tools

import (
	"github.com/suka712/inyeon-upstream/internal/engine"
	"github.com/suka712/inyeon-upstream/internal/tools/filesystem"
	"github.com/suka712/inyeon-upstream/internal/tools/vcs"
)

// Tool names.
const (
	ReadFile  = "read_file"
	ListFiles = "list_files"
	GitLog    = "get_git_log"
)

// NewDefaultRegistry builds the process-wide registry backed by the real filesystem.
func NewDefaultRegistry() (*engine.ToolRegistry, error) {
	return NewRegistry(filesystem.NewOSFileSystem())
}

// NewRegistry builds the registry on top of fsys.
func NewRegistry(fsys filesystem.FileSystem) (*engine.ToolRegistry, error) {
	return engine.NewToolRegistry(
		filesystem.NewReadFileTool(fsys),
		filesystem.NewListFilesTool(fsys),
		vcs.NewGitLogTool(),
	)
}
