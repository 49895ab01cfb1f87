package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileSystem defines the interface for filesystem operations.
// This allows mocking the os package for testing.
type FileSystem interface {
	Stat(name string) (os.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	ReadDir(name string) ([]os.DirEntry, error)
}

// OSFileSystem is the default implementation that uses the os package.
type OSFileSystem struct{}

// NewOSFileSystem creates a new OSFileSystem.
func NewOSFileSystem() *OSFileSystem {
	return &OSFileSystem{}
}

func (fs *OSFileSystem) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

func (fs *OSFileSystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

func (fs *OSFileSystem) ReadDir(name string) ([]os.DirEntry, error) {
	return os.ReadDir(name)
}

// resolvePath joins path onto repoRoot and refuses anything that escapes it,
// including through symlinks inside the repository.
func resolvePath(repoRoot, path string) (string, error) {
	root := filepath.Clean(repoRoot)
	full := filepath.Join(root, path)
	if !within(root, full) {
		return "", fmt.Errorf("path %s is outside repository root", path)
	}

	realRoot, err := evalExisting(root)
	if err != nil {
		return full, nil
	}
	realFull, err := evalExisting(full)
	if err != nil {
		return full, nil
	}
	if !within(realRoot, realFull) {
		return "", fmt.Errorf("path %s is outside repository root", path)
	}
	return full, nil
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// evalExisting resolves symlinks in the longest existing prefix of p and
// re-appends the missing tail, so paths that do not exist yet still resolve.
func evalExisting(p string) (string, error) {
	var tail []string
	for {
		resolved, err := filepath.EvalSymlinks(p)
		if err == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, tail[i])
			}
			return resolved, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(p)
		if parent == p {
			return "", err
		}
		tail = append(tail, filepath.Base(p))
		p = parent
	}
}
