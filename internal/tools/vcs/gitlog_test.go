package vcs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T, subjects ...string) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	when := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, subject := range subjects {
		name := filepath.Join(dir, "file.txt")
		require.NoError(t, os.WriteFile(name, []byte(subject), 0o644))
		_, err := wt.Add("file.txt")
		require.NoError(t, err)
		_, err = wt.Commit(subject+"\n\nbody line", &git.CommitOptions{
			Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: when.Add(time.Duration(i) * time.Minute)},
		})
		require.NoError(t, err)
	}
	return dir
}

func TestGitLogNewestFirst(t *testing.T) {
	dir := initRepo(t, "feat: one", "fix: two", "chore: three")

	out := GitLog(context.Background(), dir, 2)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Regexp(t, `^[0-9a-f]{7} chore: three$`, lines[0])
	assert.Regexp(t, `^[0-9a-f]{7} fix: two$`, lines[1])
}

func TestGitLogDefaultsCount(t *testing.T) {
	dir := initRepo(t, "a", "b", "c", "d", "e", "f", "g")
	out := GitLog(context.Background(), dir, 0)
	assert.Len(t, strings.Split(out, "\n"), DefaultLogCount)
}

func TestGitLogWithoutHistory(t *testing.T) {
	assert.Equal(t, "No commits found", GitLog(context.Background(), t.TempDir(), 5))

	empty := t.TempDir()
	_, err := git.PlainInit(empty, false)
	require.NoError(t, err)
	assert.Equal(t, "No commits found", GitLog(context.Background(), empty, 5))
}

func TestGitLogTool(t *testing.T) {
	dir := initRepo(t, "feat: one", "fix: two")
	tool := NewGitLogTool()

	out, err := tool.Fn(context.Background(), dir, map[string]any{"count": float64(1)})
	require.NoError(t, err)
	assert.Contains(t, out, "fix: two")
	assert.NotContains(t, out, "feat: one")
}
