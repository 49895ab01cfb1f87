// Package vcs exposes read-only repository history to the workflow.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/suka712/inyeon-upstream/internal/engine"
)

// DefaultLogCount is how many commits get_git_log returns when no count is given.
const DefaultLogCount = 5

const noCommits = "No commits found"

// GitLog returns the last count commits reachable from HEAD in `--oneline`
// format, newest first. It never fails: problems are described in the result.
func GitLog(ctx context.Context, repoRoot string, count int) string {
	if count <= 0 {
		count = DefaultLogCount
	}

	repo, err := git.PlainOpenWithOptions(repoRoot, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return noCommits
		}
		return fmt.Sprintf("Error getting git log: %v", err)
	}

	iter, err := repo.Log(&git.LogOptions{Order: git.LogOrderCommitterTime})
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return noCommits
		}
		return fmt.Sprintf("Error getting git log: %v", err)
	}
	defer iter.Close()

	lines := make([]string, 0, count)
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		lines = append(lines, oneline(c))
		if len(lines) == count {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return fmt.Sprintf("Error getting git log: %v", err)
	}
	if len(lines) == 0 {
		return noCommits
	}
	return strings.Join(lines, "\n")
}

func oneline(c *object.Commit) string {
	subject, _, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")
	return c.Hash.String()[:7] + " " + subject
}

// NewGitLogTool creates the get_git_log tool.
func NewGitLogTool() engine.Tool {
	return engine.Tool{
		Name:        "get_git_log",
		Description: "Get recent git commit history.",
		SchemaJSON: `{"type":"object","properties":{
			"count":{"type":"integer","description":"Number of commits to return","default":5,"minimum":1}
		}}`,
		Fn: func(ctx context.Context, repoRoot string, args map[string]any) (string, error) {
			count := DefaultLogCount
			switch v := args["count"].(type) {
			case float64:
				count = int(v)
			case int:
				count = v
			}
			return GitLog(ctx, repoRoot, count), nil
		},
	}
}
