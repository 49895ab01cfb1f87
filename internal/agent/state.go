// Package agent runs the diff-to-commit workflow: analyze the diff, optionally
// read related files, then write a conventional commit message.
package agent

import (
	"errors"
	"maps"
	"slices"
)

// State is the record threaded through every step of one run.
// The graph driver owns it; steps only ever see a copy.
type State struct {
	Diff          string
	RepoPath      string
	Analysis      map[string]any // set once, by analyze
	NeedsContext  bool
	FilesToRead   []string
	FileContents  map[string]string
	CommitMessage *string // set once, by generate_commit
	Reasoning     []string
}

// NewState creates the initial state of a run.
func NewState(diff, repoPath string) State {
	return State{
		Diff:         diff,
		RepoPath:     repoPath,
		FilesToRead:  []string{},
		FileContents: map[string]string{},
		Reasoning:    []string{},
	}
}

// Update is the partial result of a step. Nil fields are left untouched.
// Reasoning entries are appended to the log, never substituted for it.
type Update struct {
	Analysis      map[string]any
	NeedsContext  *bool
	FilesToRead   []string
	FileContents  map[string]string
	CommitMessage *string
	Reasoning     []string
}

var (
	errAnalysisSet = errors.New("analysis is already set")
	errMessageSet  = errors.New("commit message is already set")
)

// apply merges u into s. Scalars overwrite, reasoning concatenates.
func (s *State) apply(u Update) error {
	if u.Analysis != nil && s.Analysis != nil {
		return errAnalysisSet
	}
	if u.CommitMessage != nil && s.CommitMessage != nil {
		return errMessageSet
	}

	if u.Analysis != nil {
		s.Analysis = maps.Clone(u.Analysis)
	}
	if u.CommitMessage != nil {
		msg := *u.CommitMessage
		s.CommitMessage = &msg
	}
	if u.NeedsContext != nil {
		s.NeedsContext = *u.NeedsContext
	}
	if u.FilesToRead != nil {
		s.FilesToRead = slices.Clone(u.FilesToRead)
	}
	if u.FileContents != nil {
		s.FileContents = maps.Clone(u.FileContents)
	}
	s.Reasoning = append(s.Reasoning, u.Reasoning...)
	return nil
}

// snapshot returns a copy a step can read without affecting the driver's state.
func (s State) snapshot() State {
	c := s
	c.Analysis = maps.Clone(s.Analysis)
	c.FilesToRead = slices.Clone(s.FilesToRead)
	c.FileContents = maps.Clone(s.FileContents)
	c.Reasoning = slices.Clone(s.Reasoning)
	if s.CommitMessage != nil {
		msg := *s.CommitMessage
		c.CommitMessage = &msg
	}
	return c
}
