package agent

import (
	"errors"
	"fmt"
)

// ErrEmptyDiff is returned when Run is called without a diff.
var ErrEmptyDiff = errors.New("diff must not be empty")

// StepError reports the step that aborted a run together with the reasoning
// log collected before it failed.
type StepError struct {
	Step      StepName
	Reasoning []string
	Err       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
