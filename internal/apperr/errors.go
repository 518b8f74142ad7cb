// Package apperr defines the error taxonomy shared by the delivery core.
// Every error carries the next action a user can take to recover.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Action is the concrete next step offered to the user after a failure.
type Action string

const (
	ActionRetry        Action = "retry"
	ActionReturnToList Action = "return-to-list"
	ActionReload       Action = "reload"
	ActionFixConfig    Action = "fix-config"
	ActionAnswer       Action = "answer"
)

// NotFoundError indicates a missing attempt or assessment component.
type NotFoundError struct {
	Kind string // "attempt" or "component"
	ID   string
	Err  error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %q not found: %v", e.Kind, e.ID, e.Err)
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// Action returns ActionReturnToList.
func (e *NotFoundError) Action() Action { return ActionReturnToList }

// NotFound builds a NotFoundError.
func NotFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// ConfigInvalidError lists every problem found in a rubric configuration.
type ConfigInvalidError struct {
	Problems []string
}

func (e *ConfigInvalidError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid configuration: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid configuration:\n  %s", strings.Join(e.Problems, "\n  "))
}

// Action returns ActionFixConfig.
func (e *ConfigInvalidError) Action() Action { return ActionFixConfig }

// ValidationError describes an answer that fails its question type's
// completeness rule, or a question whose configuration is malformed.
type ValidationError struct {
	QuestionID string
	Rule       string // short identifier, e.g. "min-select", "config"
	Message    string
}

func (e *ValidationError) Error() string {
	if e.QuestionID == "" {
		return fmt.Sprintf("%s: %s", e.Rule, e.Message)
	}
	return fmt.Sprintf("question %q: %s: %s", e.QuestionID, e.Rule, e.Message)
}

// Action returns ActionAnswer.
func (e *ValidationError) Action() Action { return ActionAnswer }

// SubmissionError indicates the scoring boundary rejected or did not
// acknowledge a submission. The attempt stays frozen.
type SubmissionError struct {
	AttemptID string
	Retryable bool
	Err       error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit attempt %q: %v", e.AttemptID, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Action returns ActionRetry.
func (e *SubmissionError) Action() Action { return ActionRetry }

// TimerRaceError reports a timer event for an item that is no longer current.
type TimerRaceError struct {
	Item        int
	CurrentItem int
}

func (e *TimerRaceError) Error() string {
	return fmt.Sprintf("timer event for item %d while item %d is current", e.Item, e.CurrentItem)
}

// Action returns ActionReload.
func (e *TimerRaceError) Action() Action { return ActionReload }

// ActionFor returns the recovery action carried by err, or ActionReload
// when err does not carry one.
func ActionFor(err error) Action {
	var a interface{ Action() Action }
	if errors.As(err, &a) {
		return a.Action()
	}
	return ActionReload
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
