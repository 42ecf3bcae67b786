package matching

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine's error kinds (spec §7). RunEngineTick
// returns only InputError and ErrReentrant to the caller; the others are
// handled inside the tick and surfaced via the returned result, not a Go
// error value.
var (
	// ErrInvalidInput indicates malformed options or state; the tick does
	// not run.
	ErrInvalidInput = errors.New("matching: invalid input")

	// ErrLocked indicates the process-wide engine lock could not be
	// acquired by a host-side caller (spec §7 "Skipped").
	ErrLocked = errors.New("matching: engine lock held by another tick")

	// ErrReentrant indicates RunEngineTick was called while another
	// RunEngineTick call in the same process was still running, whether
	// recursively or from another goroutine (spec §5).
	ErrReentrant = errors.New("matching: recursive RunEngineTick call")
)

// InputError wraps an InvalidInput violation with the offending field and
// reason, following the teacher's ValidationError (pkg/config/errors.go)
// shape: a sentinel for errors.Is, a struct for field-level detail.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("matching: invalid %s: %s", e.Field, e.Reason)
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

// transientError formats the warning logged for a recovered LLM call
// failure, after which the tick falls back to heuristic scoring instead of
// aborting (spec §7 "TransientDependency"). The "llm:fallback" reasoning
// annotation comes from llmOutcome, not from this type.
type transientError struct {
	Op  string
	Err error
}

func (e *transientError) Error() string {
	return fmt.Sprintf("matching: %s failed, falling back to heuristic: %v", e.Op, e.Err)
}

func (e *transientError) Unwrap() error {
	return e.Err
}
