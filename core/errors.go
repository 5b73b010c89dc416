package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCancelled reports a cooperative abort requested through the progress
// callback or the request context.
var ErrCancelled = errors.New("orchestration cancelled")

// ValidationError reports an invalid configuration. It is fatal: the
// orchestrator aborts before any worker is created.
type ValidationError struct {
	Message string
	Details string
}

func (e ValidationError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

// DependencyError reports a cycle or an unmet dependency. It is fatal.
type DependencyError struct {
	Message string

	// Cycle holds the worker types forming the offending cycle, if any
	Cycle []WorkerType
}

func (e DependencyError) Error() string {
	if len(e.Cycle) == 0 {
		return e.Message
	}
	names := make([]string, len(e.Cycle))
	for i, wt := range e.Cycle {
		names[i] = string(wt)
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(names, " -> "))
}

// CleanupError reports a failed cleanup pass. It is non-fatal and is
// recorded as a warning on the orchestration response.
type CleanupError struct {
	Message string
	Err     error
}

func (e CleanupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e CleanupError) Unwrap() error {
	return e.Err
}

// CreationError reports a failed worker instantiation. It isolates that
// worker to a FAILED status without aborting the batch.
type CreationError struct {
	Worker WorkerType
	Err    error
}

func (e CreationError) Error() string {
	return fmt.Sprintf("creating %s worker: %v", e.Worker, e.Err)
}

func (e CreationError) Unwrap() error {
	return e.Err
}

// ThreadError reports a failed thread create/move/start/stop step,
// including startup timeouts. It isolates that worker to FAILED.
type ThreadError struct {
	Worker WorkerType
	Op     string
	Err    error
}

func (e ThreadError) Error() string {
	return fmt.Sprintf("%s thread for %s worker: %v", e.Op, e.Worker, e.Err)
}

func (e ThreadError) Unwrap() error {
	return e.Err
}

// SignalError reports failed signal wiring. It isolates that worker to FAILED.
type SignalError struct {
	Worker WorkerType
	Err    error
}

func (e SignalError) Error() string {
	return fmt.Sprintf("connecting signals for %s worker: %v", e.Worker, e.Err)
}

func (e SignalError) Unwrap() error {
	return e.Err
}
