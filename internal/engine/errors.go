package engine

import (
	"context"
	"errors"
	"fmt"
)

// Severity classifies how far an error's blast radius reaches. Structural
// problems (unreadable file, malformed tree) spoil one file; annotator
// transport failures spoil the run, since every later batch would hit the
// same wall.
type Severity int

const (
	// SeverityFile: skip the file and keep the run going.
	SeverityFile Severity = iota
	// SeverityRun: abort the whole run.
	SeverityRun
)

// BatchError wraps a failed batch dispatch with its position in the plan.
type BatchError struct {
	ID   int
	Line int // highest line in the batch, to locate the failure in the source
	Err  error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("engine: batch %d (through line %d): %v", e.ID, e.Line, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Classify maps an error to its severity. Every failure path funnels
// through here, so run-versus-file policy lives in one place.
func Classify(err error) Severity {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return SeverityRun
	}
	var batchErr *BatchError
	if errors.As(err, &batchErr) {
		return SeverityRun
	}
	return SeverityFile
}
