package services

import (
	"errors"
	"fmt"
	"strings"

	"facility-backend/apperrors"
)

// StepResult is the outcome of one independent write in a best-effort sequence.
type StepResult struct {
	Step  string `json:"step"`
	Rows  int64  `json:"rows"`
	Error string `json:"error,omitempty"`

	err error
}

func (r StepResult) Failed() bool {
	return r.err != nil
}

func (r StepResult) Err() error {
	return r.err
}

// Steps collects the outcome of every step; a failed step never stops the
// steps after it.
type Steps []StepResult

// Record appends the outcome of a step and returns the rows it touched
// (zero on failure).
func (s *Steps) Record(step string, rows int64, err error) int64 {
	r := StepResult{Step: step, Rows: rows, err: err}
	if err != nil {
		r.Rows = 0
		r.Error = err.Error()
	}
	*s = append(*s, r)
	return r.Rows
}

// Skip records a step that had nothing to do.
func (s *Steps) Skip(step string) {
	*s = append(*s, StepResult{Step: step})
}

// Failed returns the names of the failed steps in execution order.
func (s Steps) Failed() []string {
	var out []string
	for _, r := range s {
		if r.Failed() {
			out = append(out, r.Step)
		}
	}
	return out
}

// Err aggregates every failed step into one PersistenceError, or nil.
func (s Steps) Err(op string) error {
	var errs []error
	var names []string
	for _, r := range s {
		if r.Failed() {
			errs = append(errs, fmt.Errorf("%s: %w", r.Step, r.err))
			names = append(names, r.Step)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &apperrors.PersistenceError{
		Op:  fmt.Sprintf("%s (failed steps: %s)", op, strings.Join(names, ", ")),
		Err: errors.Join(errs...),
	}
}
