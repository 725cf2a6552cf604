package domain

import (
	"errors"
	"strings"
)

var (
	// ErrValidation marks malformed, missing, or over-length input.
	ErrValidation = errors.New("validation failed")
	// ErrStateConflict marks an operation the aggregate's current state does not permit.
	ErrStateConflict = errors.New("state conflict")
)

// ValidationError lists every violated constraint of a single operation.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

// Is lets callers match with errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ConflictError reports a state-conflict rejection.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

// Is lets callers match with errors.Is(err, ErrStateConflict).
func (e *ConflictError) Is(target error) bool {
	return target == ErrStateConflict
}

func conflict(reason string) error {
	return &ConflictError{Reason: reason}
}

// problems collects validation failures so operations can report all of them at once.
type problems []string

func (p *problems) add(msg string) {
	*p = append(*p, msg)
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return &ValidationError{Problems: append([]string(nil), p...)}
}
