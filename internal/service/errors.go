package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound covers missing rows and rows outside the caller's scope.
	ErrNotFound = errors.New("not found")
	// ErrNotConfirmed is returned when a destructive call lacks confirmation.
	ErrNotConfirmed = errors.New("deletion not confirmed")
	// ErrConflict is returned when the current state forbids the change.
	ErrConflict = errors.New("conflict")
	// ErrBadRequest is returned when the request does not apply to the current state.
	ErrBadRequest = errors.New("bad request")
)

// Violation is one failed field constraint.
type Violation struct {
	Property  string `json:"property"`
	Violation string `json:"violation"`
}

// ValidationError lists every violated field constraint of an input.
type ValidationError struct {
	Entity     string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Property+" "+v.Violation)
	}
	return fmt.Sprintf("invalid %s: %s", e.Entity, strings.Join(parts, "; "))
}

// DuplicateError is returned when a beacon fingerprint is already registered
// in the project.
type DuplicateError struct {
	ProjectID uint64
	UUID      string
	Major     string
	Minor     string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("beacon %s/%s/%s already exists in project %d", e.UUID, e.Major, e.Minor, e.ProjectID)
}
