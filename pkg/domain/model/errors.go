package model

import (
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcore/pkg/domain/types"
)

var (
	// ErrValidation is returned for malformed input. The write is aborted.
	ErrValidation = goerr.New("validation failed")

	// ErrOutOfRange is returned when a value falls outside its domain
	ErrOutOfRange = goerr.Wrap(ErrValidation, "value out of range")

	// ErrInvalidTransition is returned when a state change is not in the transition table
	ErrInvalidTransition = goerr.New("invalid state transition")

	// ErrNotFound is returned when a referenced entity does not exist
	ErrNotFound = goerr.New("entity not found")

	// ErrConflict is returned when a compare-and-set write lost against a concurrent writer
	ErrConflict = goerr.New("entity was modified concurrently")

	// ErrStoreWrite is returned when the record store rejects a write
	ErrStoreWrite = goerr.New("failed to write entity")
)

// Context keys for error values
const (
	EntityKindKey = "entity_kind"
	EntityIDKey   = "entity_id"
	VersionKey    = "version"
	ActorKey      = "actor"
	FromStateKey  = "from"
	ToStateKey    = "to"
)

// FieldError describes a problem with one named field
type FieldError struct {
	Field  string
	Reason string
	Cause  error
}

// ValidationError collects field level problems so all of them can be
// reported to the user at once.
type ValidationError struct {
	Fields []FieldError
}

// Add records a problem with a field
func (e *ValidationError) Add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

// AddCause records a problem with a field caused by err
func (e *ValidationError) AddCause(field, reason string, err error) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason, Cause: err})
}

// FieldNames returns the names of the offending fields in order
func (e *ValidationError) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return names
}

// OrNil returns nil when no field problem was recorded
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Is matches the causes of individual fields, e.g. ErrOutOfRange
func (e *ValidationError) Is(target error) bool {
	for _, f := range e.Fields {
		if f.Cause != nil && errors.Is(f.Cause, target) {
			return true
		}
	}
	return false
}

// TransitionError is returned when a state change is rejected. Allowed is
// sorted so the message is stable.
type TransitionError struct {
	Kind    types.EntityKind
	From    string
	To      string
	Allowed []string
}

func (e *TransitionError) Error() string {
	allowed := "none"
	if len(e.Allowed) > 0 {
		allowed = strings.Join(e.Allowed, ", ")
	}
	return "invalid " + e.Kind.String() + " transition from " + e.From + " to " + e.To + " (allowed: " + allowed + ")"
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
