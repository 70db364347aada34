package apperr

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidDefinition marks a schema document that fails shape validation.
	ErrInvalidDefinition = errors.New("invalid definition")
	// ErrConcurrencyConflict marks a stale expected-version write.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	// ErrInvalidColumnName marks a generated-column name that fails the naming pattern.
	ErrInvalidColumnName = errors.New("invalid column name")
	// ErrUnknownFilter marks a paginate filter that resolves to no generated column.
	ErrUnknownFilter = errors.New("unknown filter column")
)

// DefinitionError reports which field of a submitted schema document is malformed.
type DefinitionError struct {
	Index  int
	Reason string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("invalid definition: field %d: %s", e.Index, e.Reason)
}

func (e *DefinitionError) Unwrap() error { return ErrInvalidDefinition }

// ConflictError carries enough context for the caller to re-read and retry.
type ConflictError struct {
	EntityID uuid.UUID
	Expected uuid.UUID
	Actual   *uuid.UUID
}

func (e *ConflictError) Error() string {
	actual := "none"
	if e.Actual != nil {
		actual = e.Actual.String()
	}
	return fmt.Sprintf("concurrency conflict on %s: expected version %s, current is %s", e.EntityID, e.Expected, actual)
}

func (e *ConflictError) Unwrap() error { return ErrConcurrencyConflict }
