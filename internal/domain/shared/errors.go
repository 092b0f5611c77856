// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrFutureTimestamp = errors.New("timestamp cannot be in the future")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrArchived         = errors.New("entity is archived")

	// Authorization errors
	ErrUnauthenticated = errors.New("not authenticated")
	ErrForbidden       = errors.New("forbidden")

	// Concurrency errors
	ErrLocked                 = errors.New("resource is locked")
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "habit", "gamification", "feed"
	Op      string // Operation that failed, e.g., "Create", "Complete"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Habit domain errors
var (
	ErrHabitNotFound      = NewDomainError("habit", "Find", ErrNotFound, "habit not found")
	ErrHabitAlreadyExists = NewDomainError("habit", "Create", ErrAlreadyExists, "habit already exists")
	ErrHabitArchived      = NewDomainError("habit", "Complete", ErrArchived, "habit is archived")
	ErrHabitNotOwned      = NewDomainError("habit", "Authorize", ErrForbidden, "habit belongs to another user")
	ErrCompletionNotFound = NewDomainError("habit", "Undo", ErrNotFound, "no completion to undo")
	ErrInvalidHabitName   = NewDomainError("habit", "Validate", ErrInvalidInput, "habit name is invalid")
)

// Gamification domain errors
var (
	ErrAchievementNotFound        = NewDomainError("gamification", "Find", ErrNotFound, "achievement not found")
	ErrAchievementAlreadyUnlocked = NewDomainError("gamification", "Unlock", ErrAlreadyExists, "achievement already unlocked")
	ErrInvalidXPAmount            = NewDomainError("gamification", "Award", ErrNegativeValue, "XP amount must be non-negative")
)

// Feed domain errors
var (
	ErrFeedEventExists = NewDomainError("feed", "Emit", ErrAlreadyProcessed, "feed event already exists for this day")
)

// Identity errors
var (
	ErrMissingUserID = NewDomainError("identity", "Require", ErrUnauthenticated, "authenticated user ID is required")
)
