package posts

import (
	"errors"
	"fmt"
	"strconv"
)

// Sentinel errors for common post operations
var (
	// ErrNotFound is returned when a post id does not reference a live post
	ErrNotFound = errors.New("post not found")

	// ErrInvalidInput is returned for empty or malformed content
	ErrInvalidInput = errors.New("invalid input")

	// ErrIDCollision is returned when an id that is already taken would be assigned again.
	// This is a programming error, never a user error.
	ErrIDCollision = errors.New("post id collision")

	// ErrNoSnapshot is returned by a SnapshotRepository that has nothing saved yet
	ErrNoSnapshot = errors.New("no snapshot saved")
)

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error (%s): %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match validation errors
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsValidationError checks if error is a validation error
func IsValidationError(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr) || errors.Is(err, ErrInvalidInput)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string // e.g., "post"
	ID       string // Resource identifier
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// Unwrap lets errors.Is(err, ErrNotFound) match not found errors
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource, id string) error {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

func postNotFound(id int64) error {
	return NewNotFoundError("post", strconv.FormatInt(id, 10))
}

// IsNotFound checks if error is a not found error
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr) || errors.Is(err, ErrNotFound)
}

// IsCollision checks if error is an id collision
func IsCollision(err error) bool {
	return errors.Is(err, ErrIDCollision)
}
