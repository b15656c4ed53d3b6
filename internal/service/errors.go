package service

import (
	"errors"
	"fmt"

	"github.com/taskloop/taskloop/internal/domain"
	"github.com/taskloop/taskloop/internal/store"
)

// Sentinel errors for the service layer.
var (
	// ErrTaskNotFound indicates that the task does not exist or is not
	// visible to the requesting user. Ownership mismatches surface as this
	// error at the API so foreign tasks are indistinguishable from missing
	// ones; the store layer logs the distinction.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidCredentials indicates an email/password pair that does not
	// match a registered user.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidRecoveryAnswer indicates a recovery-question answer that
	// does not match the stored hash.
	ErrInvalidRecoveryAnswer = errors.New("invalid recovery answer")

	// ErrEmailExists indicates that the email address is already registered.
	ErrEmailExists = errors.New("email already registered")

	// ErrInvalidStatusFilter indicates an unrecognized status filter value.
	ErrInvalidStatusFilter = fmt.Errorf("%w: unrecognized status filter", domain.ErrValidation)
)

// TaskServiceError wraps errors from the task service with context.
type TaskServiceError struct {
	// Operation is the operation that failed (e.g., "create_task", "list_tasks")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for TaskServiceError.
func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// newTaskServiceError wraps err with operation context. Known sentinel and
// validation errors pass through unwrapped so callers can classify them with
// errors.Is.
func newTaskServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrTaskNotFound) {
		return ErrTaskNotFound
	}
	if errors.Is(err, domain.ErrValidation) || isDomainValidationError(err) {
		return err
	}
	return &TaskServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// isDomainValidationError reports whether err is one of the domain's field
// validation sentinels, which are safe to surface to callers as-is.
func isDomainValidationError(err error) bool {
	for _, sentinel := range []error{
		domain.ErrTitleEmpty,
		domain.ErrTitleTooLong,
		domain.ErrTitleInvalidChars,
		domain.ErrInvalidPriority,
		domain.ErrInvalidFrequency,
		domain.ErrInvalidInterval,
		domain.ErrInvalidWeekday,
		domain.ErrInvalidEndCondition,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
