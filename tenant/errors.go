package tenant

import (
	"errors"
	"fmt"
	"time"
)

// ErrPoolClosed is returned by Acquire after the pool manager shut down.
var ErrPoolClosed = errors.New("prax: tenant pool manager is closed")

// NotFoundError is returned when a tenant id cannot be resolved, either
// because the request context carries no tenant or because the loader does
// not know the id.
type NotFoundError struct {
	ID ID
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return "prax: no tenant in context"
	}
	return fmt.Sprintf("prax: tenant %q not found", string(e.ID))
}

// NewNotFoundError returns a NotFoundError for the given tenant id.
func NewNotFoundError(id ID) *NotFoundError {
	return &NotFoundError{ID: id}
}

// IsNotFound reports whether err is a tenant NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// ExpiredError is returned when a tenant resolves but its registration has
// lapsed. Loaders return it to have the runtime cache the absence.
type ExpiredError struct {
	ID ID
	At time.Time
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("prax: tenant %q expired at %s", string(e.ID), e.At.UTC().Format(time.RFC3339))
}

// NewExpiredError returns an ExpiredError for the given tenant id.
func NewExpiredError(id ID, at time.Time) *ExpiredError {
	return &ExpiredError{ID: id, At: at}
}

// IsExpired reports whether err is a tenant ExpiredError.
func IsExpired(err error) bool {
	var e *ExpiredError
	return errors.As(err, &e)
}

// AcquireTimeoutError is returned when a pool acquisition does not complete
// within the configured acquire timeout.
type AcquireTimeoutError struct {
	Tenant ID
	Wait   time.Duration
}

func (e *AcquireTimeoutError) Error() string {
	return fmt.Sprintf("prax: acquiring a connection for tenant %q timed out after %s", string(e.Tenant), e.Wait)
}

// IsAcquireTimeout reports whether err is an AcquireTimeoutError.
func IsAcquireTimeout(err error) bool {
	var e *AcquireTimeoutError
	return errors.As(err, &e)
}
