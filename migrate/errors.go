package migrate

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoChanges is returned by Generate when the diff between the two
// schemas is empty and there is nothing to write.
var ErrNoChanges = errors.New("prax: no schema changes")

// ErrLocked is returned when the migration lock is already held by another
// connection and the dialect reports that without blocking.
var ErrLocked = errors.New("prax: migration lock is held by another connection")

// ErrNothingToRollback is returned by Rollback when the history is empty.
var ErrNothingToRollback = errors.New("prax: nothing to roll back")

// ChecksumMismatchError reports a migration file whose up-SQL no longer
// matches the checksum recorded when it was applied.
type ChecksumMismatchError struct {
	ID       string // Migration id
	Expected string // Checksum recorded in history
	Actual   string // Checksum of the file on disk
}

// Error returns the error string.
func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("prax: migration %s checksum mismatch: history has %s, file has %s", e.ID, e.Expected, e.Actual)
}

// NewChecksumMismatchError returns a new ChecksumMismatchError.
func NewChecksumMismatchError(id, expected, actual string) *ChecksumMismatchError {
	return &ChecksumMismatchError{ID: id, Expected: expected, Actual: actual}
}

// IsChecksumMismatch returns true if the error is a ChecksumMismatchError.
func IsChecksumMismatch(err error) bool {
	if err == nil {
		return false
	}
	var e *ChecksumMismatchError
	return errors.As(err, &e)
}

// DuplicateIDError reports two migration files sharing one id.
type DuplicateIDError struct {
	ID string
}

// Error returns the error string.
func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("prax: duplicate migration id %q", e.ID)
}

// IsDuplicateID returns true if the error is a DuplicateIDError.
func IsDuplicateID(err error) bool {
	if err == nil {
		return false
	}
	var e *DuplicateIDError
	return errors.As(err, &e)
}

// DataLossError refuses a plan whose diff drops tables or columns without
// explicit permission.
type DataLossError struct {
	Drops []string // Dropped tables and columns, "table users" / "column users.email"
}

// Error returns the error string.
func (e *DataLossError) Error() string {
	return fmt.Sprintf("prax: refusing to drop %s without WithAllowDataLoss", strings.Join(e.Drops, ", "))
}

// NewDataLossError returns a new DataLossError.
func NewDataLossError(drops []string) *DataLossError {
	return &DataLossError{Drops: drops}
}

// IsDataLoss returns true if the error is a DataLossError.
func IsDataLoss(err error) bool {
	if err == nil {
		return false
	}
	var e *DataLossError
	return errors.As(err, &e)
}

// ApplyError reports the migration that failed during apply. Earlier files
// in the same run were recorded as applied; later ones were not attempted.
type ApplyError struct {
	ID  string // Migration id that failed
	Err error  // Underlying execution error
}

// Error returns the error string.
func (e *ApplyError) Error() string {
	return fmt.Sprintf("prax: applying migration %s: %v", e.ID, e.Err)
}

// NewApplyError returns a new ApplyError.
func NewApplyError(id string, err error) *ApplyError {
	return &ApplyError{ID: id, Err: err}
}

// Unwrap returns the underlying error.
func (e *ApplyError) Unwrap() error {
	return e.Err
}

// IsApplyError returns true if the error is an ApplyError.
func IsApplyError(err error) bool {
	if err == nil {
		return false
	}
	var e *ApplyError
	return errors.As(err, &e)
}

// shadowError reports a shadow-database lifecycle failure.
type shadowError struct {
	Op  string // "create", "apply", "drop"
	Err error  // Underlying error
}

// Error returns the error string.
func (e *shadowError) Error() string {
	return fmt.Sprintf("prax: shadow database %s: %v", e.Op, e.Err)
}

// NewShadowError returns a new shadow lifecycle error.
func NewShadowError(op string, err error) *shadowError {
	return &shadowError{Op: op, Err: err}
}

// Unwrap returns the underlying error.
func (e *shadowError) Unwrap() error {
	return e.Err
}

// IsShadowError returns true if the error is a shadow lifecycle error.
func IsShadowError(err error) bool {
	if err == nil {
		return false
	}
	var e *shadowError
	return errors.As(err, &e)
}
