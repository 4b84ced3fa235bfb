package docgo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/docgo/index"
	"github.com/hupe1980/docgo/internal/fieldcodec"
	"github.com/hupe1980/docgo/internal/journal"
)

var (
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("collection is closed")

	// ErrValidation matches every *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")

	// ErrCollectionExists is returned when creating a collection that already exists.
	ErrCollectionExists = errors.New("collection already exists")

	// ErrCollectionNotFound is returned when opening a missing collection.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrDuplicateID is reported by exports for every live document after the
	// first that shares its id.
	ErrDuplicateID = errors.New("duplicate document id")

	// ErrLocked is returned when another handle holds the collection open.
	ErrLocked = index.ErrLocked
)

// ValidationError reports an invalid or unsafe argument.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ValidationError struct {
	Field  string
	Reason string
	cause  error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.cause }

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// CorruptRecordError indicates a stored record whose pristine document is
// missing or cannot be deserialized.
//
// The original underlying error can be accessed via errors.Unwrap.
type CorruptRecordError struct {
	InternalID uint32
	cause      error
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt record %d: %v", e.InternalID, e.cause)
}

func (e *CorruptRecordError) Unwrap() error { return e.cause }

// ExportPartialFailure is returned by exports that could not write every
// document. All documents were attempted.
type ExportPartialFailure struct {
	// FailedIDs holds the ids of the documents that were not written.
	// Documents without a string id appear as "#<internal id>".
	FailedIDs []string
	// Written is the number of documents exported successfully.
	Written int
	// Errors holds one error per failed document.
	Errors []error
}

func (e *ExportPartialFailure) Error() string {
	return fmt.Sprintf("export incomplete: %d written, %d failed", e.Written, len(e.FailedIDs))
}

func (e *ExportPartialFailure) Unwrap() []error { return e.Errors }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, index.ErrClosed) || errors.Is(err, journal.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}

	var fe *fieldcodec.FieldError
	if errors.As(err, &fe) {
		return &ValidationError{Field: fe.Field, Reason: fe.Reason, cause: err}
	}

	return err
}
