package archive

import "github.com/pkg/errors"

var (
	// ErrStorageUnavailable marks store-level failures. It aborts the
	// current batch; per-record problems never carry it.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrMalformedRecord marks records that cannot be ingested (no primary
	// key field, or a field name that cannot be used as a column). These
	// are counted and skipped, never fatal.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrSchemaNotFound is returned by registry lookups for unseen
	// fingerprints.
	ErrSchemaNotFound = errors.New("schema entry not found")
)

type storageError struct {
	cause error
}

func (e *storageError) Error() string { return "storage unavailable: " + e.cause.Error() }
func (e *storageError) Unwrap() error { return e.cause }
func (e *storageError) Cause() error  { return e.cause }
func (e *storageError) Is(target error) bool {
	return target == ErrStorageUnavailable
}

// storageUnavailable tags err so that errors.Is(err, ErrStorageUnavailable)
// holds while the underlying driver error stays inspectable.
func storageUnavailable(err error) error {
	if err == nil {
		return nil
	}
	return &storageError{cause: err}
}
