package host

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrSaveRejected is returned when the platform refuses a field write
	ErrSaveRejected = errors.New("save rejected")

	// ErrStoreUnavailable is returned when the configuration store cannot be reached
	ErrStoreUnavailable = errors.New("configuration store unavailable")
)
