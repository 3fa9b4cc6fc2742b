// errors.go
package navsync

import "errors"

// Remote store failures. Adapters in the remote package wrap their transport
// errors with one of these so callers can classify with errors.Is.
var (
	ErrNotFound     = errors.New("remote file not found")
	ErrConflict     = errors.New("remote revision conflict")
	ErrRateLimited  = errors.New("remote rate limit exceeded")
	ErrUnauthorized = errors.New("remote store unauthorized")
	ErrForbidden    = errors.New("remote store forbidden")
	ErrTransport    = errors.New("remote transport failure")
)

var (
	ErrInvalidInput       = errors.New("invalid input parameters")
	ErrValidation         = errors.New("validation failed")
	ErrKeyNotFound        = errors.New("local key not found")
	ErrSerialization      = errors.New("serialization failed")
	ErrStorageUnavailable = errors.New("storage backend unavailable")
)
