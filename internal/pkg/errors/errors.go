package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalid      = errors.New("invalid")
	ErrTooMany      = errors.New("too many requests")
	ErrInternal     = errors.New("internal")

	// ErrIndexInconsistency marks an empty index or an embedding identity/dimension mismatch.
	ErrIndexInconsistency = errors.New("index inconsistency")
	// ErrExternalService marks an embedding or chat call that failed after retries.
	ErrExternalService = errors.New("external service failure")
	ErrNotConfirmed    = errors.New("user record not confirmed")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService)
}

func IsIndexInconsistency(err error) bool {
	return errors.Is(err, ErrIndexInconsistency)
}
