package task

import "errors"

var (
	// ErrInvalidRequest is returned by Submit when the query fails validation.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInternal marks a reasoning fault. The task still delivers a
	// degraded terminal answer alongside it.
	ErrInternal = errors.New("internal error")
	// ErrUnsupportedOperation is returned for cancellation requests.
	ErrUnsupportedOperation = errors.New("unsupported operation")
)
