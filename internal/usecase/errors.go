package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrMalformedPayload      = errors.New("malformed provider payload")
	ErrSessionClosed         = errors.New("watch session closed")
)
