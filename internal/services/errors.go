package services

import "errors"

// Handlers map these to HTTP status codes with errors.Is.
var (
	ErrValidation            = errors.New("validation failed")
	ErrNotFound              = errors.New("grievance not found")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrStorage               = errors.New("storage failure")
)
