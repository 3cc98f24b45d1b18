package shared

import "errors"

// Sentinel errors shared by every layer. Wrap them with fmt.Errorf("%w: ...") and match with errors.Is.
var (
	ErrInvalidConfig = errors.New("invalid configuration")

	ErrAuthFailed       = errors.New("authentication failed")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrTimeout          = errors.New("operation timed out")

	ErrAPIRequest         = errors.New("API request failed")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTutorialNotFound   = errors.New("tutorial not found")

	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingArgument = errors.New("missing required argument")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidFlag     = errors.New("invalid flag value")
)
