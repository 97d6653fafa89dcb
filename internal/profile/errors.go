package profile

import "errors"

var (
	// ErrValidation marks malformed caller input, reported before any I/O.
	ErrValidation = errors.New("validation error")
	// ErrDataAccess marks a failure retrieving temperature or building stock data.
	ErrDataAccess = errors.New("data access error")

	ErrInvalidConfig = errors.New("invalid profile config")
)
