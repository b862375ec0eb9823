package fault

import "errors"

var (
	ErrTypeNotFound      = errors.New("type not found")
	ErrUnknownAttribute  = errors.New("unknown attribute")
	ErrInvalidSchema     = errors.New("invalid schema")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrMalformedQuery    = errors.New("malformed query")
	ErrValidationFailed  = errors.New("validation failed")
	ErrUnsupportedDriver = errors.New("unsupported store driver")
)
