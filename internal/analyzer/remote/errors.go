package remote

import "errors"

var (
	ErrUnavailable     = errors.New("upstream detection service unavailable")
	ErrTimeout         = errors.New("upstream detection request timeout")
	ErrInvalidResponse = errors.New("invalid response from upstream detection service")
)
