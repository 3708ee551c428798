package domain

import (
	"fmt"
)

// ErrorKind is the closed set of failure categories a detection can end in.
type ErrorKind int

const (
	// KindInternal covers decode, inference and encoding failures that are
	// not the caller's fault.
	KindInternal ErrorKind = iota
	// KindInvalidImage means the upload did not decode to a raster image.
	KindInvalidImage
	// KindInvalidRequest means the form was missing the file or carried a
	// malformed option.
	KindInvalidRequest
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidImage:
		return "invalid_image"
	case KindInvalidRequest:
		return "invalid_request"
	default:
		return "internal"
	}
}

type AppError struct {
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	StatusCode int       `json:"-"`
	Kind       ErrorKind `json:"-"`
	Err        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Kind:       e.Kind,
		Err:        err,
	}
}

// Is matches any AppError of the same code, so wrapped copies produced by
// WithError still satisfy errors.Is against the catalogue entries.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		StatusCode: 500,
		Kind:       KindInternal,
	}

	ErrInvalidImage = &AppError{
		Code:       "INVALID_IMAGE",
		Message:    "invalid image format",
		StatusCode: 400,
		Kind:       KindInvalidImage,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "request validation failed",
		StatusCode: 400,
		Kind:       KindInvalidRequest,
	}
)
