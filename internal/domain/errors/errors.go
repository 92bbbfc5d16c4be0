package errors

import (
	"errors"
	"net/http"
)

// Domain errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrAlreadyExists      = errors.New("resource already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrBadRequest         = errors.New("bad request")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrMissingCredential  = errors.New("api key required")
	ErrInvalidCredential  = errors.New("invalid or inactive api key")
	ErrQuotaExceeded      = errors.New("monthly request limit exceeded")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrDatasetUnavailable = errors.New("dataset unavailable")
	ErrUpstream           = errors.New("upstream request failed")
)

// Error codes
const (
	CodeNotFound           = "ERR_NOT_FOUND"
	CodeConflict           = "ERR_CONFLICT"
	CodeInvalidInput       = "ERR_INVALID_INPUT"
	CodeBadRequest         = "ERR_BAD_REQUEST"
	CodeUnauthorized       = "ERR_UNAUTHORIZED"
	CodeForbidden          = "ERR_FORBIDDEN"
	CodeTooManyRequests    = "ERR_TOO_MANY_REQUESTS"
	CodeInternalError      = "ERR_INTERNAL"
	CodeServiceUnavailable = "ERR_SERVICE_UNAVAILABLE"
	CodeBadGateway         = "ERR_BAD_GATEWAY"
)

// AppError represents application error with HTTP status
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new app error
func NewAppError(status int, code, message string, err error) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func NotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, message, ErrNotFound)
}

func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeInvalidInput, message, ErrInvalidInput)
}

func Conflict(message string) *AppError {
	return NewAppError(http.StatusConflict, CodeConflict, message, ErrAlreadyExists)
}

func Unauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeUnauthorized, message, ErrUnauthorized)
}

func Forbidden(message string) *AppError {
	return NewAppError(http.StatusForbidden, CodeForbidden, message, ErrForbidden)
}

func TooManyRequests(message string) *AppError {
	return NewAppError(http.StatusTooManyRequests, CodeTooManyRequests, message, ErrQuotaExceeded)
}

func ServiceUnavailable(message string, err error) *AppError {
	return NewAppError(http.StatusServiceUnavailable, CodeServiceUnavailable, message, err)
}

func BadGateway(message string, err error) *AppError {
	return NewAppError(http.StatusBadGateway, CodeBadGateway, message, err)
}

func InternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, "internal server error", err)
}

// InternalServerError builds a 500 with a caller supplied message
func InternalServerError(message string) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, message, nil)
}

// NewError creates a new error with a custom message wrapping an existing error
func NewError(message string, err error) error {
	return &AppError{
		Status:  http.StatusBadRequest,
		Code:    CodeBadRequest,
		Message: message,
		Err:     err,
	}
}

// FromDomain maps the auth and quota sentinels to their HTTP shape.
// Unknown errors become a 500.
func FromDomain(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, ErrMissingCredential):
		return NewAppError(http.StatusUnauthorized, CodeUnauthorized, ErrMissingCredential.Error(), err)
	case errors.Is(err, ErrInvalidCredential):
		return NewAppError(http.StatusUnauthorized, CodeUnauthorized, ErrInvalidCredential.Error(), err)
	case errors.Is(err, ErrQuotaExceeded):
		return NewAppError(http.StatusTooManyRequests, CodeTooManyRequests, ErrQuotaExceeded.Error(), err)
	case errors.Is(err, ErrNotFound):
		return NewAppError(http.StatusNotFound, CodeNotFound, "resource not found", err)
	case errors.Is(err, ErrAlreadyExists):
		return NewAppError(http.StatusConflict, CodeConflict, "resource already exists", err)
	case errors.Is(err, ErrInvalidInput):
		return NewAppError(http.StatusBadRequest, CodeInvalidInput, "invalid input", err)
	case errors.Is(err, ErrDatasetUnavailable):
		return NewAppError(http.StatusServiceUnavailable, CodeServiceUnavailable, "no data available", err)
	case errors.Is(err, ErrUpstream):
		return NewAppError(http.StatusBadGateway, CodeBadGateway, "upstream request failed", err)
	default:
		return InternalError(err)
	}
}
