package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Standard error types
var (
	ErrNotFound          = errors.New("resource not found")
	ErrBadRequest        = errors.New("bad request")
	ErrConflict          = errors.New("resource conflict")
	ErrInternal          = errors.New("internal server error")
	ErrValidation        = errors.New("validation error")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrIncompletePick    = errors.New("incomplete pick list")
	ErrNetwork           = errors.New("network error")
)

// Error codes carried on the wire. Clients rebuild AppErrors from them.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeBadRequest        = "BAD_REQUEST"
	CodeConflict          = "CONFLICT"
	CodeInternal          = "INTERNAL_ERROR"
	CodeValidation        = "VALIDATION_ERROR"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeIncompletePick    = "INCOMPLETE_PICK"
	CodeNetwork           = "NETWORK_ERROR"
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil && !isSentinel(e.Err) {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        sentinelFor(code),
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       CodeBadRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       CodeConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       CodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       CodeValidation,
		Message:    validationMessage(details),
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// Invalid is a single-field validation error.
func Invalid(field, reason string) *AppError {
	return Validation(map[string]string{field: reason})
}

// InsufficientStock reports a transfer or pick that exceeds the available cases.
// It is never partially applied.
func InsufficientStock(requested, available int) *AppError {
	return &AppError{
		Err:        ErrInsufficientStock,
		Code:       CodeInsufficientStock,
		Message:    fmt.Sprintf("requested %d cases but only %d available", requested, available),
		StatusCode: http.StatusConflict,
		Details: map[string]string{
			"requested": fmt.Sprint(requested),
			"available": fmt.Sprint(available),
		},
	}
}

// IncompletePick reports a completion attempt on a list with unpicked items.
func IncompletePick(unpickedItemIDs []string) *AppError {
	return &AppError{
		Err:        ErrIncompletePick,
		Code:       CodeIncompletePick,
		Message:    fmt.Sprintf("%d item(s) not picked", len(unpickedItemIDs)),
		StatusCode: http.StatusConflict,
		Details:    map[string]string{"unpicked_items": strings.Join(unpickedItemIDs, ",")},
	}
}

// Network wraps a transport failure talking to a backend.
func Network(err error) *AppError {
	return &AppError{
		Err:        fmt.Errorf("%w: %w", ErrNetwork, err),
		Code:       CodeNetwork,
		Message:    "backend unreachable",
		StatusCode: http.StatusServiceUnavailable,
	}
}

// FromWire rebuilds an AppError from an error envelope received over HTTP.
func FromWire(code, message string, statusCode int, details map[string]string) *AppError {
	if code == "" {
		code = codeForStatus(statusCode)
	}
	return &AppError{
		Err:        sentinelFor(code),
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}

func sentinelFor(code string) error {
	switch code {
	case CodeNotFound:
		return ErrNotFound
	case CodeBadRequest:
		return ErrBadRequest
	case CodeConflict:
		return ErrConflict
	case CodeValidation:
		return ErrValidation
	case CodeInsufficientStock:
		return ErrInsufficientStock
	case CodeIncompletePick:
		return ErrIncompletePick
	case CodeNetwork:
		return ErrNetwork
	default:
		return ErrInternal
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusBadRequest:
		return CodeBadRequest
	case http.StatusConflict:
		return CodeConflict
	default:
		return CodeInternal
	}
}

func isSentinel(err error) bool {
	switch err {
	case ErrNotFound, ErrBadRequest, ErrConflict, ErrInternal, ErrValidation,
		ErrInsufficientStock, ErrIncompletePick:
		return true
	}
	return false
}

func validationMessage(details map[string]string) string {
	if len(details) == 1 {
		for field, reason := range details {
			return fmt.Sprintf("%s: %s", field, reason)
		}
	}
	return "validation failed"
}
