package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error types let callers branch on the failure class without parsing messages
const (
	TypeValidation        = "validation_error"
	TypeProductNotFound   = "product_not_found"
	TypeInsufficientStock = "insufficient_stock"
	TypeNotFound          = "not_found"
	TypeUnauthorized      = "unauthorized"
	TypeForbidden         = "forbidden"
	TypeConflict          = "conflict"
	TypeBadRequest        = "bad_request"
	TypeInternal          = "internal_error"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code    int          `json:"code"`
	Type    string       `json:"type"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// FieldError represents a validation error for a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

// Is matches AppErrors of the same type, so errors.Is(err, ErrForbidden) works
// for any forbidden error.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// Common errors
var (
	ErrNotFound           = &AppError{Code: http.StatusNotFound, Type: TypeNotFound, Message: "Resource not found"}
	ErrUnauthorized       = &AppError{Code: http.StatusUnauthorized, Type: TypeUnauthorized, Message: "Unauthorized"}
	ErrForbidden          = &AppError{Code: http.StatusForbidden, Type: TypeForbidden, Message: "Forbidden"}
	ErrBadRequest         = &AppError{Code: http.StatusBadRequest, Type: TypeBadRequest, Message: "Bad request"}
	ErrInternalServer     = &AppError{Code: http.StatusInternalServerError, Type: TypeInternal, Message: "Internal server error"}
	ErrConflict           = &AppError{Code: http.StatusConflict, Type: TypeConflict, Message: "Resource already exists"}
	ErrInvalidCredentials = &AppError{Code: http.StatusUnauthorized, Type: TypeUnauthorized, Message: "Invalid email or password"}
	ErrInvalidToken       = &AppError{Code: http.StatusUnauthorized, Type: TypeUnauthorized, Message: "Invalid token"}
)

// NewAppError creates a new application error
func NewAppError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Type:    typeForStatus(code),
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(fieldErrors []FieldError) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Type:    TypeValidation,
		Message: "Validation failed",
		Errors:  fieldErrors,
	}
}

// NewFieldError is a validation error for a single field
func NewFieldError(field, message string) *AppError {
	err := NewValidationError([]FieldError{{Field: field, Message: message}})
	err.Message = message
	return err
}

// NewProductNotFoundError names the cart reference that did not resolve
func NewProductNotFoundError(ref string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Type:    TypeProductNotFound,
		Message: fmt.Sprintf("Product %s not found", ref),
	}
}

// NewInsufficientStockError reports the product, what is left and what was asked for
func NewInsufficientStockError(name string, available, requested int) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Type:    TypeInsufficientStock,
		Message: fmt.Sprintf("Insufficient stock for %s. Available: %d, Requested: %d", name, available, requested),
	}
}

// NewNotFoundError creates a not found error with a custom message
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Type:    TypeNotFound,
		Message: resource + " not found",
	}
}

// NewForbiddenError creates an authorization error with a custom message
func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    http.StatusForbidden,
		Type:    TypeForbidden,
		Message: message,
	}
}

// NewConflictError creates a conflict error with a custom message
func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Type:    TypeConflict,
		Message: message,
	}
}

// NewBadRequestError creates a bad request error with a custom message
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Type:    TypeBadRequest,
		Message: message,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// IsType reports whether err is an AppError of the given type
func IsType(err error, errType string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == errType
}

// GetAppError converts an error to AppError. Unknown errors become a generic
// 500 so internal details are not leaked to clients.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalServer
}

func typeForStatus(code int) string {
	switch code {
	case http.StatusBadRequest:
		return TypeBadRequest
	case http.StatusUnauthorized:
		return TypeUnauthorized
	case http.StatusForbidden:
		return TypeForbidden
	case http.StatusNotFound:
		return TypeNotFound
	case http.StatusConflict:
		return TypeConflict
	}
	return TypeInternal
}
