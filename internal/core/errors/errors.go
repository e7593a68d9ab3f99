package errors

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations
var (
	// Authentication & Authorization
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrForbidden          = errors.New("action forbidden")
	ErrInvalidRole        = errors.New("invalid role")

	// User validation
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailRequired    = errors.New("email is required")
	ErrEmailInvalid     = errors.New("email format is invalid")
	ErrPasswordTooWeak  = errors.New("password does not meet security requirements")
	ErrPasswordRequired = errors.New("password is required")
	ErrFullNameRequired = errors.New("full name is required")

	// Community & membership
	ErrCommunityIDRequired = errors.New("community ID is required")
	ErrCommunityIDTooLong  = errors.New("community ID exceeds maximum length")
	ErrMembershipNotFound  = errors.New("membership not found")
	ErrMembershipExists    = errors.New("membership already requested")
	ErrNotCommunityMember  = errors.New("not a member of this community")

	// Chat validation
	ErrMessageBodyRequired = errors.New("message body is required")
	ErrMessageBodyTooLong  = errors.New("message body exceeds maximum length")

	// Maintenance validation
	ErrMaintenanceNotFound     = errors.New("maintenance request not found")
	ErrTitleRequired           = errors.New("title is required")
	ErrTitleTooLong            = errors.New("title exceeds maximum length of 255 characters")
	ErrDescriptionTooLong      = errors.New("description exceeds maximum length")
	ErrInvalidPriority         = errors.New("invalid maintenance priority")
	ErrInvalidStatus           = errors.New("invalid maintenance status")
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// Generic
	ErrBadRequest = errors.New("bad request")
	ErrConflict   = errors.New("resource conflict")
)

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewBadRequestError wraps a malformed-input error
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}

// ValidationErrors holds multiple field validation errors
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make(map[string][]string),
	}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d field(s) have errors", len(v.Errors))
}
