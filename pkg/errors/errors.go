// Package errors provides standardized error types for the operation gateway.
package errors

import (
	"errors"
	"fmt"
)

// Error codes surfaced at the gateway boundary.
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeSyntaxError          = "SYNTAX_ERROR"
	CodeEmptyQuery           = "EMPTY_QUERY"
	CodeUnsupportedOperation = "UNSUPPORTED_OPERATION"
	CodeOperationNotAllowed  = "OPERATION_NOT_ALLOWED"
	CodeConfirmationRequired = "CONFIRMATION_REQUIRED"
	CodeExecutionFailed      = "EXECUTION_FAILED"
	CodeNotFound             = "NOT_FOUND"
	CodeUnavailable          = "UNAVAILABLE"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeInternal             = "INTERNAL_ERROR"
)

// Detail keys attached to gate and execution errors.
const (
	DetailRiskLevel      = "risk_level"
	DetailConfirmationID = "confirmation_id"
	DetailStatementIndex = "statement_index"
	DetailPosition       = "position"
)

// Error represents a gateway error with code, message, and optional details.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements error comparison by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail adds a single detail to the error.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with the given code and message.
func New(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with a formatted message.
func Newf(code, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with a coded Error.
func Wrap(err error, code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// OperationNotAllowed builds the boundary error for a denied operation.
func OperationNotAllowed(riskLevel, reason string) *Error {
	return New(CodeOperationNotAllowed, reason).WithDetail(DetailRiskLevel, riskLevel)
}

// ConfirmationRequired builds the boundary error for an operation that needs
// a confirmation token. Callers resubmit the identical operation together
// with the returned confirmation id.
func ConfirmationRequired(confirmationID, riskLevel, description string) *Error {
	return New(CodeConfirmationRequired, description).
		WithDetail(DetailConfirmationID, confirmationID).
		WithDetail(DetailRiskLevel, riskLevel)
}

// SyntaxError builds the error for malformed SQL, carrying the byte offset
// of the offending construct.
func SyntaxError(position int, message string) *Error {
	return New(CodeSyntaxError, message).WithDetail(DetailPosition, position)
}

// ConfirmationID extracts the confirmation id carried by a
// CONFIRMATION_REQUIRED error, if any.
func ConfirmationID(err error) (string, bool) {
	var gateErr *Error
	if !errors.As(err, &gateErr) || gateErr.Code != CodeConfirmationRequired {
		return "", false
	}
	id, ok := gateErr.Details[DetailConfirmationID].(string)
	return id, ok
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsOperationNotAllowed checks if an error is a deny decision.
func IsOperationNotAllowed(err error) bool {
	return HasCode(err, CodeOperationNotAllowed)
}

// IsConfirmationRequired checks if an error is a needs-confirmation decision.
func IsConfirmationRequired(err error) bool {
	return HasCode(err, CodeConfirmationRequired)
}

// IsInvalidRequest checks if an error is an invalid request error.
func IsInvalidRequest(err error) bool {
	return HasCode(err, CodeInvalidRequest)
}

// HasCode checks whether err carries the given gateway error code.
func HasCode(err error, code string) bool {
	var gateErr *Error
	if errors.As(err, &gateErr) {
		return gateErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error.
func GetCode(err error) string {
	var gateErr *Error
	if errors.As(err, &gateErr) {
		return gateErr.Code
	}
	return CodeInternal
}

// GetMessage extracts the error message from an error.
func GetMessage(err error) string {
	var gateErr *Error
	if errors.As(err, &gateErr) {
		return gateErr.Message
	}
	return err.Error()
}
