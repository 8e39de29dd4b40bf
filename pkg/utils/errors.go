package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ResponseCode business error code
type ResponseCode int

const (
	CodeSuccess ResponseCode = 0

	// Request errors
	CodeInvalidParam  ResponseCode = 1001
	CodeNotFound      ResponseCode = 1002
	CodeRateLimited   ResponseCode = 1003
	CodeInternalError ResponseCode = 1004

	// Identity errors
	CodeUnauthenticated ResponseCode = 2001
	CodeForbidden       ResponseCode = 2002

	// Cart errors
	CodeProviderConflict ResponseCode = 3001
	CodeInvalidQuantity  ResponseCode = 3002

	// Request / response ledger errors
	CodeRequestNotFound   ResponseCode = 4001
	CodeRequestClosed     ResponseCode = 4002
	CodeDuplicateBid      ResponseCode = 4003
	CodeSelfBidForbidden  ResponseCode = 4004
	CodeInvalidTransition ResponseCode = 4005

	// Conversation errors
	CodeSelfConversation ResponseCode = 5001

	// Infrastructure errors
	CodeStorageUnavailable ResponseCode = 9001
)

// AppError application error structure
type AppError struct {
	Code    ResponseCode `json:"code"`
	Message string       `json:"message"`
	Data    interface{}  `json:"data,omitempty"`
	Err     error        `json:"-"`
}

// Error implement error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("code: %d, message: %s, error: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("code: %d, message: %s", e.Code, e.Message)
}

// Unwrap implement errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so enriched copies of the
// predefined errors still satisfy errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithData returns a copy of the error carrying extra payload for the caller
func (e *AppError) WithData(data interface{}) *AppError {
	return &AppError{Code: e.Code, Message: e.Message, Data: data, Err: e.Err}
}

// WithMessage returns a copy of the error with a more specific message
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{Code: e.Code, Message: message, Data: e.Data, Err: e.Err}
}

// NewError create new application error
func NewError(code ResponseCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewErrorWithErr create application error with original error
func NewErrorWithErr(code ResponseCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WrapError wrap error
func WrapError(err error, code ResponseCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Predefined errors
var (
	ErrInvalidParam  = NewError(CodeInvalidParam, "invalid parameter")
	ErrNotFound      = NewError(CodeNotFound, "not found")
	ErrRateLimited   = NewError(CodeRateLimited, "rate limit exceeded")
	ErrInternalError = NewError(CodeInternalError, "internal server error")

	ErrUnauthenticated = NewError(CodeUnauthenticated, "authentication required")
	ErrForbidden       = NewError(CodeForbidden, "forbidden")

	ErrProviderConflict = NewError(CodeProviderConflict, "cart already holds services from another provider")
	ErrInvalidQuantity  = NewError(CodeInvalidQuantity, "quantity must be at least 1")

	ErrRequestNotFound   = NewError(CodeRequestNotFound, "request not found")
	ErrRequestClosed     = NewError(CodeRequestClosed, "request is not accepting responses")
	ErrDuplicateBid      = NewError(CodeDuplicateBid, "profile already responded to this request")
	ErrSelfBidForbidden  = NewError(CodeSelfBidForbidden, "cannot respond to your own request")
	ErrInvalidTransition = NewError(CodeInvalidTransition, "invalid status transition")

	ErrSelfConversation = NewError(CodeSelfConversation, "cannot start a conversation with yourself")

	ErrStorageUnavailable = NewError(CodeStorageUnavailable, "storage unavailable")
)

// StorageError wraps an infrastructure failure as StorageUnavailable
func StorageError(err error) *AppError {
	return WrapError(err, CodeStorageUnavailable, ErrStorageUnavailable.Message)
}

// IsAppError check if it's an application error
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetErrorCode get error code
func GetErrorCode(err error) ResponseCode {
	if appErr, ok := IsAppError(err); ok {
		return appErr.Code
	}
	return CodeInternalError
}

// GetErrorMessage get error message
func GetErrorMessage(err error) string {
	if appErr, ok := IsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}

// HTTPStatus maps a business code to the HTTP status returned to clients
func HTTPStatus(code ResponseCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodeInvalidQuantity, CodeSelfBidForbidden, CodeSelfConversation:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound, CodeRequestNotFound:
		return http.StatusNotFound
	case CodeProviderConflict, CodeDuplicateBid, CodeRequestClosed, CodeInvalidTransition:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
