package types

import (
	"errors"
	"fmt"
)

// ErrorCode identifies one kind of the closed failure set shared by every
// node and composite.
type ErrorCode string

const (
	// ErrNodeFailed 节点业务逻辑拒绝输入或运行时失败
	ErrNodeFailed ErrorCode = "NODE_FAILED"
	// ErrDecode Payload 无法转换为所需结构
	ErrDecode ErrorCode = "DECODE_ERROR"
	// ErrUnknown 兜底错误，应尽量少用
	ErrUnknown ErrorCode = "UNKNOWN"
)

// Error represents a structured error with code, message, and cause.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewNodeFailedError 创建 NODE_FAILED 错误
func NewNodeFailedError(message string) *Error {
	return NewError(ErrNodeFailed, message)
}

// NewDecodeError 创建 DECODE_ERROR 错误
func NewDecodeError(message string) *Error {
	return NewError(ErrDecode, message)
}

// NewUnknownError 创建 UNKNOWN 错误
func NewUnknownError(message string) *Error {
	if message == "" {
		message = "an unknown error occurred"
	}
	return NewError(ErrUnknown, message)
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// AsError returns err as a *Error. Errors outside the taxonomy become
// UNKNOWN with err kept as the cause. A nil err yields nil.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewUnknownError(err.Error()).WithCause(err)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	return err != nil && GetErrorCode(err) == code
}
