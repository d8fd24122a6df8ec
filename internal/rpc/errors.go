package rpc

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-rpc/internal/platform/httpx"
)

// Error codes. The standard range follows JSON-RPC 2.0; the -320xx codes are
// implementation defined. Codes are never renumbered.
const (
	CodeParseError         = -32700
	CodeInvalidRequest     = -32600
	CodeMethodNotFound     = -32601
	CodeInvalidParams      = -32602
	CodeInternalError      = -32603
	CodeAuthRequired       = -32001
	CodeAccessDenied       = -32002
	CodePermissionDenied   = -32003
	CodeValidationFailed   = -32004
	CodeResourceNotFound   = -32005
	CodeMethodNotSupported = -32006
)

var defaultMessages = map[int]string{
	CodeParseError:         "Parse error",
	CodeInvalidRequest:     "Invalid Request",
	CodeMethodNotFound:     "Method not found",
	CodeInvalidParams:      "Invalid params",
	CodeInternalError:      "Internal error",
	CodeAuthRequired:       "Authentication required",
	CodeAccessDenied:       "Access denied",
	CodePermissionDenied:   "Permission denied",
	CodeValidationFailed:   "Validation failed",
	CodeResourceNotFound:   "Resource not found",
	CodeMethodNotSupported: "Method not supported by model",
}

// DefaultMessage returns the stable message for code.
func DefaultMessage(code int) string {
	if msg, ok := defaultMessages[code]; ok {
		return msg
	}
	return defaultMessages[CodeInternalError]
}

// Error is the error member of a response. Handlers may return it directly to
// control the code, message and data seen by the caller.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// NewError builds an Error. An empty message is replaced by the code's default.
func NewError(code int, message string, data any) *Error {
	if message == "" {
		message = DefaultMessage(code)
	}
	return &Error{Code: code, Message: message, Data: data}
}

// Errorf builds an Error with a formatted message.
func Errorf(code int, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...), nil)
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// HTTPStatus maps an error code to the status used for single responses.
func HTTPStatus(code int) int {
	switch code {
	case 0:
		return http.StatusOK
	case CodeParseError, CodeInvalidRequest, CodeMethodNotFound, CodeInvalidParams, CodeValidationFailed, CodeMethodNotSupported:
		return http.StatusBadRequest
	case CodeAuthRequired:
		return http.StatusUnauthorized
	case CodeAccessDenied, CodePermissionDenied:
		return http.StatusForbidden
	case CodeResourceNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// normalizeError converts anything a handler returned into an Error.
func normalizeError(err error) *Error {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		out := *rpcErr
		if out.Message == "" {
			out.Message = DefaultMessage(out.Code)
		}
		return &out
	}
	var invalid validator.ValidationErrors
	if errors.As(err, &invalid) {
		return NewError(CodeValidationFailed, "", fieldErrors(invalid))
	}
	switch {
	case errors.Is(err, httpx.ErrNotFound):
		return NewError(CodeResourceNotFound, err.Error(), nil)
	case errors.Is(err, httpx.ErrValidation), errors.Is(err, httpx.ErrDuplicate):
		return NewError(CodeValidationFailed, err.Error(), nil)
	case errors.Is(err, httpx.ErrForbidden):
		return NewError(CodeAccessDenied, err.Error(), nil)
	case errors.Is(err, httpx.ErrUnauthorized):
		return NewError(CodeAuthRequired, err.Error(), nil)
	}
	return NewError(CodeInternalError, "", map[string]any{"detail": err.Error()})
}

func fieldErrors(invalid validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(invalid))
	for _, fe := range invalid {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		fields[strings.ToLower(fe.Field()[:1])+fe.Field()[1:]] = rule
	}
	return fields
}
