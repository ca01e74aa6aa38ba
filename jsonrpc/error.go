package jsonrpc

import (
	"fmt"
)

// ErrorCode represents a JSON-RPC error code
type ErrorCode int

// JSON-RPC 2.0 error codes as defined in https://www.jsonrpc.org/specification
const (
	// Invalid JSON was received by the server.
	ErrParse ErrorCode = -32700

	// The JSON sent is not a valid Request object.
	ErrInvalidRequest ErrorCode = -32600

	// The method does not exist or is not available.
	ErrMethodNotFound ErrorCode = -32601

	// Invalid method parameter(s).
	ErrInvalidParams ErrorCode = -32602

	// Internal JSON-RPC error.
	ErrInternal ErrorCode = -32603

	// Reserved for implementation-defined server errors (-32000 to -32099).
	ErrServer ErrorCode = -32000
)

var errorDetails = map[ErrorCode]string{
	ErrParse:          "Parse error",
	ErrInvalidRequest: "Invalid Request",
	ErrMethodNotFound: "Method not found",
	ErrInvalidParams:  "Invalid params",
	ErrInternal:       "Internal error",
	ErrServer:         "Server error",
}

// Error represents a JSON-RPC error object
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

var _ error = &Error{}

func (e *Error) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("%d: %s: %v", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// NewError creates a new JSON-RPC error with the given code and optional data.
// Go errors passed as data are reduced to their message so they survive encoding.
func NewError(code ErrorCode, data interface{}) *Error {
	msg, ok := errorDetails[code]
	if !ok {
		if code >= -32099 && code <= -32000 {
			msg = "Server error"
		} else {
			msg = "Unknown error"
		}
	}

	if err, ok := data.(error); ok {
		data = err.Error()
	}

	return &Error{
		Code:    code,
		Message: msg,
		Data:    data,
	}
}
