package jsonrpc

import "encoding/json"

// Version is the only JSON-RPC version spoken on the wire
const Version = "2.0"

// Request represents a JSON-RPC request or notification
type Request struct {
	Version string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      ID              `json:"id,omitempty"`
}

// NewRequest creates a new Request object.
// An id that is not a string or number yields a notification.
func NewRequest(method string, params json.RawMessage, id interface{}) Request {
	reqID, _ := NewID(id)

	return Request{
		Version: Version,
		Method:  method,
		Params:  params,
		ID:      reqID,
	}
}

// IsNotification reports whether the sender expects no response
func (r Request) IsNotification() bool {
	return !r.ID.IsPresent()
}
