package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// ID represents a JSON-RPC ID, which is a string, a number, null, or absent.
// The zero ID is absent and identifies a notification.
// An explicit null is present and still expects a response.
type ID struct {
	value   interface{}
	present bool
}

// NewID creates a JSON-RPC ID from a string or number
func NewID(id interface{}) (ID, error) {
	switch v := id.(type) {
	case ID:
		return v, nil
	case string:
		return ID{value: v, present: true}, nil
	case int:
		return ID{value: v, present: true}, nil
	case int32:
		return ID{value: int(v), present: true}, nil
	case int64:
		return ID{value: int(v), present: true}, nil
	case float64:
		return ID{value: v, present: true}, nil
	case nil:
		return ID{}, nil
	default:
		return ID{}, fmt.Errorf("id must be string or number, got %T", id)
	}
}

func (id ID) Value() interface{} {
	return id.value
}

func (id ID) IsNil() bool {
	return id.value == nil
}

// IsPresent reports whether the id member was sent, including as null
func (id ID) IsPresent() bool {
	return id.present
}

// Equal compares two IDs for equality
func (id ID) Equal(other interface{}) bool {
	o, err := NewID(other)
	if err != nil {
		return false
	}
	return id.value == o.value
}

var _ fmt.GoStringer = ID{}

// GoString implements fmt.GoStringer
func (id ID) GoString() string {
	switch v := id.value.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case float64:
		return fmt.Sprintf("%g", v)
	case int:
		return fmt.Sprintf("%d", v)
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("%v", v)
	}
}

var _ json.Marshaler = ID{}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

var _ json.Unmarshaler = &ID{}

// UnmarshalJSON implements json.Unmarshaler
func (id *ID) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case string:
		id.value = v
	case float64: // JSON numbers are decoded as float64
		if v == float64(int(v)) {
			id.value = int(v)
		} else {
			id.value = v
		}
	case nil:
		id.value = nil
	default:
		return fmt.Errorf("id must be string or number, got %T", raw)
	}
	id.present = true
	return nil
}
