// Package text provides a plain text codec.
package text

import (
	"encoding/json"
	"fmt"
)

type Encoder struct{}

func NewEncoder() *Encoder {
	return new(Encoder)
}

// Marshal returns strings and byte slices as is,
// other values are rendered as JSON.
func (e *Encoder) Marshal(v any) ([]byte, error) {
	switch s := v.(type) {
	case string:
		return []byte(s), nil
	case *string:
		return []byte(*s), nil
	case []byte:
		return s, nil
	case fmt.Stringer:
		return []byte(s.String()), nil
	}
	return json.Marshal(v)
}

func (e *Encoder) Unmarshal(bs []byte, ret any) error {
	switch s := ret.(type) {
	case *string:
		*s = string(bs)
	case *[]byte:
		*s = bs
	default:
		return json.Unmarshal(bs, ret)
	}
	return nil
}

func (e *Encoder) GetFormatInstructions() string {
	return ""
}
