package json

import (
	"bytes"
	"encoding/json"
	"reflect"

	"github.com/bububa/ljson"
	"github.com/effective-security/toolloop/encoding/internal/example"
	"github.com/effective-security/toolloop/pkg/llmutils"
	"github.com/effective-security/toolloop/pkg/schema"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Encoder struct {
	schema *schema.Schema
}

// NewEncoder returns JSON encoder for the type of v.
// The schema is only available for struct types.
func NewEncoder(v any) (*Encoder, error) {
	e := new(Encoder)
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t != nil && t.Kind() == reflect.Struct {
		s, err := schema.New(t)
		if err != nil {
			return nil, err
		}
		e.schema = s
	}
	return e, nil
}

func (e *Encoder) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes leniently: prefixes, backticks and
// mistyped scalars produced by models are tolerated.
func (e *Encoder) Unmarshal(bs []byte, ret any) error {
	data := llmutils.CleanJSON(bs)
	return ljson.Unmarshal(data, ret)
}

func (e *Encoder) Validate(v any) error {
	if !example.IsStruct(v) {
		return nil
	}
	return validate.Struct(v)
}

func (e *Encoder) GetFormatInstructions() string {
	if e.schema == nil {
		return ""
	}
	var b bytes.Buffer
	b.WriteString("\nThe result is JSON in the following JSON schema:\n")
	b.WriteString("```json\n")
	b.WriteString(e.schema.String())
	b.WriteString("\n```\n")
	return b.String()
}

func (e *Encoder) Schema() *schema.Schema {
	return e.schema
}
