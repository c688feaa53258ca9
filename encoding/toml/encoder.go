package toml

import (
	"bytes"
	"reflect"

	"github.com/BurntSushi/toml"
	"github.com/effective-security/toolloop/encoding/internal/example"
	"github.com/effective-security/toolloop/pkg/llmutils"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Encoder struct {
	typ reflect.Type
}

func NewEncoder(v any) *Encoder {
	return &Encoder{
		typ: reflect.TypeOf(v),
	}
}

func (e *Encoder) Marshal(v any) ([]byte, error) {
	return toml.Marshal(v)
}

func (e *Encoder) Unmarshal(bs []byte, ret any) error {
	data := llmutils.BytesTrimBackticks(bs)
	return toml.Unmarshal(data, ret)
}

func (e *Encoder) Validate(v any) error {
	if !example.IsStruct(v) {
		return nil
	}
	return validate.Struct(v)
}

func (e *Encoder) GetFormatInstructions() string {
	instance := example.New(e.typ)
	if instance == nil {
		return ""
	}
	bs, err := e.Marshal(instance)
	if err != nil {
		return ""
	}
	var b bytes.Buffer
	b.WriteString("\nThe result is TOML, for example:\n")
	b.WriteString("```toml\n")
	b.Write(bs)
	b.WriteString("```\n")
	return b.String()
}
