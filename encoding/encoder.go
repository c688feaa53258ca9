// Package encoding provides codecs for tool payloads: decoding the structured
// input requested by the model, and rendering typed tool results as text.
package encoding

import (
	"github.com/cockroachdb/errors"
	jsonenc "github.com/effective-security/toolloop/encoding/json"
	textenc "github.com/effective-security/toolloop/encoding/text"
	tomlenc "github.com/effective-security/toolloop/encoding/toml"
	yamlenc "github.com/effective-security/toolloop/encoding/yaml"
)

// ErrUnsupportedMode is returned for an unknown encoding mode.
var ErrUnsupportedMode = errors.New("unsupported encoding mode")

type SchemaEncoder interface {
	Marshal(v any) ([]byte, error)
	Unmarshal([]byte, any) error
	// GetFormatInstructions returns the description of the encoded format,
	// suitable for a tool description.
	GetFormatInstructions() string
}

type Validator interface {
	Validate(any) error
}

type Mode = string

const (
	ModeJSON      Mode = "json"
	ModeYAML      Mode = "yaml"
	ModeTOML      Mode = "toml"
	ModePlainText Mode = "plain_text"
)

// ModeDefault is the default mode for the encoder.
// Allow to override in apps
var ModeDefault = ModeJSON

// PredefinedSchemaEncoder returns an encoder for the mode,
// v is an instance of the type to encode.
func PredefinedSchemaEncoder(mode Mode, v any) (SchemaEncoder, error) {
	switch mode {
	case ModeJSON, "":
		return jsonenc.NewEncoder(v)
	case ModeYAML:
		return yamlenc.NewEncoder(v), nil
	case ModeTOML:
		return tomlenc.NewEncoder(v), nil
	case ModePlainText:
		return textenc.NewEncoder(), nil
	default:
		return nil, errors.WithMessagef(ErrUnsupportedMode, "%q", mode)
	}
}

// Decode unmarshals the data with the encoder,
// and validates the result when the encoder supports validation.
func Decode(enc SchemaEncoder, data []byte, ret any) error {
	if err := enc.Unmarshal(data, ret); err != nil {
		return errors.Wrap(err, "failed to decode")
	}
	if v, ok := enc.(Validator); ok {
		if err := v.Validate(ret); err != nil {
			return errors.Wrap(err, "failed to validate")
		}
	}
	return nil
}

var (
	_ SchemaEncoder = (*textenc.Encoder)(nil)
	_ SchemaEncoder = (*jsonenc.Encoder)(nil)
	_ SchemaEncoder = (*tomlenc.Encoder)(nil)
	_ SchemaEncoder = (*yamlenc.Encoder)(nil)

	_ Validator = (*jsonenc.Encoder)(nil)
	_ Validator = (*tomlenc.Encoder)(nil)
	_ Validator = (*yamlenc.Encoder)(nil)
)
