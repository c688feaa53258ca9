package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type label struct{}

func (label) String() string { return "label" }

func TestEncoder(t *testing.T) {
	enc := NewEncoder()
	assert.Empty(t, enc.GetFormatInstructions())

	s := "hello"
	for _, v := range []any{"hello", &s, []byte("hello")} {
		bs, err := enc.Marshal(v)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(bs))
	}
	bs, err := enc.Marshal(label{})
	require.NoError(t, err)
	assert.Equal(t, "label", string(bs))

	bs, err = enc.Marshal(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(bs))

	var str string
	require.NoError(t, enc.Unmarshal([]byte("world"), &str))
	assert.Equal(t, "world", str)

	var raw []byte
	require.NoError(t, enc.Unmarshal([]byte("raw"), &raw))
	assert.Equal(t, "raw", string(raw))

	var m map[string]int
	require.NoError(t, enc.Unmarshal([]byte(`{"a":1}`), &m))
	assert.Equal(t, 1, m["a"])
	assert.Error(t, enc.Unmarshal([]byte(`not json`), &m))
}
