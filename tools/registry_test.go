package tools_test

import (
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolloop/mocks/mocktools"
	"github.com/effective-security/toolloop/pkg/schema"
	"github.com/effective-security/toolloop/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func mockTool(ctrl *gomock.Controller, name string) *mocktools.MockITool {
	m := mocktools.NewMockITool(ctrl)
	m.EXPECT().Name().Return(name).AnyTimes()
	m.EXPECT().Description().Return("tool " + name).AnyTimes()
	m.EXPECT().Parameters().Return(schema.MustFromAny(map[string]any{"type": "object"})).AnyTimes()
	return m
}

func TestRegistry(t *testing.T) {
	ctrl := gomock.NewController(t)

	weather := mockTool(ctrl, "weather")
	search := mockTool(ctrl, "search")

	r, err := tools.NewRegistry(weather, search)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"weather", "search"}, r.Names())

	got, ok := r.Lookup("weather")
	require.True(t, ok)
	assert.Same(t, weather, got)

	_, ok = r.Lookup("unknown")
	assert.False(t, ok)

	specs := r.Specs()
	require.Len(t, specs, 2)
	assert.Equal(t, "function", specs[0].Type)
	assert.Equal(t, "weather", specs[0].Function.Name)
	assert.Equal(t, "tool weather", specs[0].Function.Description)
	assert.Equal(t, "object", specs[0].Function.Parameters.Type)
	assert.Equal(t, "search", specs[1].Function.Name)

	// returned slices are copies
	specs[0] = specs[1]
	names := r.Names()
	names[0] = "changed"
	assert.Equal(t, "weather", r.Specs()[0].Function.Name)
	assert.Equal(t, []string{"weather", "search"}, r.Names())

	list := r.Tools()
	require.Len(t, list, 2)
	assert.Same(t, search, list[1])

	desc := tools.GetDescriptions(list...)
	assert.Contains(t, desc, `"Name": "weather"`)
	assert.Contains(t, desc, `"Description": "tool search"`)
}

func TestRegistry_Errors(t *testing.T) {
	ctrl := gomock.NewController(t)

	_, err := tools.NewRegistry(mockTool(ctrl, "weather"), mockTool(ctrl, "weather"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, tools.ErrDuplicateTool))
	assert.EqualError(t, err, `"weather": duplicate tool`)

	_, err = tools.NewRegistry(nil)
	assert.True(t, errors.Is(err, tools.ErrInvalidTool))
	assert.EqualError(t, err, "tool 0 is nil: invalid tool")

	_, err = tools.NewRegistry(mockTool(ctrl, "weather"), mockTool(ctrl, ""))
	assert.True(t, errors.Is(err, tools.ErrInvalidTool))
	assert.EqualError(t, err, "tool 1 has no name: invalid tool")

	assert.Panics(t, func() {
		tools.MustRegistry(mockTool(ctrl, "a"), mockTool(ctrl, "a"))
	})
}

func TestRegistry_Empty(t *testing.T) {
	r, err := tools.NewRegistry()
	require.NoError(t, err)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Specs())

	var nilReg *tools.Registry
	assert.Equal(t, 0, nilReg.Len())
	assert.Nil(t, nilReg.Names())
	assert.Nil(t, nilReg.Specs())
	assert.Nil(t, nilReg.Tools())
	_, ok := nilReg.Lookup("any")
	assert.False(t, ok)
}

func TestRegistry_Concurrent(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := tools.MustRegistry(mockTool(ctrl, "a"), mockTool(ctrl, "b"))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := "a"
			if i%2 == 0 {
				name = "b"
			}
			tool, ok := r.Lookup(name)
			assert.True(t, ok)
			assert.Equal(t, name, tool.Name())
			assert.Len(t, r.Specs(), 2)
		}()
	}
	wg.Wait()
}
