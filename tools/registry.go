package tools

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolloop/pkg/llms"
)

var (
	// ErrDuplicateTool is returned when two tools are registered with the same name.
	ErrDuplicateTool = errors.New("duplicate tool")
	// ErrInvalidTool is returned for a nil tool or a tool without name.
	ErrInvalidTool = errors.New("invalid tool")
)

// Registry maps tool names to implementations.
// It is immutable after construction and safe for concurrent use.
type Registry struct {
	tools map[string]ITool
	names []string
	specs []llms.Tool
}

// NewRegistry returns a registry of the tools,
// in the order they are provided.
func NewRegistry(list ...ITool) (*Registry, error) {
	r := &Registry{
		tools: make(map[string]ITool, len(list)),
		names: make([]string, 0, len(list)),
		specs: make([]llms.Tool, 0, len(list)),
	}
	for i, t := range list {
		if t == nil {
			return nil, errors.WithMessagef(ErrInvalidTool, "tool %d is nil", i)
		}
		name := t.Name()
		if name == "" {
			return nil, errors.WithMessagef(ErrInvalidTool, "tool %d has no name", i)
		}
		if _, ok := r.tools[name]; ok {
			return nil, errors.WithMessagef(ErrDuplicateTool, "%q", name)
		}
		r.tools[name] = t
		r.names = append(r.names, name)
		r.specs = append(r.specs, llms.NewFunctionTool(name, t.Description(), t.Parameters()))
	}
	return r, nil
}

// MustRegistry returns a registry of the tools, and panics on error.
func MustRegistry(list ...ITool) *Registry {
	r, err := NewRegistry(list...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the tool by name.
func (r *Registry) Lookup(name string) (ITool, bool) {
	if r == nil {
		return nil, false
	}
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return slices.Clone(r.names)
}

// Specs returns the tool definitions sent to the model.
func (r *Registry) Specs() []llms.Tool {
	if r == nil {
		return nil
	}
	return slices.Clone(r.specs)
}

// Tools returns the registered tools.
func (r *Registry) Tools() []ITool {
	if r == nil {
		return nil
	}
	list := make([]ITool, 0, len(r.names))
	for _, name := range r.names {
		list = append(list, r.tools[name])
	}
	return list
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}
