// Package prompts renders agent system prompts from templates.
//
// Templates use text/template syntax with the sprig function map,
// so a prompt may reference values such as `{{ .Tools }}` or `{{ now | date "2006-01-02" }}`.
package prompts

import (
	"maps"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
)

// Template is a parsed prompt template.
type Template struct {
	name string
	tmpl *template.Template
}

// New parses the prompt template.
func New(name, text string) (*Template, error) {
	tmpl, err := template.New(name).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse prompt %q", name)
	}
	return &Template{name: name, tmpl: tmpl}, nil
}

// Name returns the template name.
func (t *Template) Name() string {
	return t.name
}

// Format renders the template with the values.
func (t *Template) Format(values map[string]any) (string, error) {
	var buf strings.Builder
	if err := t.tmpl.Execute(&buf, values); err != nil {
		return "", errors.Wrapf(err, "failed to render prompt %q", t.name)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Render parses and renders the prompt template in one step.
// Partial values are merged over defaults.
func Render(text string, defaults map[string]any, values map[string]any) (string, error) {
	t, err := New("prompt", text)
	if err != nil {
		return "", err
	}
	data := make(map[string]any, len(defaults)+len(values))
	maps.Copy(data, defaults)
	maps.Copy(data, values)
	return t.Format(data)
}
