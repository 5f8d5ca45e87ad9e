package http

import (
	"bytes"
	"embed"
	"html/template"

	"github.com/rotisserie/eris"
)

//go:embed templates/*.html
var templateFS embed.FS

var viewNames = []string{"page.html", "edit.html", "pages.html", "error.html"}

// viewRenderer executes the embedded HTML documents against their typed
// view models. Each view is parsed together with the shared layout.
type viewRenderer struct {
	views map[string]*template.Template
}

func newViewRenderer() (*viewRenderer, error) {
	views := make(map[string]*template.Template, len(viewNames))

	for _, name := range viewNames {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, eris.Wrapf(err, "parsing view template: %s", name)
		}
		views[name] = tmpl
	}

	return &viewRenderer{views: views}, nil
}

func (v *viewRenderer) render(name string, data any) ([]byte, error) {
	tmpl, ok := v.views[name]
	if !ok {
		return nil, eris.Errorf("unknown view template: %s", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return nil, eris.Wrapf(err, "rendering view: %s", name)
	}

	return buf.Bytes(), nil
}
