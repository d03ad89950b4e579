// Package web provides infrastructure for serving server-rendered pages with
// Go templates, embedded static assets, and fallback routing.
package web

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
)

// ViewDef defines a page with its route, template file, and title.
type ViewDef struct {
	Route    string
	Template string
	Title    string
}

// ViewData contains the data passed to page templates during rendering.
// BasePath enables portable URL generation in templates via {{ .BasePath }}.
type ViewData struct {
	Title    string
	BasePath string
	Data     any
}

// TemplateSet holds pre-parsed templates and a base path for URL generation.
// Templates are parsed once at startup.
type TemplateSet struct {
	views    map[string]*template.Template
	basePath string
}

// NewTemplateSet parses the layout templates matched by layoutGlob, then
// clones them once per view and parses the view file from viewSubdir into the
// clone. funcs is installed before parsing so layouts and views can call it.
func NewTemplateSet(
	fsys fs.FS,
	layoutGlob, viewSubdir, basePath string,
	funcs template.FuncMap,
	views []ViewDef,
) (*TemplateSet, error) {
	layouts, err := template.New("").Funcs(funcs).ParseFS(fsys, layoutGlob)
	if err != nil {
		return nil, fmt.Errorf("parse layouts: %w", err)
	}

	viewSub, err := fs.Sub(fsys, viewSubdir)
	if err != nil {
		return nil, err
	}

	viewTemplates := make(map[string]*template.Template, len(views))
	for _, v := range views {
		t, err := layouts.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layouts for %s: %w", v.Template, err)
		}
		if _, err := t.ParseFS(viewSub, v.Template); err != nil {
			return nil, fmt.Errorf("parse template: %s: %w", v.Template, err)
		}
		viewTemplates[v.Template] = t
	}

	return &TemplateSet{
		views:    viewTemplates,
		basePath: basePath,
	}, nil
}

// ViewData builds the template data for view.
func (ts *TemplateSet) ViewData(view ViewDef, data any) ViewData {
	return ViewData{
		Title:    view.Title,
		BasePath: ts.basePath,
		Data:     data,
	}
}

// ErrorHandler returns an HTTP handler that renders an error page with the given status code.
func (ts *TemplateSet) ErrorHandler(layout string, view ViewDef, status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ts.Render(w, status, layout, view.Template, ts.ViewData(view, nil)); err != nil {
			http.Error(w, http.StatusText(status), status)
		}
	}
}

// Render executes the named layout template with the given view data.
// Output is buffered, so nothing is written to w when execution fails and the
// caller can still send a different response.
func (ts *TemplateSet) Render(w http.ResponseWriter, status int, layoutName, viewPath string, data ViewData) error {
	t, ok := ts.views[viewPath]
	if !ok {
		return fmt.Errorf("template not found: %s", viewPath)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, layoutName, data); err != nil {
		return fmt.Errorf("render %s: %w", viewPath, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
