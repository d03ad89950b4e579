// Package scalar serves the Scalar API reference UI for the service's
// OpenAPI document.
package scalar

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strconv"

	"github.com/JaimeStill/shelf/pkg/module"
)

//go:embed index.html
var staticFS embed.FS

var page = template.Must(template.ParseFS(staticFS, "index.html"))

// NewModule creates a module that serves the API reference UI at basePath,
// loading the OpenAPI document from specURL.
func NewModule(basePath, specURL string) *module.Module {
	return module.New(basePath, buildRouter(specURL))
}

func buildRouter(specURL string) http.Handler {
	var buf bytes.Buffer
	if err := page.Execute(&buf, map[string]string{"SpecURL": specURL}); err != nil {
		panic("render api reference page: " + err.Error())
	}
	body := buf.Bytes()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Write(body)
	})

	return mux
}
