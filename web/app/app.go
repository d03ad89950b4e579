// Package app serves the server-rendered library pages: the document list,
// filename search, static assets, and a minimal status page used whenever the
// templates cannot be rendered.
package app

import (
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/JaimeStill/shelf/internal/documents"
	"github.com/JaimeStill/shelf/pkg/formatting"
	"github.com/JaimeStill/shelf/pkg/handlers"
	"github.com/JaimeStill/shelf/pkg/routes"
	"github.com/JaimeStill/shelf/pkg/web"
)

//go:embed templates static public
var content embed.FS

const layout = "app"

var (
	indexView    = web.ViewDef{Route: "/{$}", Template: "index.html", Title: "Library"}
	searchView   = web.ViewDef{Route: "/search", Template: "index.html", Title: "Search"}
	notFoundView = web.ViewDef{Template: "not-found.html", Title: "Not Found"}
)

// statusPage is served when the templates are unavailable or fail to render.
const statusPage = `<!DOCTYPE html>
<html><body style="font-family: sans-serif; padding: 20px;">
<h1>Shelf</h1>
<p>Service is running.</p>
<p><a href="/docs">API Docs</a></p>
</body></html>
`

// PageData is the view data for the list and search pages.
type PageData struct {
	Documents []documents.Document
	Query     string
	Searching bool
}

// Handler renders the library pages.
type Handler struct {
	docs      documents.System
	fsys      fs.FS
	templates *web.TemplateSet
	logger    *slog.Logger
}

// New creates a Handler over the embedded templates and assets.
func New(docs documents.System, logger *slog.Logger) *Handler {
	return NewHandler(docs, content, logger)
}

// NewHandler creates a Handler reading templates and assets from fsys.
// Template parse failures are logged, not returned: pages then fall back to
// the status page.
func NewHandler(docs documents.System, fsys fs.FS, logger *slog.Logger) *Handler {
	logger = logger.With("handler", "app")

	ts, err := web.NewTemplateSet(
		fsys,
		"templates/layouts/*.html",
		"templates/views",
		"",
		Funcs(),
		[]web.ViewDef{indexView, searchView, notFoundView},
	)
	if err != nil {
		logger.Error("templates unavailable, serving status page", "error", err)
		ts = nil
	}

	return &Handler{
		docs:      docs,
		fsys:      fsys,
		templates: ts,
		logger:    logger,
	}
}

// Funcs returns the template helpers available to every page.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"formatBytes": func(n int64) string { return formatting.FormatBytes(n, 2) },
		"formatTime":  func(t time.Time) string { return t.Local().Format("2006-01-02 15:04:05") },
		"pathEscape":  url.PathEscape,
	}
}

// Routes returns the page and public file routes.
func (h *Handler) Routes() routes.Group {
	group := routes.Group{
		Routes: []routes.Route{
			{Method: "GET", Pattern: indexView.Route, Handler: h.Home},
			{Method: "GET", Pattern: searchView.Route, Handler: h.Search},
		},
	}
	group.Routes = append(group.Routes, web.PublicFileRoutes(h.fsys, "public", "favicon.svg", "robots.txt")...)
	return group
}

// Static serves the embedded CSS and JavaScript under /static/.
func (h *Handler) Static() (http.Handler, error) {
	return web.DistServer(h.fsys, "static", "/static")
}

// Home lists every stored document, newest first.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	docs, err := h.docs.List(r.Context())
	if err != nil {
		h.logger.Error("listing documents for home page failed", "error", err)
		h.fallback(w)
		return
	}

	h.render(w, http.StatusOK, indexView, PageData{Documents: docs})
}

// Search lists the documents whose filename contains the query parameter.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	docs, err := h.docs.Search(r.Context(), query)
	if err != nil {
		if errors.Is(err, documents.ErrInvalidQuery) {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
			return
		}
		handlers.RespondMessage(w, h.logger, http.StatusInternalServerError, err, "error searching documents")
		return
	}

	h.render(w, http.StatusOK, searchView, PageData{
		Documents: docs,
		Query:     query,
		Searching: true,
	})
}

// NotFound renders the not-found page for unmatched paths.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	if h.templates == nil {
		http.NotFound(w, r)
		return
	}
	h.templates.ErrorHandler(layout, notFoundView, http.StatusNotFound)(w, r)
}

func (h *Handler) render(w http.ResponseWriter, status int, view web.ViewDef, data PageData) {
	if h.templates == nil {
		h.fallback(w)
		return
	}

	if err := h.templates.Render(w, status, layout, view.Template, h.templates.ViewData(view, data)); err != nil {
		h.logger.Error("page render failed", "view", view.Template, "error", err)
		h.fallback(w)
	}
}

func (h *Handler) fallback(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(statusPage))
}
