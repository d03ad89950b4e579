package module

import (
	"net/http"
	"strings"
)

// Router dispatches requests to mounted modules by path prefix. Unclaimed
// paths go to the native ServeMux when one of its patterns matches, then to
// the root module if mounted, and finally to the native mux for its 404/405.
type Router struct {
	modules map[string]*Module
	root    *Module
	native  *http.ServeMux
}

// NewRouter creates a Router with an empty module map and native fallback mux.
func NewRouter() *Router {
	return &Router{
		modules: make(map[string]*Module),
		native:  http.NewServeMux(),
	}
}

// HandleNative registers a handler on the native fallback mux.
func (r *Router) HandleNative(pattern string, handler http.Handler) {
	r.native.Handle(pattern, handler)
}

// Mount registers a module to handle requests matching its prefix.
// Mounting a second root module replaces the first.
func (r *Router) Mount(m *Module) {
	if m.IsRoot() {
		r.root = m
		return
	}
	r.modules[m.prefix] = m
}

// ServeHTTP dispatches to the matching module or falls back to the native mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	path := normalizePath(req)
	prefix := extractPrefix(path)

	if m, ok := r.modules[prefix]; ok {
		m.Serve(w, req)
		return
	}

	if r.root != nil {
		if _, pattern := r.native.Handler(req); pattern == "" {
			r.root.Serve(w, req)
			return
		}
	}

	r.native.ServeHTTP(w, req)
}

func extractPrefix(path string) string {
	parts := strings.SplitN(path, "/", 3)
	if len(parts) >= 2 {
		return "/" + parts[1]
	}
	return path
}

func normalizePath(req *http.Request) string {
	path := req.URL.Path
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
		req.URL.Path = path
	}
	return path
}
