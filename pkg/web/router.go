package web

import "net/http"

// Router wraps http.ServeMux with optional fallback handling for unmatched routes.
// Use SetFallback to render a custom not-found page.
type Router struct {
	mux      *http.ServeMux
	fallback http.HandlerFunc
}

// NewRouter creates a Router with default ServeMux behavior.
func NewRouter() *Router {
	return &Router{mux: http.NewServeMux()}
}

// SetFallback configures the handler for unmatched routes.
func (r *Router) SetFallback(handler http.HandlerFunc) {
	r.fallback = handler
}

// Handle registers a handler for the given pattern.
func (r *Router) Handle(pattern string, handler http.Handler) {
	r.mux.Handle(pattern, handler)
}

// HandleFunc registers a handler function for the given pattern.
func (r *Router) HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	r.mux.HandleFunc(pattern, handler)
}

// ServeHTTP implements http.Handler with optional fallback for unmatched routes.
// Method mismatches on a known path still get the mux's 405 response.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if r.fallback != nil && !r.matches(req) {
		r.fallback.ServeHTTP(w, req)
		return
	}
	r.mux.ServeHTTP(w, req)
}

var probeMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

// matches reports whether any registered pattern matches the request path,
// regardless of method.
func (r *Router) matches(req *http.Request) bool {
	if _, pattern := r.mux.Handler(req); pattern != "" {
		return true
	}
	for _, method := range probeMethods {
		probe := *req
		probe.Method = method
		if _, pattern := r.mux.Handler(&probe); pattern != "" {
			return true
		}
	}
	return false
}
