// Package middleware provides composable HTTP middleware: CORS, request ids,
// and request logging.
package middleware

import "net/http"

// System manages an ordered stack of HTTP middleware.
type System interface {
	Use(mw func(http.Handler) http.Handler)
	Apply(handler http.Handler) http.Handler
}

type mw struct {
	stack []func(http.Handler) http.Handler
}

// New creates an empty middleware System.
func New() System {
	return &mw{}
}

func (m *mw) Use(fn func(http.Handler) http.Handler) {
	m.stack = append(m.stack, fn)
}

// Apply wraps handler so the first registered middleware runs first.
func (m *mw) Apply(handler http.Handler) http.Handler {
	return Chain(handler, m.stack...)
}

// Chain wraps handler with mws, outermost first.
func Chain(handler http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		handler = mws[i](handler)
	}
	return handler
}
