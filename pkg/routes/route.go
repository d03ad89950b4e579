package routes

import (
	"net/http"

	"github.com/JaimeStill/shelf/pkg/openapi"
)

// Route binds an HTTP method and pattern to a handler.
// OpenAPI is optional; routes without it are left out of generated API docs.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
	OpenAPI *openapi.Operation
}
