// Package routes declares route groups that register onto a ServeMux and
// describe themselves in an OpenAPI document.
package routes

import (
	"net/http"
	"strings"

	"github.com/JaimeStill/shelf/pkg/openapi"
)

// Group organizes routes under a common prefix with shared tags.
type Group struct {
	Prefix   string
	Tags     []string
	Routes   []Route
	Children []Group
}

// Registrar is satisfied by *http.ServeMux and routers that wrap one.
type Registrar interface {
	HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request))
}

// Register adds all routes from the given groups to the mux.
func Register(mux Registrar, groups ...Group) {
	for _, group := range groups {
		registerGroup(mux, "", group)
	}
}

// Describe adds every documented route in groups to spec. basePath is the
// mount prefix the groups are served under (e.g. "/api", or "" at the root).
func Describe(spec *openapi.Spec, basePath string, groups ...Group) {
	for _, group := range groups {
		describeGroup(spec, basePath, nil, group)
	}
}

func registerGroup(mux Registrar, parentPrefix string, group Group) {
	fullPrefix := parentPrefix + group.Prefix
	for _, route := range group.Routes {
		pattern := route.Method + " " + fullPrefix + route.Pattern
		mux.HandleFunc(pattern, route.Handler)
	}
	for _, child := range group.Children {
		registerGroup(mux, fullPrefix, child)
	}
}

func describeGroup(spec *openapi.Spec, parentPrefix string, parentTags []string, group Group) {
	fullPrefix := parentPrefix + group.Prefix
	tags := group.Tags
	if len(tags) == 0 {
		tags = parentTags
	}

	for _, route := range group.Routes {
		if route.OpenAPI == nil {
			continue
		}

		op := *route.OpenAPI
		if len(op.Tags) == 0 {
			op.Tags = tags
		}

		path := strings.TrimSuffix(fullPrefix+route.Pattern, "{$}")
		if path == "" {
			path = "/"
		}
		spec.AddOperation(path, route.Method, &op)
	}

	for _, child := range group.Children {
		describeGroup(spec, fullPrefix, tags, child)
	}
}
