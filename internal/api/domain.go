package api

import "github.com/JaimeStill/shelf/internal/documents"

// Domain holds all domain systems that comprise the service.
type Domain struct {
	Documents documents.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	docsSystem := documents.New(
		runtime.Storage,
		documents.Config{MaxUploadSize: runtime.MaxUploadSize},
		runtime.Metrics,
		runtime.Logger,
	)

	return &Domain{
		Documents: docsSystem,
	}
}
