package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/shelf/internal/config"
	"github.com/JaimeStill/shelf/internal/documents"
	"github.com/JaimeStill/shelf/pkg/openapi"
	"github.com/JaimeStill/shelf/pkg/routes"
)

// SpecPath is the path of the OpenAPI document within the API module.
const SpecPath = "/openapi.json"

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) error {
	groups := apiGroups(domain, runtime)
	routes.Register(mux, groups...)

	spec := buildSpec(cfg, domain, groups)
	specBytes, err := openapi.MarshalJSON(spec)
	if err != nil {
		return fmt.Errorf("marshal openapi document: %w", err)
	}
	mux.HandleFunc("GET "+SpecPath, openapi.ServeSpec(specBytes))

	return nil
}

func apiGroups(domain *Domain, runtime *Runtime) []routes.Group {
	return []routes.Group{
		domain.Documents.Handler().APIRoutes(),
		newStorageHandler(runtime.Storage, runtime.Logger).routes(),
	}
}

func buildSpec(cfg *config.Config, domain *Domain, groups []routes.Group) *openapi.Spec {
	spec := openapi.NewSpec(cfg.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.OpenAPI.Description)

	spec.Components.AddSchemas(documents.Spec.Schemas)
	spec.Components.AddSchemas(storageSpec.Schemas)

	routes.Describe(spec, "", domain.Documents.Handler().Routes())
	routes.Describe(spec, cfg.API.BasePath, groups...)

	return spec
}
