// Package api assembles the service modules: the JSON API under the configured
// base path and the library pages at the site root, both over one set of
// domain systems.
package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/shelf/internal/config"
	"github.com/JaimeStill/shelf/pkg/middleware"
	"github.com/JaimeStill/shelf/pkg/module"
	"github.com/JaimeStill/shelf/pkg/routes"
	"github.com/JaimeStill/shelf/pkg/web"
	"github.com/JaimeStill/shelf/web/app"
)

// NewModule creates the JSON API module with the catalog, storage usage, and
// OpenAPI document routes.
func NewModule(cfg *config.Config, runtime *Runtime, domain *Domain) (*module.Module, error) {
	mux := http.NewServeMux()
	if err := registerRoutes(mux, domain, cfg, runtime); err != nil {
		return nil, err
	}

	m := module.New(cfg.API.BasePath, mux)
	use(m, cfg, runtime)

	return m, nil
}

// NewRootModule creates the site root module: the library pages, the upload,
// view, and delete endpoints, embedded static assets, and the not-found page.
func NewRootModule(cfg *config.Config, runtime *Runtime, domain *Domain) (*module.Module, error) {
	pages := app.New(domain.Documents, runtime.Logger)

	static, err := pages.Static()
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}

	router := web.NewRouter()
	routes.Register(router, rootGroups(domain, pages)...)
	router.Handle("GET /static/", static)
	router.SetFallback(pages.NotFound)

	m := module.New(module.RootPrefix, router)
	use(m, cfg, runtime)

	return m, nil
}

func use(m *module.Module, cfg *config.Config, runtime *Runtime) {
	m.Use(middleware.RequestID())
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(runtime.Metrics.Middleware())
}

func rootGroups(domain *Domain, pages *app.Handler) []routes.Group {
	return []routes.Group{
		domain.Documents.Handler().Routes(),
		pages.Routes(),
	}
}
