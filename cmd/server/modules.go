package main

import (
	"encoding/json"
	"net/http"

	"github.com/JaimeStill/shelf/internal/api"
	"github.com/JaimeStill/shelf/internal/config"
	"github.com/JaimeStill/shelf/internal/infrastructure"
	"github.com/JaimeStill/shelf/pkg/middleware"
	"github.com/JaimeStill/shelf/pkg/module"
	"github.com/JaimeStill/shelf/web/scalar"
)

type Modules struct {
	Root   *module.Module
	API    *module.Module
	Scalar *module.Module
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	runtime := api.NewRuntime(cfg, infra)
	domain := api.NewDomain(runtime)

	rootModule, err := api.NewRootModule(cfg, runtime, domain)
	if err != nil {
		return nil, err
	}

	apiModule, err := api.NewModule(cfg, runtime, domain)
	if err != nil {
		return nil, err
	}

	scalarModule := scalar.NewModule(cfg.API.DocsPath, cfg.API.BasePath+api.SpecPath)
	scalarModule.Use(middleware.Logger(infra.Logger))

	return &Modules{
		Root:   rootModule,
		API:    apiModule,
		Scalar: scalarModule,
	}, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.Root)
	router.Mount(m.API)
	router.Mount(m.Scalar)
}

func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))

	router.HandleNative("GET /readyz", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !infra.Lifecycle.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	}))

	router.HandleNative("GET /metrics", infra.Metrics.Handler())

	return router
}
