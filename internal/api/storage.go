package api

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/shelf/internal/documents"
	"github.com/JaimeStill/shelf/pkg/formatting"
	"github.com/JaimeStill/shelf/pkg/handlers"
	"github.com/JaimeStill/shelf/pkg/openapi"
	"github.com/JaimeStill/shelf/pkg/routes"
	"github.com/JaimeStill/shelf/pkg/storage"
)

// StorageUsage summarizes the PDFs held in the storage root.
type StorageUsage struct {
	Documents  int    `json:"documents"`
	TotalBytes int64  `json:"total_bytes"`
	TotalSize  string `json:"total_size"`
}

var storageSpec = struct {
	Usage   *openapi.Operation
	Schemas map[string]*openapi.Schema
}{
	Usage: &openapi.Operation{
		Summary:     "Storage usage",
		Description: "Counts the stored PDFs and their combined size without parsing them.",
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Usage", "StorageUsage"),
			500: openapi.ResponseRef("InternalError"),
		},
	},
	Schemas: map[string]*openapi.Schema{
		"StorageUsage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"documents":   {Type: "integer"},
				"total_bytes": {Type: "integer", Format: "int64"},
				"total_size":  {Type: "string", Example: "12.5 MB"},
			},
		},
	},
}

type storageHandler struct {
	store  storage.System
	logger *slog.Logger
}

func newStorageHandler(store storage.System, logger *slog.Logger) *storageHandler {
	return &storageHandler{
		store:  store,
		logger: logger.With("handler", "storage"),
	}
}

func (h *storageHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/storage",
		Tags:   []string{"Storage"},
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.usage, OpenAPI: storageSpec.Usage},
		},
	}
}

func (h *storageHandler) usage(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.List(r.Context())
	if err != nil {
		handlers.RespondMessage(
			w, h.logger,
			http.StatusInternalServerError, err,
			"error reading storage",
		)
		return
	}

	var usage StorageUsage
	for _, e := range entries {
		if !documents.IsPDFName(e.Key) {
			continue
		}
		usage.Documents++
		usage.TotalBytes += e.Info.Size()
	}
	usage.TotalSize = formatting.FormatBytes(usage.TotalBytes, 1)

	handlers.RespondJSON(w, http.StatusOK, usage)
}
