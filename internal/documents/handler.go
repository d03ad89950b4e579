package documents

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/JaimeStill/shelf/pkg/handlers"
	"github.com/JaimeStill/shelf/pkg/routes"
)

// multipartOverhead is the allowance for multipart framing on top of the
// file size limit when capping the request body.
const multipartOverhead = 1 << 20

// Generic messages returned in place of server-side failure details.
const (
	msgUploadFailed = "error uploading file"
	msgDeleteFailed = "error deleting file"
)

// Handler provides HTTP endpoints for document operations.
type Handler struct {
	sys           System
	logger        *slog.Logger
	maxUploadSize int64
}

// NewHandler creates a Handler with the given system, logger, and upload size limit.
func NewHandler(sys System, logger *slog.Logger, maxUploadSize int64) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "documents"),
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the browser-facing upload, view, and delete endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Tags: []string{"Library"},
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/upload", Handler: h.Upload, OpenAPI: Spec.Upload},
			{Method: "GET", Pattern: "/pdf/{name}", Handler: h.View, OpenAPI: Spec.View},
			{Method: "DELETE", Pattern: "/pdf/{name}", Handler: h.Delete, OpenAPI: Spec.Delete},
		},
	}
}

// APIRoutes returns the JSON catalog endpoints.
func (h *Handler) APIRoutes() routes.Group {
	return routes.Group{
		Prefix: "/documents",
		Tags:   []string{"Documents"},
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List, OpenAPI: Spec.List},
			{Method: "GET", Pattern: "/{name}", Handler: h.Find, OpenAPI: Spec.Find},
		},
	}
}

// Upload streams the multipart "file" field into the document system.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrMissingFile)
		return
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			h.respondUploadError(w, fmt.Errorf("%w: %w", ErrMissingFile, err))
			return
		}

		if part.FormName() != "file" {
			part.Close()
			continue
		}

		if part.FileName() == "" {
			part.Close()
			handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrMissingFile)
			return
		}

		name, err := h.sys.Ingest(r.Context(), part.FileName(), part)
		part.Close()
		if err != nil {
			h.respondUploadError(w, err)
			return
		}

		handlers.RespondJSON(w, http.StatusOK, UploadResult{
			Filename: name,
			Status:   "success",
		})
		return
	}

	handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrMissingFile)
}

// View streams a stored PDF inline. Range and conditional requests are honored.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	f, info, err := h.sys.Open(r.Context(), name)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": name}))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// Delete removes a stored PDF by name.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if err := h.sys.Delete(r.Context(), name); err != nil {
		status := MapHTTPStatus(err)
		if status >= http.StatusInternalServerError {
			handlers.RespondMessage(w, h.logger, status, err, msgDeleteFailed)
			return
		}
		handlers.RespondError(w, h.logger, status, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, DeleteResult{
		Status:  "success",
		Message: fmt.Sprintf("Deleted %s", name),
	})
}

// List returns all documents as JSON, or the search results when a query
// parameter is present.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var (
		docs []Document
		err  error
	)

	if q := r.URL.Query(); q.Has("query") {
		docs, err = h.sys.Search(r.Context(), q.Get("query"))
	} else {
		docs, err = h.sys.List(r.Context())
	}

	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, docs)
}

// Find returns the metadata of a single stored PDF.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	doc, err := h.sys.Find(r.Context(), r.PathValue("name"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, doc)
}

func (h *Handler) respondUploadError(w http.ResponseWriter, err error) {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		err = fmt.Errorf("%w: request body over %d bytes", ErrTooLarge, mbe.Limit)
	}

	status := MapHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		handlers.RespondMessage(w, h.logger, status, err, msgUploadFailed)
		return
	}
	handlers.RespondError(w, h.logger, status, err)
}
