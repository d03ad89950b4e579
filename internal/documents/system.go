package documents

import (
	"context"
	"io"
	"io/fs"
	"os"
)

// System defines the public contract for document domain operations.
type System interface {
	Handler() *Handler

	// Ingest validates and stores an upload, returning the stored name.
	Ingest(ctx context.Context, filename string, body io.Reader) (string, error)
	// List returns every stored document, newest first.
	List(ctx context.Context) ([]Document, error)
	// Search returns the documents whose stored name contains query,
	// compared case-insensitively.
	Search(ctx context.Context, query string) ([]Document, error)
	// Find returns the metadata of a single stored document.
	Find(ctx context.Context, name string) (*Document, error)
	// Resolve returns the absolute path of a stored document.
	Resolve(ctx context.Context, name string) (string, error)
	// Open returns a stored document for reading. The caller must close it.
	Open(ctx context.Context, name string) (*os.File, fs.FileInfo, error)
	Delete(ctx context.Context, name string) error
}
