// Package documents implements the PDF library domain. The storage root is
// the catalog: documents are derived from the directory listing on every
// call, created by ingestion, and removed by deletion.
package documents

import (
	"path/filepath"
	"strings"
	"time"
)

// Extension is the only accepted document extension, matched case-insensitively.
const Extension = ".pdf"

// Document describes one stored PDF as observed at listing time.
type Document struct {
	Name       string    `json:"filename"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedAt time.Time `json:"uploaded_at"`
	PageCount  int       `json:"page_count"`
}

// UploadResult is the response body of a successful upload.
type UploadResult struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

// DeleteResult is the response body of a successful delete.
type DeleteResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// IsPDFName reports whether name carries the .pdf extension.
func IsPDFName(name string) bool {
	return strings.EqualFold(filepath.Ext(name), Extension)
}
