package documents

import (
	"errors"
	"net/http"
)

// Domain errors for document operations.
var (
	ErrInvalidType  = errors.New("only PDF files are allowed")
	ErrTooLarge     = errors.New("file size exceeds upload limit")
	ErrInvalidPDF   = errors.New("invalid file")
	ErrMissingFile  = errors.New("no file provided")
	ErrInvalidQuery = errors.New("search query must not be empty")
	ErrNotFound     = errors.New("PDF file not found")
	ErrIO           = errors.New("storage failure")
)

// MapHTTPStatus maps document domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidType) ||
		errors.Is(err, ErrTooLarge) ||
		errors.Is(err, ErrInvalidPDF) ||
		errors.Is(err, ErrMissingFile) ||
		errors.Is(err, ErrInvalidQuery) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
