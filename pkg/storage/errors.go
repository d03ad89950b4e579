package storage

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound indicates the requested file does not exist under the storage root.
	ErrNotFound = errors.New("file not found")
	// ErrEmptyKey indicates an empty storage key was provided.
	ErrEmptyKey = errors.New("storage key must not be empty")
	// ErrInvalidKey indicates the storage key would escape the storage root.
	ErrInvalidKey = errors.New("storage key contains invalid path segment")
	// ErrExists indicates a commit target is already taken.
	ErrExists = errors.New("file already exists")
	// ErrLimitExceeded indicates a staged stream was larger than the allowed limit.
	ErrLimitExceeded = errors.New("stream exceeds size limit")
)

// MapHTTPStatus maps storage errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrEmptyKey) || errors.Is(err, ErrInvalidKey) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrExists) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrLimitExceeded) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}
