package middleware

import "net/http"

// StatusRecorder wraps a ResponseWriter to capture the written status code.
type StatusRecorder struct {
	http.ResponseWriter
	Status int
	wrote  bool
}

// NewStatusRecorder wraps w with a default status of 200.
func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	if rec, ok := w.(*StatusRecorder); ok {
		return rec
	}
	return &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
}

func (r *StatusRecorder) WriteHeader(status int) {
	if !r.wrote {
		r.Status = status
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *StatusRecorder) Write(b []byte) (int, error) {
	r.wrote = true
	return r.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (r *StatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
