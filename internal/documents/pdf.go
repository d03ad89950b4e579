package documents

import (
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// validatePDF reports whether rs holds a structurally valid PDF. pdfcpu can
// panic on malformed input; a panic is returned as a validation error.
func validatePDF(rs io.ReadSeeker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()
	return api.Validate(rs, nil)
}

// pageCount returns the number of pages in the PDF at path, or 0 when the
// file cannot be parsed.
func pageCount(path string) (n int) {
	defer func() {
		if r := recover(); r != nil {
			n = 0
		}
	}()

	n, err := api.PageCountFile(path)
	if err != nil {
		return 0
	}
	return n
}
