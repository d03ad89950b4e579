// Package testutil builds fixtures shared by package tests.
package testutil

import (
	"bytes"
	"fmt"
	"strings"
)

// PDF returns a minimal well-formed PDF document with the given number of
// blank letter-size pages. The cross-reference table carries exact byte
// offsets so strict readers accept it. pages below 1 is treated as 1.
func PDF(pages int) []byte {
	if pages < 1 {
		pages = 1
	}

	var buf bytes.Buffer
	offsets := make([]int, 0, pages+2)

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	kids := make([]string, pages)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}

	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	for range pages {
		obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	return buf.Bytes()
}

// TruncatedPDF returns PDF(pages) cut off directly after the startxref
// keyword, with no offset or trailer marker following it. Readers that index
// past the keyword without a bounds check fail on this input.
func TruncatedPDF(pages int) []byte {
	data := PDF(pages)
	i := bytes.LastIndex(data, []byte("startxref"))
	return data[:i+len("startxref")]
}
