// Package pdfx turns uploaded PDF books into normalized plain text for
// the generation stage.
package pdfx

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrLimitExceeded means the document has more pages than the
	// configured ceiling. Deterministic, never retried.
	ErrLimitExceeded = errors.New("page limit exceeded")

	// ErrUnreadable means the document could not be parsed as a PDF.
	ErrUnreadable = errors.New("unreadable document")

	// ErrEmpty means the document parsed but contains no pages.
	ErrEmpty = errors.New("empty document")
)

// Document is the extraction output: normalized text plus the page
// count that was checked against the limit.
type Document struct {
	Text  string
	Pages int
}

// Extractor extracts text from PDF bytes, enforcing a page ceiling.
// Extraction is deterministic: the same bytes always yield the same
// Document, so retrying after a crash is safe.
type Extractor struct {
	maxPages int
}

func New(maxPages int) *Extractor {
	if maxPages <= 0 {
		maxPages = 500
	}
	return &Extractor{maxPages: maxPages}
}

// Extract parses the document, checks the page count against the
// ceiling before touching page content (bounding worst-case cost), and
// returns the concatenated per-page text with page markers.
func (e *Extractor) Extract(data []byte) (doc Document, err error) {
	// The underlying parser panics on some malformed xref tables;
	// surface those as ErrUnreadable like any other parse failure.
	defer func() {
		if r := recover(); r != nil {
			doc = Document{}
			err = fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	pages := reader.NumPage()
	if pages == 0 {
		return Document{}, ErrEmpty
	}
	if pages > e.maxPages {
		return Document{}, fmt.Errorf("%w: %d pages (maximum %d)", ErrLimitExceeded, pages, e.maxPages)
	}

	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single broken page does not fail the book; the page
			// marker is still emitted so downstream counts line up.
			text = ""
		}
		fmt.Fprintf(&sb, "\n--- Page %d ---\n%s", i, text)
	}

	return Document{Text: sb.String(), Pages: pages}, nil
}

// MaxPages exposes the configured ceiling for service status reporting.
func (e *Extractor) MaxPages() int {
	return e.maxPages
}
