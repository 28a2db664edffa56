// Package extract pulls per-page plain text out of uploaded documents.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/docsift/docsift/internal/domain"
)

// PDF extracts text from PDF files page by page. The zero value is ready
// to use.
type PDF struct{}

func NewPDF() *PDF {
	return &PDF{}
}

// Pages parses raw PDF bytes and returns the plain text of each page that
// contains any. Page numbers are 1-based and preserved even when empty
// pages in between are skipped.
func (e *PDF) Pages(raw []byte) ([]domain.Page, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	total := reader.NumPage()
	pages := make([]domain.Page, 0, total)
	for num := 1; num <= total; num++ {
		page := reader.Page(num)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single malformed page should not sink the whole
			// document.
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		pages = append(pages, domain.Page{Number: num, Text: text})
	}

	if len(pages) == 0 {
		return nil, domain.ErrNoExtractableText
	}
	return pages, nil
}
