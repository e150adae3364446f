package textextract

import (
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

type Result struct {
	Content string
	Pages   int
}

// Supported reports whether contentType identifies a document format this
// package can turn into text.
func Supported(contentType string) bool {
	switch normalize(contentType) {
	case "application/pdf", "text/plain":
		return true
	}
	return false
}

// Extract produces a single text blob from the raw bytes of a document.
func Extract(data io.ReaderAt, size int64, contentType string) (*Result, error) {
	switch normalize(contentType) {
	case "application/pdf":
		return extractPDF(data, size)
	case "text/plain":
		return extractPlain(data, size)
	default:
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}
}

func normalize(contentType string) string {
	// "application/pdf; charset=binary" and friends
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

func extractPDF(data io.ReaderAt, size int64) (*Result, error) {
	reader, err := pdf.NewReader(data, size)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	var sb strings.Builder
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the document.
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	return &Result{Content: sb.String(), Pages: pages}, nil
}

func extractPlain(data io.ReaderAt, size int64) (*Result, error) {
	buf := make([]byte, size)
	if _, err := data.ReadAt(buf, 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read text: %w", err)
	}
	return &Result{Content: string(buf), Pages: 1}, nil
}
