// Package extract pulls plain text out of uploaded documents.
package extract

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/KunalSewal/RAG-Chatbot/internal/domain"
)

// Extractor converts an uploaded file into plain text.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor { return &Extractor{} }

// Text extracts and normalizes the textual content of a file. The format is
// chosen by extension: .pdf, .txt and .md are supported. Anything else fails
// with domain.ErrUnsupportedFormat so that callers can report the file and
// move on to its batch siblings.
func (e *Extractor) Text(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		text, err := pdfText(data)
		if err != nil {
			return "", fmt.Errorf("extract pdf %s: %v: %w", filename, err, domain.ErrUnsupportedFormat)
		}
		return Normalize(text), nil
	case ".txt", ".md":
		return Normalize(string(data)), nil
	default:
		return "", fmt.Errorf("file %s: %w", filename, domain.ErrUnsupportedFormat)
	}
}

func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// Normalize collapses runs of whitespace into single spaces and trims the
// result. PDF extraction in particular leaves ragged line breaks that would
// otherwise pollute chunk boundaries.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
