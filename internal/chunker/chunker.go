// Package chunker splits extracted document text into overlapping fixed-length
// windows for independent retrieval.
package chunker

import (
	"fmt"

	"github.com/KunalSewal/RAG-Chatbot/internal/domain"
)

// Chunk is one window of a document's text.
type Chunk struct {
	Ordinal int    // position within the document, starting at 0
	Text    string
	Start   int // rune offset of the window within the original text
}

// Split cuts text into windows of size runes where each window after the first
// starts overlap runes before the previous window's end. The final window may
// be shorter. Windows cover the input with no gaps: dropping the first overlap
// runes of every window after the first and concatenating reconstructs the
// input exactly.
//
// Split is a pure function. It returns domain.ErrInvalidChunking when
// size <= 0, overlap < 0, or overlap >= size.
func Split(text string, size, overlap int) ([]Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d: %w", size, domain.ErrInvalidChunking)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d: %w", overlap, domain.ErrInvalidChunking)
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d: %w",
			overlap, size, domain.ErrInvalidChunking)
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	step := size - overlap
	var chunks []Chunk
	for start := 0; ; start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Ordinal: len(chunks),
			Text:    string(runes[start:end]),
			Start:   start,
		})
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}
