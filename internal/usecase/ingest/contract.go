package ingest

import (
	"context"

	"github.com/KunalSewal/RAG-Chatbot/internal/domain"
)

// TextExtractor pulls plain text out of an uploaded file.
type TextExtractor interface {
	Text(filename string, data []byte) (string, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Inserter writes records into the vector index.
type Inserter interface {
	Insert(ctx context.Context, records []domain.Record) error
}

// Clearer drops every record from the vector index.
type Clearer interface {
	Clear(ctx context.Context) error
}
