package ragchat

import (
	"context"
	"time"
)

// Embedder converts text to vector embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Completer produces chat completions, whole or streamed.
type Completer interface {
	Complete(ctx context.Context, model string, msgs []Message) (Completion, error)
	CompleteStream(ctx context.Context, model string, msgs []Message, fn func(fragment string) error) (Completion, error)
}

// Message is one entry in a completion request.
type Message struct {
	Role    string
	Content string
}

// Completion is the outcome of one completion call.
type Completion struct {
	Content string
	Model   string
}

// File is one document to ingest.
type File struct {
	Name string
	Data []byte
}

// UploadResult is the outcome of ingesting one file.
type UploadResult struct {
	Filename string
	Chunks   int
	Err      error
}

// UploadSummary aggregates per-file upload outcomes.
type UploadSummary struct {
	FilesProcessed int
	FilesFailed    int
	ChunksCreated  int
	Results        []UploadResult
}

// Source attributes part of an answer to an indexed chunk.
type Source struct {
	Filename   string
	Preview    string
	Similarity float32
}

// Answer is a resolved question.
type Answer struct {
	Text           string
	Model          string
	ConversationID string
	Sources        []Source
}

// Turn is one conversation entry.
type Turn struct {
	Role    string
	Content string
	At      time.Time
}

// HealthStatus represents the aggregated component health.
type HealthStatus struct {
	Status string            // "ok" or "degraded"
	Checks map[string]string // component name to "ok"/"error"
}
