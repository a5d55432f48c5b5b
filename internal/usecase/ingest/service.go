// Package ingest turns uploaded files into indexed, searchable chunks.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/KunalSewal/RAG-Chatbot/internal/chunker"
	"github.com/KunalSewal/RAG-Chatbot/internal/domain"
	domingest "github.com/KunalSewal/RAG-Chatbot/internal/domain/ingest"
	"github.com/KunalSewal/RAG-Chatbot/internal/metrics"
)

// File is one uploaded document.
type File struct {
	Name string
	Data []byte
}

// Service runs the upload pipeline: extract, chunk, embed, index.
// Files are processed independently with per-file error reporting.
type Service struct {
	extractor    TextExtractor
	embed        Embedder
	index        Inserter
	clearer      Clearer
	chunkSize    int
	chunkOverlap int
	logger       *zap.Logger
}

// New creates an ingestion service.
func New(
	extractor TextExtractor, embed Embedder, index Inserter, clearer Clearer,
	chunkSize, chunkOverlap int, logger *zap.Logger,
) *Service {
	return &Service{
		extractor:    extractor,
		embed:        embed,
		index:        index,
		clearer:      clearer,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		logger:       logger,
	}
}

// Ingest processes the files for one conversation. A bad file fails alone;
// an unreachable embedding model fails the file and every file after it.
func (s *Service) Ingest(ctx context.Context, chatID string, files []File) domingest.Summary {
	results := make([]domingest.Result, len(files))

	for i, f := range files {
		chunks, err := s.ingestFile(ctx, chatID, f)
		if err != nil {
			metrics.DocumentsIngestedTotal.WithLabelValues("error").Inc()
			results[i] = domingest.NewError(f.Name, err)

			if errors.Is(err, domain.ErrModelUnavailable) {
				for j := i + 1; j < len(files); j++ {
					metrics.DocumentsIngestedTotal.WithLabelValues("error").Inc()
					results[j] = domingest.NewError(files[j].Name, err)
				}
				return domingest.Summary{Results: results}
			}
			continue
		}

		metrics.DocumentsIngestedTotal.WithLabelValues("ok").Inc()
		metrics.ChunksIndexedTotal.Add(float64(chunks))
		results[i] = domingest.NewOK(f.Name, chunks)

		s.logger.Info("Document ingested",
			zap.String("chat_id", chatID),
			zap.String("filename", f.Name),
			zap.Int("chunks", chunks))
	}

	return domingest.Summary{Results: results}
}

// Clear drops every indexed chunk.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.clearer.Clear(ctx); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	s.logger.Info("Vector index cleared")
	return nil
}

// ingestFile runs one file through the pipeline and returns the chunk count.
func (s *Service) ingestFile(ctx context.Context, chatID string, f File) (int, error) {
	text, err := s.extractor.Text(f.Name, f.Data)
	if err != nil {
		return 0, fmt.Errorf("extract %q: %w", f.Name, err)
	}
	if text == "" {
		return 0, fmt.Errorf("no text in %q: %w", f.Name, domain.ErrUnsupportedFormat)
	}

	chunks, err := chunker.Split(text, s.chunkSize, s.chunkOverlap)
	if err != nil {
		return 0, fmt.Errorf("chunk %q: %w", f.Name, err)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	batch, err := s.batchEmbed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed %q: %w", f.Name, err)
	}

	records := make([]domain.Record, len(chunks))
	for i, c := range chunks {
		records[i] = domain.Record{
			ID:      recordID(chatID, f.Name, c.Ordinal),
			Text:    c.Text,
			Source:  f.Name,
			ChatID:  chatID,
			Ordinal: c.Ordinal,
			Vector:  batch.Embeddings[i],
		}
	}

	if err := s.index.Insert(ctx, records); err != nil {
		return 0, fmt.Errorf("index %q: %w", f.Name, err)
	}

	return len(chunks), nil
}

// batchEmbed uses native batching when the embedder supports it.
func (s *Service) batchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := s.embed.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, s.embed, texts)
}

// recordID builds a deterministic chunk ID. The zero-padded ordinal keeps
// lexicographic ID order equal to document order, which the index relies on
// for stable tie-breaking.
func recordID(chatID, filename string, ordinal int) string {
	return fmt.Sprintf("%s-%s-%06d", chatID, sanitize(filename), ordinal)
}

// sanitize maps a filename to an ID-safe slug.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, name)
}
