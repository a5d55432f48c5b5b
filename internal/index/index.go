// Package index stores chunk embeddings in a chromem-go collection.
//
// Unlike conversation memory, the index is durable: records written to a
// persistent store survive process restarts at the configured location.
package index

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/KunalSewal/RAG-Chatbot/internal/domain"
)

// Metadata keys on every stored record.
const (
	metaChatID  = "chat_id"
	metaSource  = "source"
	metaOrdinal = "ordinal"
)

// Index wraps a chromem-go collection with chat-scoped search.
//
// Search results are ordered by descending cosine similarity; equal
// similarities are broken by ascending record ID. Record IDs carry
// zero-padded chunk ordinals, so tied chunks of one document surface in
// document order. The tie-break is deterministic across processes because it
// depends only on stored data.
type Index struct {
	mu         sync.RWMutex
	db         *chromem.DB
	col        *chromem.Collection
	collection string
}

// NewPersistent opens (or creates) an index stored on disk at path.
func NewPersistent(path, collection string, compress bool) (*Index, error) {
	db, err := chromem.NewPersistentDB(path, compress)
	if err != nil {
		return nil, fmt.Errorf("open persistent index at %s: %v: %w", path, err, domain.ErrIndexUnavailable)
	}
	return newIndex(db, collection)
}

// NewInMemory creates a volatile index. Used by tests and ephemeral deployments.
func NewInMemory(collection string) (*Index, error) {
	return newIndex(chromem.NewDB(), collection)
}

func newIndex(db *chromem.DB, collection string) (*Index, error) {
	col, err := db.GetOrCreateCollection(collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get collection %s: %v: %w", collection, err, domain.ErrIndexUnavailable)
	}
	return &Index{db: db, col: col, collection: collection}, nil
}

// Insert stores records. Each record must carry its vector; records sharing an
// ID replace the previous version, which makes re-uploading a document an
// in-place refresh of its chunks.
func (i *Index) Insert(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(records))
	for n, r := range records {
		docs[n] = chromem.Document{
			ID:      r.ID,
			Content: r.Text,
			Metadata: map[string]string{
				metaChatID:  r.ChatID,
				metaSource:  r.Source,
				metaOrdinal: strconv.Itoa(r.Ordinal),
			},
			Embedding: r.Vector,
		}
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	if err := i.col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add %d records: %v: %w", len(records), err, domain.ErrIndexUnavailable)
	}
	return nil
}

// Search returns up to topK records whose chat ID matches chatID, ordered by
// descending similarity with the documented tie-break. A chat with no records
// yields an empty result, never an error: the caller falls back to answering
// without grounding.
func (i *Index) Search(ctx context.Context, vector []float32, chatID string, topK int) ([]domain.SearchHit, error) {
	if topK <= 0 {
		return nil, nil
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	// chromem rejects NResults above the collection size.
	if total := i.col.Count(); total == 0 {
		return nil, nil
	} else if topK > total {
		topK = total
	}

	results, err := i.col.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: vector,
		NResults:       topK,
		Where:          map[string]string{metaChatID: chatID},
	})
	if err != nil {
		return nil, fmt.Errorf("query index: %v: %w", err, domain.ErrIndexUnavailable)
	}

	hits := make([]domain.SearchHit, len(results))
	for n, res := range results {
		ordinal, _ := strconv.Atoi(res.Metadata[metaOrdinal])
		hits[n] = domain.SearchHit{
			Record: domain.Record{
				ID:      res.ID,
				Text:    res.Content,
				Source:  res.Metadata[metaSource],
				ChatID:  res.Metadata[metaChatID],
				Ordinal: ordinal,
				Vector:  res.Embedding,
			},
			Similarity: res.Similarity,
		}
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Similarity != hits[b].Similarity {
			return hits[a].Similarity > hits[b].Similarity
		}
		return hits[a].ID < hits[b].ID
	})

	return hits, nil
}

// Clear irreversibly removes every record by dropping and recreating the
// collection. For a persistent index this also removes the on-disk data.
func (i *Index) Clear(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.db.DeleteCollection(i.collection); err != nil {
		return fmt.Errorf("delete collection %s: %v: %w", i.collection, err, domain.ErrIndexUnavailable)
	}
	col, err := i.db.GetOrCreateCollection(i.collection, nil, nil)
	if err != nil {
		return fmt.Errorf("recreate collection %s: %v: %w", i.collection, err, domain.ErrIndexUnavailable)
	}
	i.col = col
	return nil
}

// Count returns the total number of stored records across all chats.
func (i *Index) Count() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.col.Count()
}

// Ping reports whether the index is usable.
func (i *Index) Ping(_ context.Context) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.col == nil {
		return domain.ErrIndexUnavailable
	}
	return nil
}
