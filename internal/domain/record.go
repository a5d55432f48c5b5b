package domain

// Record is one indexed chunk: the embedding vector, the originating text,
// and the metadata needed for citations and chat isolation.
type Record struct {
	ID      string
	Text    string
	Source  string // originating filename
	ChatID  string // isolation tag; searches must never cross it
	Ordinal int    // chunk position within the source document
	Vector  []float32
}

// SearchHit is a Record returned from a similarity search.
type SearchHit struct {
	Record
	Similarity float32
}
