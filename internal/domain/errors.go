package domain

import "errors"

var (
	// ErrInvalidChunking signals chunk window parameters that cannot cover input text.
	ErrInvalidChunking = errors.New("invalid chunking configuration")
	// ErrUnsupportedFormat signals a document whose text cannot be extracted.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrModelUnavailable signals that the embedding model cannot be reached.
	ErrModelUnavailable = errors.New("embedding model unavailable")
	// ErrCompletionFailed signals that the completion service failed for every configured model.
	ErrCompletionFailed = errors.New("completion service failure")
	// ErrIndexUnavailable signals that the vector index cannot be opened or queried.
	ErrIndexUnavailable = errors.New("vector index unavailable")
)
