package ragchat

import "github.com/KunalSewal/RAG-Chatbot/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidChunking   = domain.ErrInvalidChunking
	ErrUnsupportedFormat = domain.ErrUnsupportedFormat
	ErrModelUnavailable  = domain.ErrModelUnavailable
	ErrCompletionFailed  = domain.ErrCompletionFailed
	ErrIndexUnavailable  = domain.ErrIndexUnavailable
)
