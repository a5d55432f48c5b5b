package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/KunalSewal/RAG-Chatbot/internal/domain"
)

// StreamFooter is the terminal SSE frame carrying answer attribution.
type StreamFooter struct {
	ConversationID string          `json:"conversation_id"`
	Model          string          `json:"model"`
	Sources        []domain.Source `json:"sources"`
}

// QueryStream handles POST /query/stream. The answer is delivered as SSE
// `data:` frames followed by a terminal `event: sources` frame. A failure
// before the first fragment is a regular JSON error response; after that the
// stream ends with an `event: error` frame.
func (s *Server) QueryStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeQueryRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, CodeInternalError, "streaming is not supported")
		return
	}

	started := false
	start := func() {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		started = true
	}

	answer, err := s.query.Stream(r.Context(), req.ConversationID, req.Question, req.TopK,
		func(fragment string) error {
			if !started {
				start()
			}
			if err := writeSSEData(w, fragment); err != nil {
				return err
			}
			flusher.Flush()
			return nil
		})
	if err != nil {
		if !started {
			s.handleDomainError(w, err)
			return
		}
		// Output already reached the client: the stream can only be aborted.
		s.logger.Warn("stream aborted mid-answer", zap.Error(err))
		writeSSEEvent(w, "error", ErrorResponse{
			Code:    CodeCompletionFailed,
			Message: safeDomainMessage(err),
		})
		flusher.Flush()
		return
	}

	if !started {
		start()
	}

	writeSSEEvent(w, "sources", StreamFooter{
		ConversationID: answer.ConversationID,
		Model:          answer.Model,
		Sources:        answer.Sources,
	})
	flusher.Flush()
}

// writeSSEData emits one data frame. Multi-line fragments get a data: prefix
// per line so the SSE parser reassembles them with the newlines intact.
func writeSSEData(w http.ResponseWriter, text string) error {
	for _, line := range strings.Split(text, "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(w, "\n")
	return err
}

func writeSSEEvent(w http.ResponseWriter, event string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
}
