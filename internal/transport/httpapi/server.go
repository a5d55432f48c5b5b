// Package httpapi exposes the service over HTTP: document upload, question
// answering (whole and streamed), conversation management, and health.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/KunalSewal/RAG-Chatbot/internal/domain"
	healthuc "github.com/KunalSewal/RAG-Chatbot/internal/usecase/health"
	ingestuc "github.com/KunalSewal/RAG-Chatbot/internal/usecase/ingest"
)

// maxUploadBytes caps one multipart upload request.
const maxUploadBytes = 64 << 20

// ErrorCode identifies an error class in API responses.
type ErrorCode string

// API error codes.
const (
	CodeBadRequest        ErrorCode = "bad_request"
	CodeValidationFailed  ErrorCode = "validation_failed"
	CodeUnsupportedFormat ErrorCode = "unsupported_format"
	CodeModelUnavailable  ErrorCode = "model_unavailable"
	CodeCompletionFailed  ErrorCode = "completion_failed"
	CodeIndexUnavailable  ErrorCode = "index_unavailable"
	CodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ConversationStore is the memory surface the API exposes directly.
type ConversationStore interface {
	Get(id string) []domain.Turn
	Delete(id string) bool
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server routes HTTP requests to the usecase services.
type Server struct {
	ingest        *ingestuc.Service
	query         QueryService
	conversations ConversationStore
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// QueryService answers questions, whole or streamed.
type QueryService interface {
	Answer(ctx context.Context, conversationID, question string, topK int) (domain.Answer, error)
	Stream(ctx context.Context, conversationID, question string, topK int, fn func(fragment string) error) (domain.Answer, error)
}

// NewServer creates an HTTP API server.
func NewServer(
	ingest *ingestuc.Service,
	query QueryService,
	conversations ConversationStore,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		ingest:        ingest,
		query:         query,
		conversations: conversations,
		health:        health,
		logger:        logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrUnsupportedFormat, http.StatusUnsupportedMediaType, CodeUnsupportedFormat),
		sentinelHandler(domain.ErrInvalidChunking, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrModelUnavailable, http.StatusBadGateway, CodeModelUnavailable),
		sentinelHandler(domain.ErrCompletionFailed, http.StatusBadGateway, CodeCompletionFailed),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, CodeIndexUnavailable),
	}
	return s
}

// Routes mounts every endpoint on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/documents/upload", s.UploadDocuments)
	r.Delete("/documents", s.ClearDocuments)
	r.Post("/query", s.Query)
	r.Post("/query/stream", s.QueryStream)
	r.Get("/conversations/{id}/history", s.ConversationHistory)
	r.Delete("/conversations/{id}", s.DeleteConversation)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// UploadResult is the per-file outcome in an upload response.
type UploadResult struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Chunks   int    `json:"chunks,omitempty"`
	Error    string `json:"error,omitempty"`
}

// UploadResponse summarizes one batch upload.
type UploadResponse struct {
	FilesProcessed int            `json:"files_processed"`
	FilesFailed    int            `json:"files_failed"`
	ChunksCreated  int            `json:"chunks_created"`
	Results        []UploadResult `json:"results"`
}

// UploadDocuments handles POST /documents/upload.
func (s *Server) UploadDocuments(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid multipart form: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "At least one file is required")
		return
	}

	conversationID := r.FormValue("conversation_id")
	if conversationID == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "conversation_id is required")
		return
	}

	files := make([]ingestuc.File, 0, len(headers))
	for _, h := range headers {
		data, err := readUpload(h)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "Read "+h.Filename+": "+err.Error())
			return
		}
		files = append(files, ingestuc.File{Name: h.Filename, Data: data})
	}

	summary := s.ingest.Ingest(r.Context(), conversationID, files)

	results := make([]UploadResult, len(summary.Results))
	for i, res := range summary.Results {
		results[i] = UploadResult{
			Filename: res.Filename(),
			Status:   string(res.Status()),
			Chunks:   res.Chunks(),
		}
		if res.Err() != nil {
			results[i].Error = safeDomainMessage(res.Err())
		}
	}

	status := http.StatusOK
	if summary.Processed() == 0 {
		// Nothing was ingested; surface the first failure's class.
		status = statusForError(summary.Results[0].Err())
	}

	writeJSON(w, status, UploadResponse{
		FilesProcessed: summary.Processed(),
		FilesFailed:    summary.Failed(),
		ChunksCreated:  summary.ChunksCreated(),
		Results:        results,
	})
}

func readUpload(h *multipart.FileHeader) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// ClearDocuments handles DELETE /documents.
func (s *Server) ClearDocuments(w http.ResponseWriter, r *http.Request) {
	if err := s.ingest.Clear(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// QueryRequest is the body of POST /query and POST /query/stream.
type QueryRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id,omitempty"`
	TopK           int    `json:"top_k,omitempty"`
}

// Query handles POST /query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeQueryRequest(w, r)
	if !ok {
		return
	}

	answer, err := s.query.Answer(r.Context(), req.ConversationID, req.Question, req.TopK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) decodeQueryRequest(w http.ResponseWriter, r *http.Request) (QueryRequest, bool) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return QueryRequest{}, false
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "question is required")
		return QueryRequest{}, false
	}
	if req.TopK < 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "top_k must not be negative")
		return QueryRequest{}, false
	}
	return req, true
}

// HistoryTurn is one conversation turn in a history response.
type HistoryTurn struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// HistoryResponse is the body of GET /conversations/{id}/history.
type HistoryResponse struct {
	ConversationID string        `json:"conversation_id"`
	Turns          []HistoryTurn `json:"turns"`
}

// ConversationHistory handles GET /conversations/{id}/history.
// Unknown conversations return an empty list, not 404.
func (s *Server) ConversationHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	turns := s.conversations.Get(id)
	out := make([]HistoryTurn, len(turns))
	for i, t := range turns {
		out[i] = HistoryTurn{Role: string(t.Role), Content: t.Text, At: t.At}
	}

	writeJSON(w, http.StatusOK, HistoryResponse{ConversationID: id, Turns: out})
}

// DeleteConversation handles DELETE /conversations/{id}.
func (s *Server) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if !s.conversations.Delete(id) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "conversation not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidChunking,
		domain.ErrUnsupportedFormat,
		domain.ErrModelUnavailable,
		domain.ErrCompletionFailed,
		domain.ErrIndexUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

// statusForError maps a domain error to the status used when a whole upload failed.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrInvalidChunking):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrModelUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrIndexUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
