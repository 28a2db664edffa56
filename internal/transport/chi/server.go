package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/docsift/docsift/internal/domain"
	"github.com/docsift/docsift/internal/metrics"
	"github.com/docsift/docsift/internal/usecase/health"
	"github.com/docsift/docsift/internal/usecase/ingest"
)

const userIDHeader = "X-User-ID"

// IngestService accepts uploads and reports per-document progress.
type IngestService interface {
	Submit(ctx context.Context, userID, filename string, raw []byte) (*domain.Document, error)
	Status(ctx context.Context, userID, docID string) (ingest.StatusReport, error)
}

// QueryService answers questions over a user's documents.
type QueryService interface {
	Answer(ctx context.Context, userID, question string) (domain.Answer, error)
}

// HealthService reports aggregated dependency health.
type HealthService interface {
	Check(ctx context.Context) health.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the HTTP API: upload, status polling, query, health, metrics.
type Server struct {
	ingest        IngestService
	query         QueryService
	health        HealthService
	logger        *zap.Logger
	maxUpload     int64
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. maxUpload bounds the accepted
// file size in bytes.
func NewServer(ing IngestService, query QueryService, hlth HealthService, maxUpload int64, logger *zap.Logger) *Server {
	s := &Server{
		ingest:    ing,
		query:     query,
		health:    hlth,
		logger:    logger,
		maxUpload: maxUpload,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrInvalidUserID, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidUpload, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrEmptyQuestion, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrQueueFull, http.StatusServiceUnavailable, codeQueueFull),
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway, codeEmbeddingProviderError),
		sentinelHandler(domain.ErrChatProvider, http.StatusBadGateway, codeChatProviderError),
		sentinelHandler(domain.ErrVectorStore, http.StatusBadGateway, codeVectorStoreError),
	}
	return s
}

// Routes assembles the router with the full middleware chain.
func (s *Server) Routes(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", userIDHeader},
	}))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Post("/api/documents/upload", s.UploadDocument)
	r.Get("/api/documents/{docID}/status", s.DocumentStatus)
	r.Post("/api/query", s.Query)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	return r
}

type uploadResponse struct {
	DocID    string `json:"doc_id"`
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	Filename string `json:"filename"`
}

// UploadDocument handles POST /api/documents/upload.
func (s *Server) UploadDocument(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, userIDHeader+" header is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/pdf" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Only PDF files are supported")
		return
	}

	// Read one byte past the limit so oversized uploads are detected
	// without buffering the whole body.
	raw, err := io.ReadAll(io.LimitReader(file, s.maxUpload+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "failed to read file: "+err.Error())
		return
	}
	if len(raw) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Uploaded file is empty")
		return
	}
	if int64(len(raw)) > s.maxUpload {
		writeError(w, http.StatusRequestEntityTooLarge, codeFileTooLarge,
			fmt.Sprintf("File exceeds the %d byte limit", s.maxUpload))
		return
	}
	if !strings.HasPrefix(string(raw[:min(5, len(raw))]), "%PDF-") {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Only PDF files are supported")
		return
	}

	doc, err := s.ingest.Submit(r.Context(), userID, header.Filename, raw)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, uploadResponse{
		DocID:    doc.ID,
		JobID:    doc.JobID,
		Status:   "processing",
		Filename: doc.Filename,
	})
}

type statusResponse struct {
	DocID        string `json:"doc_id"`
	Status       string `json:"status"`
	Step         string `json:"step,omitempty"`
	TotalChunks  int    `json:"total_chunks,omitempty"`
	ChunksStored int    `json:"chunks_stored,omitempty"`
	Error        string `json:"error,omitempty"`
}

// DocumentStatus handles GET /api/documents/{docID}/status.
func (s *Server) DocumentStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, userIDHeader+" header is required")
		return
	}
	docID := chi.URLParam(r, "docID")

	report, err := s.ingest.Status(r.Context(), userID, docID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		DocID:        docID,
		Status:       report.Status,
		Step:         report.Step,
		TotalChunks:  report.TotalChunks,
		ChunksStored: report.ChunksStored,
		Error:        report.Error,
	})
}

type queryRequest struct {
	Question string `json:"question"`
}

type citationResponse struct {
	Label      string `json:"label"`
	ID         string `json:"id"`
	DocID      string `json:"doc_id"`
	PageNumber int    `json:"page_number"`
	ChunkIndex int    `json:"chunk_index"`
}

type queryResponse struct {
	Answer     string             `json:"answer"`
	Citations  []citationResponse `json:"citations"`
	Confidence float64            `json:"confidence"`
}

// Query handles POST /api/query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, userIDHeader+" header is required")
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	answer, err := s.query.Answer(r.Context(), userID, req.Question)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	citations := make([]citationResponse, len(answer.Citations))
	for i, c := range answer.Citations {
		citations[i] = citationResponse{
			Label:      c.Label,
			ID:         c.ID,
			DocID:      c.DocID,
			PageNumber: c.PageNumber,
			ChunkIndex: c.ChunkIndex,
		}
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Answer:     answer.Text,
		Citations:  citations,
		Confidence: answer.Confidence,
	})
}

type healthResponse struct {
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
	if report.Status != health.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
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
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrInvalidUserID,
		domain.ErrInvalidUpload,
		domain.ErrEmptyQuestion,
		domain.ErrQueueFull,
		domain.ErrEmbeddingProvider,
		domain.ErrChatProvider,
		domain.ErrVectorStore,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}
