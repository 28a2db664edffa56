package domain

import "time"

// Status is the pipeline state of a document.
type Status string

// Pipeline states, in processing order. failed is terminal and reachable
// from any non-terminal state.
const (
	StatusQueued    Status = "queued"
	StatusParsing   Status = "parsing"
	StatusChunking  Status = "chunking"
	StatusEmbedding Status = "embedding"
	StatusStoring   Status = "storing"
	StatusReady     Status = "ready"
	StatusFailed    Status = "failed"
)

// pipelineOrder maps each state to its position in the pipeline.
var pipelineOrder = map[Status]int{
	StatusQueued:    0,
	StatusParsing:   1,
	StatusChunking:  2,
	StatusEmbedding: 3,
	StatusStoring:   4,
	StatusReady:     5,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := pipelineOrder[s]
	return ok || s == StatusFailed
}

// Terminal reports whether no further transitions are expected.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusFailed
}

// Processing reports whether the document is mid-pipeline
// (past queued, not yet terminal).
func (s Status) Processing() bool {
	order, ok := pipelineOrder[s]
	return ok && order > 0 && !s.Terminal()
}

// CanTransition reports whether a single pipeline run may move from s to next.
// Transitions advance monotonically along the pipeline; failed is reachable
// from any non-terminal state. A re-delivered job restarts from a terminal
// or mid-pipeline state, so re-entry into the pipeline is also permitted
// from failed and ready.
func (s Status) CanTransition(next Status) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if next == StatusFailed {
		return !s.Terminal()
	}
	if s == StatusFailed || s == StatusReady {
		// re-delivery: the orchestrator re-enters at parsing or embedding
		return next == StatusParsing || next == StatusEmbedding
	}
	return pipelineOrder[next] > pipelineOrder[s]
}

// Document is the durable record of an uploaded file and its pipeline state.
type Document struct {
	ID          string
	UserID      string
	Filename    string
	FileSize    int64
	Status      Status
	Error       string
	TotalChunks int
	JobID       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Chunk is one token-budgeted span of a document's extracted text.
// Text is stored base64-encoded; Index values are unique and contiguous
// from 0 within a document and reconstruct reading order.
type Chunk struct {
	ID         string
	DocumentID string
	Index      int
	PageNumber int
	Text       string // base64-encoded chunk text
	CreatedAt  time.Time
}

// Page is one page of extracted text, as produced by the PDF extractor.
type Page struct {
	Number int
	Text   string
}

// IngestSummary is the terminal result of a successful pipeline run.
type IngestSummary struct {
	Status       Status
	ChunksStored int
}
