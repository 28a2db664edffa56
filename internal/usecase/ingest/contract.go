package ingest

import (
	"context"

	"github.com/docsift/docsift/internal/domain"
)

// DocumentStore defines the relational storage contract for the pipeline.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *domain.Document) error
	GetDocument(ctx context.Context, userID, docID string) (*domain.Document, error)
	SetStatus(ctx context.Context, docID string, status domain.Status, totalChunks int) error
	MarkReady(ctx context.Context, docID string, totalChunks int) error
	MarkFailed(ctx context.Context, docID, reason string) error
	InsertChunks(ctx context.Context, chunks []domain.Chunk) error
	GetChunks(ctx context.Context, docID string) ([]domain.Chunk, error)
}

// VectorIndex defines the retrieval-side storage contract.
type VectorIndex interface {
	EnsureCollection(ctx context.Context, userID string, dim int) error
	UpsertPoints(ctx context.Context, userID string, points []domain.VectorPoint, batchSize int) error
}

// PageExtractor pulls per-page text out of an uploaded file.
type PageExtractor interface {
	Pages(raw []byte) ([]domain.Page, error)
}
