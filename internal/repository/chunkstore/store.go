// Package chunkstore persists documents and their chunks in PostgreSQL.
package chunkstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docsift/docsift/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// Store implements the document and chunk repositories on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL, verifies connectivity and bootstraps the
// schema. The schema is idempotent, so concurrent startups are safe.
func New(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateDocument inserts a new document row.
func (s *Store) CreateDocument(ctx context.Context, doc *domain.Document) error {
	const q = `
		INSERT INTO documents (id, user_id, filename, file_size, status, job_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
	`
	_, err := s.pool.Exec(ctx, q,
		doc.ID, doc.UserID, doc.Filename, doc.FileSize, string(doc.Status), doc.JobID)
	if err != nil {
		return fmt.Errorf("insert document %s: %w", doc.ID, err)
	}
	return nil
}

// GetDocument returns a document owned by the given user.
func (s *Store) GetDocument(ctx context.Context, userID, docID string) (*domain.Document, error) {
	const q = `
		SELECT id, user_id, filename, file_size, status, error, total_chunks, job_id, created_at, updated_at
		FROM documents
		WHERE id = $1 AND user_id = $2
	`
	var (
		doc    domain.Document
		status string
	)
	err := s.pool.QueryRow(ctx, q, docID, userID).Scan(
		&doc.ID, &doc.UserID, &doc.Filename, &doc.FileSize, &status,
		&doc.Error, &doc.TotalChunks, &doc.JobID, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select document %s: %w", docID, err)
	}
	doc.Status = domain.Status(status)
	return &doc, nil
}

// SetStatus moves a document to the given pipeline stage, records how
// many chunks are known so far and clears any previous error.
func (s *Store) SetStatus(ctx context.Context, docID string, status domain.Status, totalChunks int) error {
	const q = `
		UPDATE documents
		SET status = $2, total_chunks = $3, error = '', updated_at = now()
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, q, docID, string(status), totalChunks)
	if err != nil {
		return fmt.Errorf("update status %s: %w", docID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkReady finalizes a document with its stored chunk count.
func (s *Store) MarkReady(ctx context.Context, docID string, totalChunks int) error {
	const q = `
		UPDATE documents
		SET status = $2, total_chunks = $3, error = '', updated_at = now()
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, q, docID, string(domain.StatusReady), totalChunks)
	if err != nil {
		return fmt.Errorf("mark ready %s: %w", docID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkFailed records a terminal failure with its reason.
func (s *Store) MarkFailed(ctx context.Context, docID, reason string) error {
	const q = `
		UPDATE documents
		SET status = $2, error = $3, updated_at = now()
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, q, docID, string(domain.StatusFailed), reason)
	if err != nil {
		return fmt.Errorf("mark failed %s: %w", docID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// InsertChunks stores all chunks of a document in a single transaction.
// Existing rows with the same (document_id, chunk_index) are left intact,
// which makes replayed ingestions idempotent.
func (s *Store) InsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	const q = `
		INSERT INTO document_chunks (id, document_id, chunk_index, page_number, text, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (document_id, chunk_index) DO NOTHING
	`

	batch := &pgx.Batch{}
	for i := range chunks {
		ch := &chunks[i]
		batch.Queue(q, ch.ID, ch.DocumentID, ch.Index, ch.PageNumber, ch.Text)
	}

	results := tx.SendBatch(ctx, batch)
	for range chunks {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("insert chunk batch: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close chunk batch: %w", err)
	}

	return tx.Commit(ctx)
}

// GetChunks returns all chunks of a document ordered by chunk index.
func (s *Store) GetChunks(ctx context.Context, docID string) ([]domain.Chunk, error) {
	const q = `
		SELECT id, document_id, chunk_index, page_number, text, created_at
		FROM document_chunks
		WHERE document_id = $1
		ORDER BY chunk_index ASC
	`
	rows, err := s.pool.Query(ctx, q, docID)
	if err != nil {
		return nil, fmt.Errorf("select chunks %s: %w", docID, err)
	}
	defer rows.Close()

	var out []domain.Chunk
	for rows.Next() {
		var ch domain.Chunk
		if err := rows.Scan(&ch.ID, &ch.DocumentID, &ch.Index, &ch.PageNumber, &ch.Text, &ch.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}
