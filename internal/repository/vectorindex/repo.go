// Package vectorindex stores chunk embeddings in per-user RediSearch
// indexes and serves KNN lookups over them.
package vectorindex

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/docsift/docsift/internal/db"
	"github.com/docsift/docsift/internal/domain"
)

// Hash field names of a stored point.
const (
	fieldDocID      = "doc_id"
	fieldPageNumber = "page_number"
	fieldChunkIndex = "chunk_index"
	fieldText       = "text"
	fieldVector     = "vector"
)

// store is the consumer interface for the vector index (ISP).
type store interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo implements the ingest and query vector index ports.
type Repo struct {
	store store
}

// New creates a vector index repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// EnsureCollection creates the per-user index when it does not exist yet.
// A concurrent create racing us is not an error.
func (r *Repo) EnsureCollection(ctx context.Context, userID string, dim int) error {
	name := domain.CollectionForUser(userID)

	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("index exists %s: %w", name, err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     name,
		Prefixes: []string{keyPrefix(userID)},
		Fields: []db.IndexField{
			{Name: fieldDocID, Type: db.IndexFieldTag},
			{Name: fieldPageNumber, Type: db.IndexFieldNumeric},
			{Name: fieldChunkIndex, Type: db.IndexFieldNumeric},
			{
				Name:           fieldVector,
				Type:           db.IndexFieldVector,
				VectorAlgo:     db.VectorHNSW,
				VectorDim:      dim,
				VectorDistance: db.DistanceCosine,
			},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", name, err)
	}
	return nil
}

// UpsertPoints writes points as hashes in batches of batchSize. Point IDs
// are deterministic, so replaying a document overwrites its old points.
func (r *Repo) UpsertPoints(ctx context.Context, userID string, points []domain.VectorPoint, batchSize int) error {
	if batchSize <= 0 {
		batchSize = len(points)
	}

	for start := 0; start < len(points); start += batchSize {
		end := min(start+batchSize, len(points))

		items := make([]db.HashSetItem, 0, end-start)
		for _, p := range points[start:end] {
			items = append(items, db.HashSetItem{
				Key:    keyPrefix(userID) + p.ID,
				Fields: pointFields(&p),
			})
		}

		if err := r.store.HSetMulti(ctx, items); err != nil {
			return fmt.Errorf("upsert points %d..%d: %w", start, end, err)
		}
	}
	return nil
}

// Search runs a KNN query against the user's index and returns scored
// points, best first.
func (r *Repo) Search(ctx context.Context, userID string, vector []float32, k int) ([]domain.ScoredPoint, error) {
	q := &db.KNNQuery{
		IndexName: domain.CollectionForUser(userID),
		Vector:    vector,
		K:         k,
		ReturnFields: []string{
			fieldDocID, fieldPageNumber, fieldChunkIndex, fieldText, "__vector_score",
		},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("search knn %s: %w", userID, err)
	}
	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	points := make([]domain.ScoredPoint, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		points = append(points, parseEntry(userID, entry))
	}
	return points, nil
}

func keyPrefix(userID string) string {
	return domain.KeyPrefix + userID + ":"
}

func pointFields(p *domain.VectorPoint) map[string]string {
	return map[string]string{
		fieldDocID:      p.Payload.DocID,
		fieldPageNumber: strconv.Itoa(p.Payload.PageNumber),
		fieldChunkIndex: strconv.Itoa(p.Payload.ChunkIndex),
		fieldText:       p.Payload.Text,
		fieldVector:     vectorToBlob(p.Vector),
	}
}

func parseEntry(userID string, entry db.SearchEntry) domain.ScoredPoint {
	p := domain.ScoredPoint{
		ID:    trimKeyPrefix(entry.Key, userID),
		Score: entry.Score,
		Payload: domain.PointPayload{
			DocID:  entry.Fields[fieldDocID],
			UserID: userID,
			Text:   entry.Fields[fieldText],
		},
	}
	if n, err := strconv.Atoi(entry.Fields[fieldPageNumber]); err == nil {
		p.Payload.PageNumber = n
	}
	if n, err := strconv.Atoi(entry.Fields[fieldChunkIndex]); err == nil {
		p.Payload.ChunkIndex = n
	}
	return p
}

func trimKeyPrefix(key, userID string) string {
	prefix := keyPrefix(userID)
	if len(key) > len(prefix) && key[:len(prefix)] == prefix {
		return key[len(prefix):]
	}
	return key
}

// vectorToBlob serializes a vector as little-endian float32 bytes, the
// format FT.SEARCH expects for VECTOR fields.
func vectorToBlob(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
