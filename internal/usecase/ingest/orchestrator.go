package ingest

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docsift/docsift/internal/domain"
	"github.com/docsift/docsift/internal/logger"
	"github.com/docsift/docsift/internal/metrics"
	"github.com/docsift/docsift/internal/segment"
)

// Options holds the pipeline tuning knobs.
type Options struct {
	ChunkTokens     int // token budget per chunk
	EmbedBatchSize  int // texts per embedding API call
	UpsertBatchSize int // points per vector store write
	Dimensions      int // embedding vector size
	Workers         int // concurrent pipeline workers
	QueueSize       int // pending jobs before uploads are rejected
}

func (o *Options) applyDefaults() {
	if o.ChunkTokens <= 0 {
		o.ChunkTokens = 400
	}
	if o.EmbedBatchSize <= 0 {
		o.EmbedBatchSize = 64
	}
	if o.UpsertBatchSize <= 0 {
		o.UpsertBatchSize = 100
	}
	if o.Dimensions <= 0 {
		o.Dimensions = 384
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
}

// Orchestrator runs the ingestion pipeline for a single document:
// parsing, chunking, embedding, storing. Each stage is persisted to the
// document store before it runs, so a status poll always reflects the
// current step.
type Orchestrator struct {
	store     DocumentStore
	index     VectorIndex
	embedder  domain.BatchEmbedder
	extractor PageExtractor
	opts      Options
}

// NewOrchestrator creates a pipeline orchestrator.
func NewOrchestrator(
	store DocumentStore,
	index VectorIndex,
	embedder domain.BatchEmbedder,
	extractor PageExtractor,
	opts Options,
) *Orchestrator {
	opts.applyDefaults()
	return &Orchestrator{
		store:     store,
		index:     index,
		embedder:  embedder,
		extractor: extractor,
		opts:      opts,
	}
}

// Process runs the full pipeline. Any stage failure marks the document
// failed with the reason and returns the error.
func (o *Orchestrator) Process(ctx context.Context, userID, docID string, raw []byte) (domain.IngestSummary, error) {
	summary, err := o.process(ctx, userID, docID, raw)
	if err != nil {
		if markErr := o.store.MarkFailed(ctx, docID, err.Error()); markErr != nil {
			logger.FromContext(ctx).Error("Failed to persist failure",
				zap.String("doc_id", docID), zap.Error(markErr))
		}
		metrics.IngestDocumentsTotal.WithLabelValues("failed").Inc()
		return domain.IngestSummary{Status: domain.StatusFailed}, err
	}

	metrics.IngestDocumentsTotal.WithLabelValues("ready").Inc()
	return summary, nil
}

func (o *Orchestrator) process(ctx context.Context, userID, docID string, raw []byte) (domain.IngestSummary, error) {
	log := logger.FromContext(ctx).With(
		zap.String("user_id", userID),
		zap.String("doc_id", docID),
	)

	// Replayed documents skip parsing and chunking entirely: the chunk
	// store is the source of truth for what this document contains.
	chunks, err := o.store.GetChunks(ctx, docID)
	if err != nil {
		return domain.IngestSummary{}, fmt.Errorf("check existing chunks: %w", err)
	}

	if len(chunks) > 0 {
		log.Info("Skipping parsing, chunks already stored", zap.Int("chunks", len(chunks)))
		metrics.IngestDocumentsTotal.WithLabelValues("deduplicated").Inc()
	} else {
		chunks, err = o.parseAndChunk(ctx, docID, raw)
		if err != nil {
			return domain.IngestSummary{}, err
		}
	}

	total := len(chunks)

	vectors, err := o.embedChunks(ctx, docID, chunks)
	if err != nil {
		return domain.IngestSummary{}, err
	}

	if err := o.storePoints(ctx, userID, docID, chunks, vectors); err != nil {
		return domain.IngestSummary{}, err
	}

	if err := o.store.MarkReady(ctx, docID, total); err != nil {
		return domain.IngestSummary{}, fmt.Errorf("mark ready: %w", err)
	}

	log.Info("Document ready", zap.Int("chunks_stored", total))
	return domain.IngestSummary{Status: domain.StatusReady, ChunksStored: total}, nil
}

// parseAndChunk extracts pages, segments them into token-budgeted chunks
// and persists the chunks.
func (o *Orchestrator) parseAndChunk(ctx context.Context, docID string, raw []byte) ([]domain.Chunk, error) {
	if err := o.store.SetStatus(ctx, docID, domain.StatusParsing, 0); err != nil {
		return nil, fmt.Errorf("set status parsing: %w", err)
	}

	parseStart := time.Now()
	pages, err := o.extractor.Pages(raw)
	metrics.IngestStageDuration.WithLabelValues("parsing").Observe(time.Since(parseStart).Seconds())
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}

	if err := o.store.SetStatus(ctx, docID, domain.StatusChunking, 0); err != nil {
		return nil, fmt.Errorf("set status chunking: %w", err)
	}

	chunkStart := time.Now()
	segments := segment.Split(pages, o.opts.ChunkTokens)
	metrics.IngestStageDuration.WithLabelValues("chunking").Observe(time.Since(chunkStart).Seconds())

	if len(segments) == 0 {
		return nil, domain.ErrNoChunks
	}

	chunks := make([]domain.Chunk, len(segments))
	for i, seg := range segments {
		chunks[i] = domain.Chunk{
			ID:         uuid.NewString(),
			DocumentID: docID,
			Index:      seg.Index,
			PageNumber: seg.PageNumber,
			Text:       domain.EncodeText(seg.Text),
		}
	}

	if err := o.store.SetStatus(ctx, docID, domain.StatusChunking, len(chunks)); err != nil {
		return nil, fmt.Errorf("set chunk total: %w", err)
	}
	if err := o.store.InsertChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("save chunks: %w", err)
	}

	return chunks, nil
}

// embedChunks vectorizes chunk texts in batches, preserving chunk order.
func (o *Orchestrator) embedChunks(ctx context.Context, docID string, chunks []domain.Chunk) ([][]float32, error) {
	if err := o.store.SetStatus(ctx, docID, domain.StatusEmbedding, len(chunks)); err != nil {
		return nil, fmt.Errorf("set status embedding: %w", err)
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		text, err := domain.DecodeText(ch.Text)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", ch.Index, err)
		}
		texts[i] = text
	}

	start := time.Now()
	defer func() {
		metrics.IngestStageDuration.WithLabelValues("embedding").Observe(time.Since(start).Seconds())
	}()

	vectors := make([][]float32, 0, len(texts))
	for from := 0; from < len(texts); from += o.opts.EmbedBatchSize {
		to := min(from+o.opts.EmbedBatchSize, len(texts))

		result, err := o.embedder.BatchEmbed(ctx, texts[from:to])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d..%d: %w", from, to, err)
		}
		vectors = append(vectors, result.Embeddings...)
	}

	return vectors, nil
}

// storePoints ensures the per-user collection and upserts all points.
func (o *Orchestrator) storePoints(
	ctx context.Context, userID, docID string,
	chunks []domain.Chunk, vectors [][]float32,
) error {
	if err := o.store.SetStatus(ctx, docID, domain.StatusStoring, len(chunks)); err != nil {
		return fmt.Errorf("set status storing: %w", err)
	}

	start := time.Now()
	defer func() {
		metrics.IngestStageDuration.WithLabelValues("storing").Observe(time.Since(start).Seconds())
	}()

	if err := o.index.EnsureCollection(ctx, userID, o.opts.Dimensions); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrVectorStore, err)
	}

	points := make([]domain.VectorPoint, len(chunks))
	for i, ch := range chunks {
		points[i] = domain.VectorPoint{
			ID:     domain.PointID(docID, ch.Index),
			Vector: vectors[i],
			Payload: domain.PointPayload{
				DocID:      docID,
				UserID:     userID,
				Text:       ch.Text,
				PageNumber: ch.PageNumber,
				ChunkIndex: ch.Index,
			},
		}
	}

	if err := o.index.UpsertPoints(ctx, userID, points, o.opts.UpsertBatchSize); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrVectorStore, err)
	}
	return nil
}
