package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/docsift/docsift/internal/domain"
	"github.com/docsift/docsift/internal/logger"
	"github.com/docsift/docsift/internal/metrics"
)

// StatusReport is the client-facing projection of a document's state.
// Mid-pipeline stages collapse into "processing" with the current step.
type StatusReport struct {
	Status       string
	Step         string
	TotalChunks  int
	ChunksStored int
	Error        string
}

type job struct {
	userID string
	docID  string
	raw    []byte
}

type processor interface {
	Process(ctx context.Context, userID, docID string, raw []byte) (domain.IngestSummary, error)
}

// Dispatcher accepts uploads, records them as queued and hands them to a
// bounded worker pool. A full queue rejects the upload rather than
// blocking the request.
type Dispatcher struct {
	store    DocumentStore
	pipeline processor
	pool     *ants.Pool
	jobs     chan job
	log      *zap.Logger

	wg   sync.WaitGroup
	once sync.Once
}

// NewDispatcher starts the worker pool and the queue feeder.
func NewDispatcher(store DocumentStore, pipeline processor, opts Options, log *zap.Logger) (*Dispatcher, error) {
	opts.applyDefaults()

	pool, err := ants.NewPool(opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	d := &Dispatcher{
		store:    store,
		pipeline: pipeline,
		pool:     pool,
		jobs:     make(chan job, opts.QueueSize),
		log:      log,
	}

	d.wg.Add(1)
	go d.feed()

	return d, nil
}

// Submit registers the upload and enqueues it for processing. It returns
// the created document, already carrying its job id, or ErrQueueFull when
// the pipeline cannot keep up.
func (d *Dispatcher) Submit(ctx context.Context, userID, filename string, raw []byte) (*domain.Document, error) {
	if !domain.ValidUserID(userID) {
		return nil, domain.ErrInvalidUserID
	}

	doc := &domain.Document{
		ID:       uuid.NewString(),
		UserID:   userID,
		Filename: filename,
		FileSize: int64(len(raw)),
		Status:   domain.StatusQueued,
		JobID:    uuid.NewString(),
	}

	if err := d.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	select {
	case d.jobs <- job{userID: userID, docID: doc.ID, raw: raw}:
		metrics.IngestQueueDepth.Set(float64(len(d.jobs)))
	default:
		if err := d.store.MarkFailed(ctx, doc.ID, domain.ErrQueueFull.Error()); err != nil {
			d.log.Error("Failed to mark rejected document",
				zap.String("doc_id", doc.ID), zap.Error(err))
		}
		return nil, domain.ErrQueueFull
	}

	d.log.Info("Document queued",
		zap.String("user_id", userID),
		zap.String("doc_id", doc.ID),
		zap.String("filename", filename),
		zap.Int("size_bytes", len(raw)))

	return doc, nil
}

// Status returns the client-facing state of a document.
func (d *Dispatcher) Status(ctx context.Context, userID, docID string) (StatusReport, error) {
	doc, err := d.store.GetDocument(ctx, userID, docID)
	if err != nil {
		return StatusReport{}, err
	}

	switch doc.Status {
	case domain.StatusReady:
		return StatusReport{Status: string(domain.StatusReady), ChunksStored: doc.TotalChunks}, nil
	case domain.StatusFailed:
		return StatusReport{Status: string(domain.StatusFailed), Error: doc.Error}, nil
	case domain.StatusQueued:
		return StatusReport{Status: string(domain.StatusQueued)}, nil
	default:
		return StatusReport{
			Status:      "processing",
			Step:        string(doc.Status),
			TotalChunks: doc.TotalChunks,
		}, nil
	}
}

// feed drains the queue into the worker pool, blocking when every worker
// is busy. Backpressure therefore lives in the channel buffer.
func (d *Dispatcher) feed() {
	defer d.wg.Done()

	for j := range d.jobs {
		metrics.IngestQueueDepth.Set(float64(len(d.jobs)))

		j := j
		d.wg.Add(1)
		err := d.pool.Submit(func() {
			defer d.wg.Done()
			d.run(j)
		})
		if err != nil {
			d.wg.Done()
			d.log.Error("Worker pool rejected job",
				zap.String("doc_id", j.docID), zap.Error(err))
			ctx := logger.ContextWithLogger(context.Background(), d.log)
			if markErr := d.store.MarkFailed(ctx, j.docID, "worker pool unavailable"); markErr != nil {
				d.log.Error("Failed to mark rejected document",
					zap.String("doc_id", j.docID), zap.Error(markErr))
			}
		}
	}
}

func (d *Dispatcher) run(j job) {
	metrics.IngestWorkersRunning.Inc()
	defer metrics.IngestWorkersRunning.Dec()

	// The request that queued this job is long gone.
	ctx := logger.ContextWithLogger(context.Background(), d.log)

	summary, err := d.pipeline.Process(ctx, j.userID, j.docID, j.raw)
	if err != nil {
		d.log.Error("Ingestion failed",
			zap.String("user_id", j.userID),
			zap.String("doc_id", j.docID),
			zap.Error(err))
		return
	}

	d.log.Info("Ingestion finished",
		zap.String("user_id", j.userID),
		zap.String("doc_id", j.docID),
		zap.Int("chunks_stored", summary.ChunksStored))
}

// Close stops accepting jobs and waits for in-flight work to finish.
func (d *Dispatcher) Close() error {
	d.once.Do(func() {
		close(d.jobs)
		d.wg.Wait()
		d.pool.Release()
	})
	return nil
}
