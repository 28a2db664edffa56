package ingest

import (
	"context"
	"sync"

	"github.com/docsift/docsift/internal/domain"
)

type statusUpdate struct {
	status domain.Status
	total  int
}

type mockDocStore struct {
	mu sync.Mutex

	docs   map[string]*domain.Document
	chunks map[string][]domain.Chunk

	statuses     []statusUpdate
	readyTotal   int
	readyCalls   int
	failedReason string
	failedCalls  int
	inserted     []domain.Chunk

	createErr     error
	getChunksErr  error
	setStatusErr  error
	insertErr     error
	markReadyErr  error
	markFailedErr error
}

func newMockDocStore() *mockDocStore {
	return &mockDocStore{
		docs:   make(map[string]*domain.Document),
		chunks: make(map[string][]domain.Chunk),
	}
}

func (m *mockDocStore) CreateDocument(_ context.Context, doc *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.docs[doc.ID] = doc
	return nil
}

func (m *mockDocStore) GetDocument(_ context.Context, userID, docID string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[docID]
	if !ok || doc.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (m *mockDocStore) SetStatus(_ context.Context, docID string, status domain.Status, totalChunks int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setStatusErr != nil {
		return m.setStatusErr
	}
	m.statuses = append(m.statuses, statusUpdate{status: status, total: totalChunks})
	if doc, ok := m.docs[docID]; ok {
		doc.Status = status
		doc.TotalChunks = totalChunks
	}
	return nil
}

func (m *mockDocStore) MarkReady(_ context.Context, docID string, totalChunks int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markReadyErr != nil {
		return m.markReadyErr
	}
	m.readyCalls++
	m.readyTotal = totalChunks
	if doc, ok := m.docs[docID]; ok {
		doc.Status = domain.StatusReady
		doc.TotalChunks = totalChunks
	}
	return nil
}

func (m *mockDocStore) MarkFailed(_ context.Context, docID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markFailedErr != nil {
		return m.markFailedErr
	}
	m.failedCalls++
	m.failedReason = reason
	if doc, ok := m.docs[docID]; ok {
		doc.Status = domain.StatusFailed
		doc.Error = reason
	}
	return nil
}

func (m *mockDocStore) InsertChunks(_ context.Context, chunks []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, chunks...)
	if len(chunks) > 0 {
		m.chunks[chunks[0].DocumentID] = append(m.chunks[chunks[0].DocumentID], chunks...)
	}
	return nil
}

func (m *mockDocStore) GetChunks(_ context.Context, docID string) ([]domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getChunksErr != nil {
		return nil, m.getChunksErr
	}
	return m.chunks[docID], nil
}

type mockExtractor struct {
	pages []domain.Page
	err   error
	calls int
}

func (m *mockExtractor) Pages(_ []byte) ([]domain.Page, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.pages, nil
}

type mockEmbedder struct {
	batches [][]string
	err     error
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batches = append(m.batches, texts)
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text)), 1.0}
	}
	return domain.BatchEmbeddingResult{Embeddings: vectors, TotalTokens: 7 * len(texts)}, nil
}

type ensureCall struct {
	userID string
	dim    int
}

type mockIndex struct {
	ensures    []ensureCall
	upserts    [][]domain.VectorPoint
	batchSizes []int
	ensureErr  error
	upsertErr  error
}

func (m *mockIndex) EnsureCollection(_ context.Context, userID string, dim int) error {
	m.ensures = append(m.ensures, ensureCall{userID: userID, dim: dim})
	return m.ensureErr
}

func (m *mockIndex) UpsertPoints(_ context.Context, _ string, points []domain.VectorPoint, batchSize int) error {
	m.upserts = append(m.upserts, points)
	m.batchSizes = append(m.batchSizes, batchSize)
	return m.upsertErr
}

type pipelineFixture struct {
	store     *mockDocStore
	index     *mockIndex
	embedder  *mockEmbedder
	extractor *mockExtractor
	orch      *Orchestrator
}

func newPipelineFixture(opts Options) *pipelineFixture {
	f := &pipelineFixture{
		store:     newMockDocStore(),
		index:     &mockIndex{},
		embedder:  &mockEmbedder{},
		extractor: &mockExtractor{},
	}
	f.orch = NewOrchestrator(f.store, f.index, f.embedder, f.extractor, opts)
	return f
}

type mockProcessor struct {
	mu    sync.Mutex
	calls []job
	fn    func(j job) (domain.IngestSummary, error)
	done  chan struct{}
}

func (m *mockProcessor) Process(_ context.Context, userID, docID string, raw []byte) (domain.IngestSummary, error) {
	j := job{userID: userID, docID: docID, raw: raw}
	m.mu.Lock()
	m.calls = append(m.calls, j)
	m.mu.Unlock()
	defer func() {
		if m.done != nil {
			m.done <- struct{}{}
		}
	}()
	if m.fn != nil {
		return m.fn(j)
	}
	return domain.IngestSummary{Status: domain.StatusReady}, nil
}
