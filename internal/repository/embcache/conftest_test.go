package embcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/docsift/docsift/internal/db"
	"github.com/docsift/docsift/internal/domain"
)

// mockKV implements the store consumer interface in memory.
type mockKV struct {
	data     map[string][]byte
	getErr   error
	setErr   error
	setCalls int
	ttls     map[string]time.Duration
}

func newMockKV() *mockKV {
	return &mockKV{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *mockKV) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return data, nil
}

func (m *mockKV) Set(_ context.Context, key string, value []byte) error {
	m.setCalls++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *mockKV) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.setCalls++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

// mockEmbedder counts calls and returns a fixed vector per text length.
type mockEmbedder struct {
	embedCalls int
	batchCalls int
	embedErr   error
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.embedCalls++
	if m.embedErr != nil {
		return domain.EmbeddingResult{}, m.embedErr
	}
	return domain.EmbeddingResult{
		Embedding:   []float32{float32(len(text)), 1.0},
		TotalTokens: 7,
	}, nil
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	if m.embedErr != nil {
		return domain.BatchEmbeddingResult{}, m.embedErr
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1.0}
	}
	return domain.BatchEmbeddingResult{Embeddings: out, TotalTokens: 7 * len(texts)}, nil
}

func newTestCache(t *testing.T, ttl time.Duration) (*CachedEmbedder, *mockEmbedder, *mockKV) {
	t.Helper()
	kv := newMockKV()
	emb := &mockEmbedder{}
	cache := New(emb, kv, "test-model", ttl, nil, testLogger())
	return cache, emb, kv
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
