package embcache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEmbed_MissThenHit(t *testing.T) {
	cache, emb, _ := newTestCache(t, 0)
	ctx := context.Background()

	first, err := cache.Embed(ctx, "hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emb.embedCalls != 1 {
		t.Fatalf("expected 1 inner call, got %d", emb.embedCalls)
	}
	if first.TotalTokens != 7 {
		t.Errorf("miss should report inner token usage, got %d", first.TotalTokens)
	}

	second, err := cache.Embed(ctx, "hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emb.embedCalls != 1 {
		t.Fatalf("hit must not call inner embedder, got %d calls", emb.embedCalls)
	}
	if second.TotalTokens != 0 {
		t.Errorf("hit should report zero tokens, got %d", second.TotalTokens)
	}
	if len(second.Embedding) != 2 || second.Embedding[0] != first.Embedding[0] {
		t.Errorf("cached vector mismatch: %v vs %v", second.Embedding, first.Embedding)
	}
}

func TestEmbed_DifferentModelsDoNotCollide(t *testing.T) {
	kv := newMockKV()
	emb := &mockEmbedder{}
	a := New(emb, kv, "model-a", 0, nil, testLogger())
	b := New(emb, kv, "model-b", 0, nil, testLogger())
	ctx := context.Background()

	if _, err := a.Embed(ctx, "same text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := b.Embed(ctx, "same text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emb.embedCalls != 2 {
		t.Fatalf("expected a miss per model, got %d inner calls", emb.embedCalls)
	}
}

func TestEmbed_InnerError(t *testing.T) {
	cache, emb, _ := newTestCache(t, 0)
	emb.embedErr = errors.New("provider down")

	if _, err := cache.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected error")
	}
}

func TestEmbed_StoreErrorFallsThrough(t *testing.T) {
	cache, emb, kv := newTestCache(t, 0)
	kv.getErr = errors.New("redis down")

	if _, err := cache.Embed(context.Background(), "text"); err != nil {
		t.Fatalf("cache failure must not fail the embed: %v", err)
	}
	if emb.embedCalls != 1 {
		t.Fatalf("expected inner call, got %d", emb.embedCalls)
	}
}

func TestBatchEmbed_PartialHits(t *testing.T) {
	cache, emb, _ := newTestCache(t, 0)
	ctx := context.Background()

	// warm one of three texts
	if _, err := cache.Embed(ctx, "bb"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := cache.BatchEmbed(ctx, []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emb.batchCalls != 1 {
		t.Fatalf("expected 1 batch call for misses, got %d", emb.batchCalls)
	}
	if len(result.Embeddings) != 3 {
		t.Fatalf("expected 3 embeddings, got %d", len(result.Embeddings))
	}
	// order preserved: vector[0] encodes input length
	for i, want := range []float32{1, 2, 3} {
		if result.Embeddings[i][0] != want {
			t.Errorf("embedding %d out of order: got %v", i, result.Embeddings[i])
		}
	}
	// only the two misses consumed tokens
	if result.TotalTokens != 14 {
		t.Errorf("expected 14 tokens for 2 misses, got %d", result.TotalTokens)
	}
}

func TestBatchEmbed_AllHitsSkipProvider(t *testing.T) {
	cache, emb, _ := newTestCache(t, 0)
	ctx := context.Background()

	texts := []string{"x", "yy"}
	if _, err := cache.BatchEmbed(ctx, texts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := cache.BatchEmbed(ctx, texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emb.batchCalls != 1 {
		t.Fatalf("second batch should be served from cache, got %d calls", emb.batchCalls)
	}
	if result.TotalTokens != 0 {
		t.Errorf("all-hit batch should report zero tokens, got %d", result.TotalTokens)
	}
}

func TestPutToCache_UsesTTL(t *testing.T) {
	cache, _, kv := newTestCache(t, 2*time.Hour)

	if _, err := cache.Embed(context.Background(), "text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(kv.ttls) != 1 {
		t.Fatalf("expected TTL write, got %d", len(kv.ttls))
	}
	for _, ttl := range kv.ttls {
		if ttl != 2*time.Hour {
			t.Errorf("expected 2h TTL, got %v", ttl)
		}
	}
}

func TestVectorCacheBytes_RoundTrip(t *testing.T) {
	in := []float32{0.25, -1.5, 3}
	out, err := bytesToVector(vectorToCacheBytes(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("length mismatch: %d vs %d", len(out), len(in))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("element %d: %f vs %f", i, in[i], out[i])
		}
	}
}

func TestBytesToVector_InvalidLength(t *testing.T) {
	if _, err := bytesToVector([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for non-multiple-of-4 data")
	}
}
