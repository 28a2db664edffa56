package query

import (
	"context"

	"github.com/docsift/docsift/internal/domain"
)

type mockEmbedder struct {
	vector []float32
	err    error
	texts  []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.texts = append(m.texts, text)
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vector, TotalTokens: 4}, nil
}

type searchCall struct {
	userID string
	vector []float32
	k      int
}

type mockSearcher struct {
	matches []domain.ScoredPoint
	err     error
	calls   []searchCall
}

func (m *mockSearcher) Search(_ context.Context, userID string, vector []float32, k int) ([]domain.ScoredPoint, error) {
	m.calls = append(m.calls, searchCall{userID: userID, vector: vector, k: k})
	if m.err != nil {
		return nil, m.err
	}
	return m.matches, nil
}

type llmCall struct {
	question     string
	contextBlock string
}

type mockLLM struct {
	answer string
	err    error
	calls  []llmCall
}

func (m *mockLLM) GenerateAnswer(_ context.Context, question, contextBlock string) (string, error) {
	m.calls = append(m.calls, llmCall{question: question, contextBlock: contextBlock})
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func scoredPoint(id, docID, text string, page, index int, score float64) domain.ScoredPoint {
	return domain.ScoredPoint{
		ID:    id,
		Score: score,
		Payload: domain.PointPayload{
			DocID:      docID,
			UserID:     "alice",
			Text:       domain.EncodeText(text),
			PageNumber: page,
			ChunkIndex: index,
		},
	}
}
