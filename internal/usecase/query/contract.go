package query

import (
	"context"

	"github.com/docsift/docsift/internal/domain"
)

// Searcher runs similarity search over a user's collection.
type Searcher interface {
	Search(ctx context.Context, userID string, vector []float32, k int) ([]domain.ScoredPoint, error)
}

// AnswerGenerator produces an answer grounded in the supplied context block.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question, contextBlock string) (string, error)
}
