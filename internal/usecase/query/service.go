package query

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/docsift/docsift/internal/domain"
	"github.com/docsift/docsift/internal/logger"
)

const defaultTopK = 5

// Service answers questions over a user's ingested documents: embed the
// question, retrieve the nearest chunks, generate a cited answer.
type Service struct {
	embedder domain.Embedder
	index    Searcher
	llm      AnswerGenerator
	topK     int
}

// New creates a query service. topK <= 0 falls back to the default.
func New(embedder domain.Embedder, index Searcher, llm AnswerGenerator, topK int) *Service {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Service{
		embedder: embedder,
		index:    index,
		llm:      llm,
		topK:     topK,
	}
}

// Answer runs the retrieval-augmented query. When nothing relevant is
// found it returns a fixed no-answer response with zero confidence
// instead of asking the model to improvise.
func (s *Service) Answer(ctx context.Context, userID, question string) (domain.Answer, error) {
	if !domain.ValidUserID(userID) {
		return domain.Answer{}, domain.ErrInvalidUserID
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Answer{}, domain.ErrEmptyQuestion
	}

	res, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("embed question: %w", err)
	}

	matches, err := s.index.Search(ctx, userID, res.Embedding, s.topK)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("%w: %w", domain.ErrVectorStore, err)
	}
	if len(matches) == 0 {
		logger.FromContext(ctx).Info("No relevant chunks found",
			zap.String("user_id", userID))
		return domain.Answer{Text: domain.NoAnswerText}, nil
	}

	parts := make([]string, 0, len(matches))
	citations := make([]domain.Citation, 0, len(matches))
	for i, match := range matches {
		text, err := domain.DecodeText(match.Payload.Text)
		if err != nil {
			return domain.Answer{}, fmt.Errorf("match %q: %w", match.ID, err)
		}

		label := fmt.Sprintf("Source %d", i+1)
		parts = append(parts, fmt.Sprintf("[%s]: %s", label, text))
		citations = append(citations, domain.Citation{
			Label:      label,
			ID:         match.ID,
			DocID:      match.Payload.DocID,
			PageNumber: match.Payload.PageNumber,
			ChunkIndex: match.Payload.ChunkIndex,
		})
	}

	answer, err := s.llm.GenerateAnswer(ctx, question, strings.Join(parts, "\n\n"))
	if err != nil {
		return domain.Answer{}, fmt.Errorf("generate answer: %w", err)
	}

	logger.FromContext(ctx).Info("Query answered",
		zap.String("user_id", userID),
		zap.Int("matches", len(matches)),
		zap.Float64("confidence", matches[0].Score))

	return domain.Answer{
		Text:       answer,
		Citations:  citations,
		Confidence: matches[0].Score,
	}, nil
}
