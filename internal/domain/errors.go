package domain

import "errors"

var (
	// ErrNotFound signals a missing document for the requesting user.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidUpload signals a rejected upload (wrong type, empty, oversized).
	ErrInvalidUpload = errors.New("invalid upload")
	// ErrNoExtractableText signals a document with no extractable text.
	ErrNoExtractableText = errors.New("no extractable text")
	// ErrNoChunks signals that chunking produced nothing despite extracted text.
	ErrNoChunks = errors.New("no chunks generated")
	// ErrEmbeddingProvider signals an embedding model call failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrChatProvider signals an answer generation call failure.
	ErrChatProvider = errors.New("chat provider error")
	// ErrVectorStore signals that the vector index is unavailable or rejected a write.
	ErrVectorStore = errors.New("vector store error")
	// ErrQueueFull signals that the ingestion queue rejected a new job.
	ErrQueueFull = errors.New("ingestion queue full")
	// ErrInvalidUserID signals a user id outside the collection identifier alphabet.
	ErrInvalidUserID = errors.New("invalid user id")
	// ErrEmptyQuestion signals a query request without a question.
	ErrEmptyQuestion = errors.New("question must not be empty")
)
