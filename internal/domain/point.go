package domain

import (
	"encoding/base64"
	"fmt"
)

// KeyPrefix namespaces all keys written to the vector store.
const KeyPrefix = "docsift:"

// VectorPoint is one retrieval-side artifact: an embedded chunk plus the
// payload needed to cite it. Point identity is independent of chunk identity.
type PointPayload struct {
	DocID      string
	UserID     string
	Text       string // base64-encoded chunk text, mirrors Chunk.Text
	PageNumber int
	ChunkIndex int
}

// VectorPoint pairs an embedding with its payload.
type VectorPoint struct {
	ID      string
	Vector  []float32
	Payload PointPayload
}

// ScoredPoint is a search hit: payload plus cosine similarity in [0,1].
type ScoredPoint struct {
	ID      string
	Score   float64
	Payload PointPayload
}

// PointID derives the deterministic point id for a chunk. Replaying a
// document produces the same ids, so re-ingestion overwrites in place.
func PointID(docID string, chunkIndex int) string {
	return fmt.Sprintf("%s:%d", docID, chunkIndex)
}

// CollectionForUser returns the deterministic per-tenant collection name.
// The user id must satisfy ValidUserID.
func CollectionForUser(userID string) string {
	return "doc_" + userID
}

// ValidUserID restricts user ids to the index identifier alphabet
// [a-zA-Z0-9_-], so they embed safely into collection and key names.
func ValidUserID(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !isAlpha && !isDigit && r != '_' && r != '-' {
			return false
		}
	}
	return true
}

// EncodeText encodes chunk text for storage.
func EncodeText(text string) string {
	return base64.StdEncoding.EncodeToString([]byte(text))
}

// DecodeText decodes stored chunk text back to plain text.
func DecodeText(encoded string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode chunk text: %w", err)
	}
	return string(b), nil
}
