package domain

// NoAnswerText is returned verbatim when retrieval finds nothing to cite.
const NoAnswerText = "I couldn't find any relevant information in the documents."

// Citation ties part of a generated answer back to a stored chunk.
type Citation struct {
	Label      string
	ID         string
	DocID      string
	PageNumber int
	ChunkIndex int
}

// Answer is the result of a retrieval-augmented query: generated text,
// the chunks it drew on, and the top retrieval score as confidence.
type Answer struct {
	Text       string
	Citations  []Citation
	Confidence float64
}
