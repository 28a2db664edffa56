// Package segment splits per-page document text into token-budgeted chunks.
//
// A token is a whitespace-delimited word; the budget is a target, not a hard
// cap. The segmenter is pure: it has no dependencies beyond the domain types.
package segment

import (
	"strings"

	"github.com/docsift/docsift/internal/domain"
)

// Chunk is one emitted span of page text. Index is global across the whole
// document, not reset per page.
type Chunk struct {
	Index      int
	PageNumber int
	Text       string
}

// Split segments the ordered page texts into chunks of roughly budget tokens.
//
// Sentences accumulate greedily. When the next sentence would push the chunk
// past the budget, the side closest to the budget wins: the chunk closes
// before the sentence when budget-current <= current+sentence-budget, after
// it otherwise. A single sentence longer than the budget is emitted whole
// rather than split mid-sentence. A partial chunk is flushed at each page
// boundary, so no chunk spans pages.
func Split(pages []domain.Page, budget int) []Chunk {
	var chunks []Chunk
	index := 0

	emit := func(page int, parts []string) {
		chunks = append(chunks, Chunk{
			Index:      index,
			PageNumber: page,
			Text:       strings.Join(parts, " "),
		})
		index++
	}

	for _, page := range pages {
		var current []string
		currentLen := 0

		for _, sentence := range SplitSentences(page.Text) {
			sentenceLen := len(strings.Fields(sentence))
			if sentenceLen == 0 {
				continue
			}

			if currentLen+sentenceLen > budget {
				if currentLen == 0 {
					// single sentence over budget: take it whole
					emit(page.Number, []string{sentence})
					continue
				}

				distBefore := budget - currentLen
				distAfter := (currentLen + sentenceLen) - budget
				if distBefore <= distAfter {
					// stopping before is closer (or tied): close, restart with sentence
					emit(page.Number, current)
					current = []string{sentence}
					currentLen = sentenceLen
				} else {
					// stopping after is closer: include the sentence, then close
					current = append(current, sentence)
					emit(page.Number, current)
					current = nil
					currentLen = 0
				}
				continue
			}

			current = append(current, sentence)
			currentLen += sentenceLen
		}

		if len(current) > 0 {
			emit(page.Number, current)
		}
	}

	return chunks
}

// SplitSentences breaks text at sentence boundaries: a '.', '!' or '?'
// followed by whitespace ends a sentence, and the whitespace run is consumed.
func SplitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)

	start := 0
	i := 0
	for i < len(runes) {
		r := runes[i]
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && isSpace(runes[i+1]) {
			sentences = append(sentences, string(runes[start:i+1]))
			i++
			for i < len(runes) && isSpace(runes[i]) {
				i++
			}
			start = i
			continue
		}
		i++
	}

	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}

	return sentences
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}
