package chunker

import "iter"

// DefaultMaxChars is the chunk bound used when none is configured.
const DefaultMaxChars = 1500

// Chunk represents a slice of the document text.
type Chunk struct {
	Index int
	Text  string
}

// Split cuts text into consecutive chunks of maxChars characters (runes).
// The last chunk may be shorter. Cuts are positional and can land mid-word.
// maxChars <= 0 falls back to DefaultMaxChars.
func Split(text string, maxChars int) []Chunk {
	var chunks []Chunk
	for i, s := range All(text, maxChars) {
		chunks = append(chunks, Chunk{Index: i, Text: s})
	}
	return chunks
}

// All yields the same chunks as Split without materializing them.
// The sequence can be ranged over any number of times.
func All(text string, maxChars int) iter.Seq2[int, string] {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return func(yield func(int, string) bool) {
		idx, start, count := 0, 0, 0
		for pos := range text {
			if count == maxChars {
				if !yield(idx, text[start:pos]) {
					return
				}
				idx++
				start, count = pos, 0
			}
			count++
		}
		if count > 0 {
			yield(idx, text[start:])
		}
	}
}
