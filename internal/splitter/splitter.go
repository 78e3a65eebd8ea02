// Package splitter segments document text into overlapping chunks for
// embedding. Chunk boundaries prefer sentence ends, then whitespace,
// and fall back to a hard cut when neither exists.
package splitter

import (
	"fmt"
	"strings"
	"unicode"
)

// Chunk is one segment of a document, with rune positions into the
// original text.
type Chunk struct {
	Content    string `json:"content"`
	Filename   string `json:"filename"`
	ChunkIndex int    `json:"chunk_index"`
	StartPos   int    `json:"start_pos"`
	EndPos     int    `json:"end_pos"`
}

// Split segments text into chunks of at most chunkSize runes, with
// consecutive chunks sharing roughly overlap runes. Whitespace-only
// text yields no chunks. The window always advances by at least one
// rune, so the call terminates for any input.
func Split(text, filename string, chunkSize, overlap int) ([]Chunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d", chunkSize, overlap)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	var chunks []Chunk

	start := 0
	for start < len(runes) {
		end := start + chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			// Prefer a sentence boundary, but not one so early that
			// the chunk degenerates to a few runes.
			minBoundary := start + chunkSize/4
			boundary := lastIndexRune(runes, start, end, '.')
			if boundary < minBoundary {
				boundary = lastWhitespace(runes, start, end)
			}
			if boundary > start {
				end = boundary + 1
			}
		}

		content := strings.TrimSpace(string(runes[start:end]))
		if content != "" {
			chunks = append(chunks, Chunk{
				Content:    content,
				Filename:   filename,
				ChunkIndex: len(chunks),
				StartPos:   start,
				EndPos:     end,
			})
		}

		if end >= len(runes) {
			break
		}

		next := end - overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks, nil
}

// lastIndexRune returns the highest index i in [start, end) with
// runes[i] == r, or -1.
func lastIndexRune(runes []rune, start, end int, r rune) int {
	for i := end - 1; i >= start; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

// lastWhitespace returns the highest index i in [start, end) holding a
// whitespace rune, or -1.
func lastWhitespace(runes []rune, start, end int) int {
	for i := end - 1; i >= start; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}
