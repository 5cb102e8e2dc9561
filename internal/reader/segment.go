package reader

import (
	"regexp"
	"strings"
	"unicode"
)

// sentenceRegex matches a run ending in one or more terminators, or the
// unterminated tail of the text.
var sentenceRegex = regexp.MustCompile(`[^.?!]*[.?!]+|[^.?!]+$`)

// Span is the [Start, End) byte range of a chunk within its source text.
type Span struct {
	Start int
	End   int
}

// Segment splits text into trimmed, non-empty sentence-like chunks.
// Abbreviations and decimal numbers are not special-cased.
func Segment(text string) []string {
	spans := Spans(text)
	chunks := make([]string, len(spans))
	for i, s := range spans {
		chunks[i] = text[s.Start:s.End]
	}
	return chunks
}

// Spans returns the byte ranges of the chunks Segment would produce.
func Spans(text string) []Span {
	spans := []Span{}
	for _, m := range sentenceRegex.FindAllStringIndex(text, -1) {
		piece := text[m[0]:m[1]]
		left := strings.TrimLeftFunc(piece, unicode.IsSpace)
		if left == "" {
			continue
		}
		start := m[0] + len(piece) - len(left)
		end := start + len(strings.TrimRightFunc(left, unicode.IsSpace))
		spans = append(spans, Span{Start: start, End: end})
	}
	return spans
}

// ChunkAt returns the index of the chunk containing offset, or the first
// chunk after it. Offsets past the last chunk map to the last chunk; an
// empty span list yields -1.
func ChunkAt(spans []Span, offset int) int {
	for i, s := range spans {
		if offset < s.End {
			return i
		}
	}
	return len(spans) - 1
}
