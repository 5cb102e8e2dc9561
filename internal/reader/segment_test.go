package reader

import (
	"slices"
	"strings"
	"testing"
	"unicode"
)

func TestSegment(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "three sentences",
			input:    "Hello world. How are you? Fine!",
			expected: []string{"Hello world.", "How are you?", "Fine!"},
		},
		{
			name:     "no terminator",
			input:    "no punctuation here",
			expected: []string{"no punctuation here"},
		},
		{
			name:     "empty string",
			input:    "",
			expected: []string{},
		},
		{
			name:     "whitespace only",
			input:    "  \n\t ",
			expected: []string{},
		},
		{
			name:     "trailing text without terminator",
			input:    "First one. Then the rest",
			expected: []string{"First one.", "Then the rest"},
		},
		{
			name:     "terminator runs stay together",
			input:    "Really?! Yes... ok",
			expected: []string{"Really?!", "Yes...", "ok"},
		},
		{
			name:     "leading terminators are kept",
			input:    "...and then. Done",
			expected: []string{"...", "and then.", "Done"},
		},
		{
			name:     "newlines do not split",
			input:    "Line one\nline two. Next",
			expected: []string{"Line one\nline two.", "Next"},
		},
		{
			name:     "decimals are not special-cased",
			input:    "Pi is 3.14 roughly.",
			expected: []string{"Pi is 3.", "14 roughly."},
		},
		{
			name:     "unicode text",
			input:    "Café au lait. Ça va?",
			expected: []string{"Café au lait.", "Ça va?"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Segment(tt.input)
			if result == nil {
				t.Fatalf("Segment(%q) returned nil", tt.input)
			}
			if !slices.Equal(result, tt.expected) {
				t.Errorf("Segment(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSegmentDeterministic(t *testing.T) {
	inputs := []string{
		"",
		"Hello world. How are you? Fine!",
		"a.b.c!!d??  e",
		strings.Repeat("The quick brown fox. ", 50),
	}
	for _, in := range inputs {
		if a, b := Segment(in), Segment(in); !slices.Equal(a, b) {
			t.Errorf("Segment(%q) not deterministic: %q vs %q", in, a, b)
		}
	}
}

func TestSegmentCompleteness(t *testing.T) {
	stripSpace := func(s string) string {
		return strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, s)
	}
	inputs := []string{
		"Hello world. How are you? Fine!",
		"  leading space. trailing space  ",
		"...!?",
		"one.two.three",
		"No end\n\nat all",
		"Mixed! Content? With... many. terminators!!",
	}
	for _, in := range inputs {
		got := stripSpace(strings.Join(Segment(in), ""))
		if want := stripSpace(in); got != want {
			t.Errorf("Segment(%q) lost content: got %q, want %q", in, got, want)
		}
	}
}

func TestSpans(t *testing.T) {
	text := "  Hello world.  How are you?\nFine"
	spans := Spans(text)
	want := []string{"Hello world.", "How are you?", "Fine"}
	if len(spans) != len(want) {
		t.Fatalf("Spans() len = %d, want %d", len(spans), len(want))
	}
	for i, s := range spans {
		if got := text[s.Start:s.End]; got != want[i] {
			t.Errorf("span %d = %q, want %q", i, got, want[i])
		}
	}
}

func TestChunkAt(t *testing.T) {
	text := "One. Two. Three."
	spans := Spans(text)

	tests := []struct {
		offset int
		want   int
	}{
		{0, 0},
		{3, 0},
		{4, 1}, // the space between chunks maps forward
		{5, 1},
		{10, 2},
		{100, 2},
	}
	for _, tt := range tests {
		if got := ChunkAt(spans, tt.offset); got != tt.want {
			t.Errorf("ChunkAt(%d) = %d, want %d", tt.offset, got, tt.want)
		}
	}

	if got := ChunkAt(nil, 0); got != -1 {
		t.Errorf("ChunkAt(nil) = %d, want -1", got)
	}
}

// Benchmark tests
func BenchmarkSegment(b *testing.B) {
	text := strings.Repeat("Hello world this is a test sentence with multiple words. ", 100)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Segment(text)
	}
}
