// Package reader turns source text into a chunked document for spoken playback.
package reader

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const hashBytes = 8192 // First 8KB for content hash

// Document is source text together with its chunk list. Chunks are
// recomputed from Text and never survive a text change.
type Document struct {
	Text     string
	Chunks   []string
	Spans    []Span
	Sections []Section
	Source   string
}

// NewDocument segments text and resolves section offsets to chunk indices.
func NewDocument(text string, sections []Section) *Document {
	d := &Document{
		Text:  text,
		Spans: Spans(text),
	}
	d.Chunks = make([]string, len(d.Spans))
	for i, s := range d.Spans {
		d.Chunks[i] = text[s.Start:s.End]
	}
	if len(d.Chunks) == 0 {
		return d
	}
	for _, s := range sections {
		s.Chunk = ChunkAt(d.Spans, s.Offset)
		s.Preview = preview(d.Chunks[s.Chunk])
		d.Sections = append(d.Sections, s)
	}
	return d
}

// Empty reports whether the document has nothing to speak.
func (d *Document) Empty() bool {
	return d == nil || len(d.Chunks) == 0
}

// Hash returns a content hash used to key bookmarks.
func (d *Document) Hash() string {
	b := []byte(d.Text)
	if len(b) > hashBytes {
		b = b[:hashBytes]
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:16]) // First 16 bytes = 32 hex chars
}

// Progress returns the 1-based chunk number and the total chunk count.
func (d *Document) Progress(position int) (current, total int) {
	return position + 1, len(d.Chunks)
}

// SectionAt returns the index of the section containing chunk, or -1.
func (d *Document) SectionAt(chunk int) int {
	for i := len(d.Sections) - 1; i >= 0; i-- {
		if chunk >= d.Sections[i].Chunk {
			return i
		}
	}
	return -1
}

// SectionTitle returns the title of the section containing chunk.
func (d *Document) SectionTitle(chunk int) string {
	if i := d.SectionAt(chunk); i >= 0 {
		return d.Sections[i].Title
	}
	return ""
}

// NextSection returns the first chunk of the section after the one
// containing chunk, or -1 at the last section.
func (d *Document) NextSection(chunk int) int {
	for _, s := range d.Sections {
		if s.Chunk > chunk {
			return s.Chunk
		}
	}
	return -1
}

// PrevSection returns the first chunk of the current section, or of the
// previous one when chunk already starts its section.
func (d *Document) PrevSection(chunk int) int {
	for i := len(d.Sections) - 1; i >= 0; i-- {
		if d.Sections[i].Chunk < chunk {
			return d.Sections[i].Chunk
		}
	}
	return -1
}

func preview(chunk string) string {
	words := strings.Fields(chunk)
	if len(words) > 10 {
		return strings.Join(words[:10], " ") + "..."
	}
	return strings.Join(words, " ")
}
