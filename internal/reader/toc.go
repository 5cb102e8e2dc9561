package reader

// Section is a titled region of a document, such as an EPUB chapter, a
// Markdown header or a PDF page.
type Section struct {
	Title   string
	Preview string
	Level   int
	Offset  int // byte offset into the document text
	Chunk   int // resolved by NewDocument
}

// Content is the text produced by a Format, with optional sections.
type Content struct {
	Text     string
	Sections []Section
}

// contentBuilder accumulates extracted text and records section offsets.
type contentBuilder struct {
	text     []byte
	sections []Section
	sep      string
}

func (b *contentBuilder) section(title string, level int) {
	b.sections = append(b.sections, Section{
		Title:  title,
		Level:  level,
		Offset: len(b.text),
	})
}

func (b *contentBuilder) write(s string) {
	if s == "" {
		return
	}
	if len(b.text) > 0 && b.sep != "" {
		b.text = append(b.text, b.sep...)
	}
	b.text = append(b.text, s...)
}

func (b *contentBuilder) content() Content {
	return Content{Text: string(b.text), Sections: b.sections}
}
