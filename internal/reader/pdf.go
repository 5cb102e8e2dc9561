package reader

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFFormat implements Format for PDF files. Each page with text becomes
// a section; pages are joined with a paragraph separator.
type PDFFormat struct{}

func init() {
	Register(&PDFFormat{})
}

func (f *PDFFormat) Name() string         { return "PDF" }
func (f *PDFFormat) Extensions() []string { return []string{".pdf"} }

func (f *PDFFormat) Extract(ctx context.Context, filename string, opts Options) (c Content, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to parse pdf: %v", r)
		}
	}()

	file, r, err := pdf.Open(filename)
	if err != nil {
		return Content{}, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer file.Close()

	total := r.NumPage()
	if total == 0 {
		return Content{}, fmt.Errorf("pdf has no pages")
	}

	b := &contentBuilder{sep: "\n\n"}
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return Content{}, err
		}
		opts.progress(i, total)

		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return Content{}, fmt.Errorf("page %d: %w", i, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		b.section(fmt.Sprintf("Page %d", i), 0)
		b.write(text)
	}
	return b.content(), nil
}
