package reader

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// DOCXFormat implements Format for Word documents by reading the raw text
// of word/document.xml.
type DOCXFormat struct{}

func init() {
	Register(&DOCXFormat{})
}

func (f *DOCXFormat) Name() string         { return "DOCX" }
func (f *DOCXFormat) Extensions() []string { return []string{".docx"} }

func (f *DOCXFormat) Extract(_ context.Context, filename string, opts Options) (Content, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return Content{}, fmt.Errorf("failed to open docx: %w", err)
	}
	defer zr.Close()

	for _, zf := range zr.File {
		if zf.Name != "word/document.xml" {
			continue
		}
		// The archive size was checked, but a small archive can inflate to
		// any size. Hold the expanded XML to the same limit.
		limit := opts.maxFileSize()
		if zf.UncompressedSize64 > uint64(limit) {
			return Content{}, tooLarge(limit)
		}
		rc, err := zf.Open()
		if err != nil {
			return Content{}, err
		}
		defer rc.Close()
		text, err := extractRawText(&cappedReader{r: rc, left: limit, limit: limit})
		if err != nil {
			return Content{}, fmt.Errorf("failed to parse document.xml: %w", err)
		}
		return Content{Text: text}, nil
	}
	return Content{}, fmt.Errorf("word/document.xml not found in archive")
}

func tooLarge(limit int64) error {
	return fmt.Errorf("word/document.xml expands past %d bytes", limit)
}

// cappedReader fails once more than limit bytes have been read, since the
// size recorded in the zip header is not trusted.
type cappedReader struct {
	r     io.Reader
	left  int64
	limit int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	if c.left < 0 {
		return 0, tooLarge(c.limit)
	}
	if int64(len(p)) > c.left+1 {
		p = p[:c.left+1]
	}
	n, err := c.r.Read(p)
	c.left -= int64(n)
	if c.left < 0 {
		return n, tooLarge(c.limit)
	}
	return n, err
}

// extractRawText walks WordprocessingML and returns the text runs, one
// paragraph per line.
func extractRawText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var out strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				out.WriteByte('\t')
			case "br", "cr":
				out.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		}
	}
	return strings.TrimSpace(out.String()), nil
}
