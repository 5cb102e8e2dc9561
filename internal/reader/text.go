package reader

import (
	"context"
	"os"
)

// TextFormat implements Format for plain text files.
type TextFormat struct{}

func init() {
	Register(&TextFormat{})
}

func (f *TextFormat) Name() string         { return "Text" }
func (f *TextFormat) Extensions() []string { return []string{".txt", ".text"} }

func (f *TextFormat) Extract(_ context.Context, filename string, _ Options) (Content, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Content{}, err
	}
	return Content{Text: string(data)}, nil
}
