package reader

import (
	"bufio"
	"context"
	"os"
	"regexp"
	"strings"
)

// MarkdownFormat implements Format for Markdown files. Header markers are
// dropped from the spoken text and each header starts a section.
type MarkdownFormat struct{}

func init() {
	Register(&MarkdownFormat{})
}

func (f *MarkdownFormat) Name() string         { return "Markdown" }
func (f *MarkdownFormat) Extensions() []string { return []string{".md", ".markdown"} }

// headerRegex matches markdown headers (# to ######)
var headerRegex = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

func (f *MarkdownFormat) Extract(_ context.Context, filename string, _ Options) (Content, error) {
	file, err := os.Open(filename)
	if err != nil {
		return Content{}, err
	}
	defer file.Close()

	b := &contentBuilder{sep: "\n"}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()

		if match := headerRegex.FindStringSubmatch(line); match != nil {
			level := len(match[1]) - 1 // h1 = level 0, h2 = level 1, etc.
			title := strings.TrimSpace(match[2])
			b.section(title, level)
			b.write(title)
			continue
		}
		b.write(line)
	}
	if err := scanner.Err(); err != nil {
		return Content{}, err
	}
	return b.content(), nil
}
