package reader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// DefaultOCRLanguage is used when Options.Language is empty.
const DefaultOCRLanguage = "eng"

// ImageFormat implements Format for images by running OCR through the
// tesseract command line tool, which must be found by Probe first.
type ImageFormat struct {
	Binary string // defaults to "tesseract"

	state readiness
	path  string
}

func init() {
	Register(&ImageFormat{})
}

func (f *ImageFormat) Name() string         { return "Image (OCR)" }
func (f *ImageFormat) Extensions() []string { return []string{".jpg", ".jpeg", ".png"} }

// Readiness reports whether the OCR engine has been located.
func (f *ImageFormat) Readiness() Readiness { return f.state.load() }

// Probe locates the OCR binary and checks that it runs.
func (f *ImageFormat) Probe(ctx context.Context) {
	if !f.state.begin() {
		return
	}
	bin := f.Binary
	if bin == "" {
		bin = "tesseract"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		f.state.store(Failed)
		return
	}
	if err := exec.CommandContext(ctx, path, "--version").Run(); err != nil {
		f.state.store(Failed)
		return
	}
	f.path = path
	f.state.store(Ready)
}

func (f *ImageFormat) Extract(ctx context.Context, filename string, opts Options) (Content, error) {
	if err := checkReady(f.state.load()); err != nil {
		return Content{}, err
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return Content{}, err
	}
	text, err := f.recognize(ctx, data, opts.Language)
	if err != nil {
		return Content{}, err
	}
	return Content{Text: text}, nil
}

// recognize runs OCR over image bytes and returns the recognized text.
func (f *ImageFormat) recognize(ctx context.Context, image []byte, lang string) (string, error) {
	if lang == "" {
		lang = DefaultOCRLanguage
	}
	cmd := exec.CommandContext(ctx, f.path, "stdin", "stdout", "-l", lang)
	cmd.Stdin = bytes.NewReader(image)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("ocr failed: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("ocr failed: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
