package reader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultMaxFileSize bounds the size of files handed to a Format.
const DefaultMaxFileSize = 64 << 20

// ProgressFunc receives "page done of total" updates for display.
type ProgressFunc func(done, total int)

// Options are passed through to a Format on each extraction.
type Options struct {
	Progress    ProgressFunc
	Language    string // OCR language, e.g. "eng"
	MaxFileSize int64
}

func (o Options) progress(done, total int) {
	if o.Progress != nil {
		o.Progress(done, total)
	}
}

// Format defines a file format reader for extracting text.
type Format interface {
	Name() string
	Extensions() []string
	Extract(ctx context.Context, filename string, opts Options) (Content, error)
}

var registry []Format

// Register adds a format reader to the registry.
func Register(f Format) {
	registry = append(registry, f)
}

// Lookup returns the format registered for the file's extension.
func Lookup(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, f := range registry {
		for _, e := range f.Extensions() {
			if ext == e {
				return f, nil
			}
		}
	}
	return nil, &UnsupportedFormatError{Ext: ext}
}

// ExtractFile extracts text from a file using the format registered for its
// extension. Formats backed by an external collaborator must be Ready.
func ExtractFile(ctx context.Context, filename string, opts Options) (Content, error) {
	f, err := Lookup(filename)
	if err != nil {
		return Content{}, err
	}

	if p, ok := f.(Prober); ok {
		if err := checkReady(p.Readiness()); err != nil {
			return Content{}, &ExtractionError{Format: f.Name(), Path: filename, Err: err}
		}
	}

	info, err := os.Stat(filename)
	if err != nil {
		return Content{}, &ExtractionError{Format: f.Name(), Path: filename, Err: err}
	}
	limit := opts.maxFileSize()
	if info.Size() > limit {
		return Content{}, &ExtractionError{
			Format: f.Name(),
			Path:   filename,
			Err:    fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), limit),
		}
	}

	c, err := f.Extract(ctx, filename, opts)
	if err != nil {
		return Content{}, &ExtractionError{Format: f.Name(), Path: filename, Err: err}
	}
	return c, nil
}

func (o Options) maxFileSize() int64 {
	if o.MaxFileSize <= 0 {
		return DefaultMaxFileSize
	}
	return o.MaxFileSize
}

// Formats returns the registered formats in registration order.
func Formats() []Format {
	return append([]Format(nil), registry...)
}

// SupportedFormats returns registered format names with their extensions.
func SupportedFormats() []string {
	var out []string
	for _, f := range registry {
		out = append(out, f.Name()+" ("+strings.Join(f.Extensions(), ", ")+")")
	}
	return out
}

// ProbeAll runs readiness probes for every format backed by an external
// collaborator and waits for them to finish. Hosts that must not block call
// it in a goroutine; extraction fails fast until the probes complete.
func ProbeAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, f := range registry {
		if p, ok := f.(Prober); ok {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p.Probe(ctx)
			}()
		}
	}
	wg.Wait()
}
