package reader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExtractFile(t *testing.T) {
	tmpDir := t.TempDir()
	ctx := context.Background()

	t.Run("plain text", func(t *testing.T) {
		content := "Hello world this is a test."
		path := filepath.Join(tmpDir, "test.txt")
		os.WriteFile(path, []byte(content), 0644)

		got, err := ExtractFile(ctx, path, Options{})
		if err != nil {
			t.Fatalf("ExtractFile: %v", err)
		}
		if got.Text != content {
			t.Errorf("got %q, want %q", got.Text, content)
		}
	})

	t.Run("upper case extension", func(t *testing.T) {
		path := filepath.Join(tmpDir, "LOUD.TXT")
		os.WriteFile(path, []byte("Loud."), 0644)

		got, err := ExtractFile(ctx, path, Options{})
		if err != nil {
			t.Fatalf("ExtractFile: %v", err)
		}
		if got.Text != "Loud." {
			t.Errorf("got %q", got.Text)
		}
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := filepath.Join(tmpDir, "test.rtf")
		os.WriteFile(path, []byte("{\\rtf1}"), 0644)

		_, err := ExtractFile(ctx, path, Options{})
		var unsupported *UnsupportedFormatError
		if !errors.As(err, &unsupported) {
			t.Fatalf("expected UnsupportedFormatError, got %v", err)
		}
		if unsupported.Ext != ".rtf" {
			t.Errorf("Ext = %q, want .rtf", unsupported.Ext)
		}
	})

	t.Run("no extension", func(t *testing.T) {
		_, err := ExtractFile(ctx, filepath.Join(tmpDir, "README"), Options{})
		var unsupported *UnsupportedFormatError
		if !errors.As(err, &unsupported) {
			t.Fatalf("expected UnsupportedFormatError, got %v", err)
		}
	})

	t.Run("nonexistent file", func(t *testing.T) {
		_, err := ExtractFile(ctx, filepath.Join(tmpDir, "nonexistent.txt"), Options{})
		var extractErr *ExtractionError
		if !errors.As(err, &extractErr) {
			t.Fatalf("expected ExtractionError, got %v", err)
		}
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected wrapped ErrNotExist, got %v", err)
		}
	})

	t.Run("file too large", func(t *testing.T) {
		path := filepath.Join(tmpDir, "big.txt")
		os.WriteFile(path, []byte(strings.Repeat("a", 100)), 0644)

		_, err := ExtractFile(ctx, path, Options{MaxFileSize: 10})
		var extractErr *ExtractionError
		if !errors.As(err, &extractErr) {
			t.Fatalf("expected ExtractionError, got %v", err)
		}
	})

	t.Run("corrupt pdf", func(t *testing.T) {
		path := filepath.Join(tmpDir, "broken.pdf")
		os.WriteFile(path, []byte("not a pdf at all"), 0644)

		_, err := ExtractFile(ctx, path, Options{})
		var extractErr *ExtractionError
		if !errors.As(err, &extractErr) {
			t.Fatalf("expected ExtractionError, got %v", err)
		}
		if extractErr.Format != "PDF" {
			t.Errorf("Format = %q, want PDF", extractErr.Format)
		}
	})
}

func TestFormatNames(t *testing.T) {
	tests := []struct {
		format Format
		name   string
		exts   []string
	}{
		{&TextFormat{}, "Text", []string{".txt", ".text"}},
		{&PDFFormat{}, "PDF", []string{".pdf"}},
		{&DOCXFormat{}, "DOCX", []string{".docx"}},
		{&ImageFormat{}, "Image (OCR)", []string{".jpg", ".jpeg", ".png"}},
		{&EPUBFormat{}, "EPUB", []string{".epub"}},
		{&MarkdownFormat{}, "Markdown", []string{".md", ".markdown"}},
	}
	for _, tt := range tests {
		if tt.format.Name() != tt.name {
			t.Errorf("Name() = %q, want %q", tt.format.Name(), tt.name)
		}
		if got := strings.Join(tt.format.Extensions(), ","); got != strings.Join(tt.exts, ",") {
			t.Errorf("%s Extensions() = %s, want %v", tt.name, got, tt.exts)
		}
	}
}

func TestSupportedFormats(t *testing.T) {
	formats := SupportedFormats()
	if len(formats) == 0 {
		t.Error("no formats registered")
	}
	want := map[string]bool{
		"PDF (.pdf)":   false,
		"DOCX (.docx)": false,
		"EPUB (.epub)": false,
	}
	for _, f := range formats {
		if _, ok := want[f]; ok {
			want[f] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("%s not registered: %v", name, formats)
		}
	}
}
