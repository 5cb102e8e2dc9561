package reader

import (
	"errors"
	"fmt"
)

// ErrNotReady is wrapped by extraction errors raised when a format's
// external collaborator is still loading or failed to load.
var ErrNotReady = errors.New("extractor not ready")

// ExtractionError reports that a format failed to produce text.
type ExtractionError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s (%s): %v", e.Path, e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// UnsupportedFormatError reports a file extension with no registered format.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Ext == "" {
		return "unsupported format: file has no extension"
	}
	return fmt.Sprintf("unsupported format: %q", e.Ext)
}
