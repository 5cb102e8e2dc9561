// Package session ties the loaded document to the playback controller and
// the persisted reading state.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/metcalfc/purr/internal/playback"
	"github.com/metcalfc/purr/internal/reader"
	"github.com/metcalfc/purr/internal/state"
)

// ErrNoBookmark is returned by ResumeBookmark when the current document has
// no saved position.
var ErrNoBookmark = errors.New("no bookmark for this document")

// ErrLoading is returned by LoadFile while another load is in progress.
var ErrLoading = errors.New("a document is already loading")

// Session owns the current document and the controller speaking it.
// Replacing the document always replaces the controller's chunk list with
// it, so the two never disagree.
type Session struct {
	ctrl  *playback.Controller
	store *state.Store // nil disables persistence
	opts  reader.Options
	log   *log.Logger

	mu      sync.Mutex
	doc     *reader.Document
	loading bool
}

// New creates a session with an empty document. store may be nil.
func New(ctrl *playback.Controller, store *state.Store, opts reader.Options, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}
	s := &Session{
		ctrl:  ctrl,
		store: store,
		opts:  opts,
		log:   logger,
		doc:   reader.NewDocument("", nil),
	}
	ctrl.Load(nil)
	return s
}

func (s *Session) Controller() *playback.Controller {
	return s.ctrl
}

// Document returns the current document. It is never nil.
func (s *Session) Document() *reader.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Loading reports whether a LoadFile call is in progress.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// SetText replaces the document with text, stopping any speech and
// resetting playback to the first chunk.
func (s *Session) SetText(text, source string) *reader.Document {
	doc := reader.NewDocument(text, nil)
	doc.Source = source
	s.replace(doc)
	return doc
}

// LoadFile extracts path and makes it the current document. On failure the
// current document is left untouched. The loading flag is cleared on
// every path out.
func (s *Session) LoadFile(ctx context.Context, path string, progress reader.ProgressFunc) (*reader.Document, error) {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return nil, ErrLoading
	}
	s.loading = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	opts := s.opts
	opts.Progress = progress
	content, err := reader.ExtractFile(ctx, path, opts)
	if err != nil {
		s.log.Warn("failed to load document", "path", path, "err", err)
		return nil, err
	}

	doc := reader.NewDocument(content.Text, content.Sections)
	doc.Source = path
	s.replace(doc)
	s.log.Info("loaded document", "path", path, "chunks", len(doc.Chunks), "sections", len(doc.Sections))
	return doc, nil
}

func (s *Session) replace(doc *reader.Document) {
	s.SaveBookmark()

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()

	s.ctrl.Load(doc.Chunks)
}

// Bookmark returns the saved position for the current document.
func (s *Session) Bookmark() (state.Bookmark, bool) {
	doc := s.Document()
	if s.store == nil || doc.Empty() {
		return state.Bookmark{}, false
	}
	b, ok := s.store.Bookmark(doc.Hash())
	if !ok || b.Chunk <= 0 || b.Chunk >= len(doc.Chunks) {
		return state.Bookmark{}, false
	}
	return b, true
}

// ResumeBookmark starts playback at the saved position of the current
// document.
func (s *Session) ResumeBookmark() (int, error) {
	b, ok := s.Bookmark()
	if !ok {
		return 0, ErrNoBookmark
	}
	if err := s.ctrl.JumpTo(b.Chunk); err != nil {
		return 0, err
	}
	return b.Chunk, nil
}

// SaveBookmark records the current position for the current document. A
// document read to the end or stopped at the start has its bookmark
// cleared.
func (s *Session) SaveBookmark() error {
	doc := s.Document()
	if s.store == nil || doc.Empty() {
		return nil
	}
	snap := s.ctrl.Snapshot()
	hash := doc.Hash()
	if snap.Position == 0 {
		if _, ok := s.store.Bookmark(hash); !ok {
			return nil
		}
		return s.store.ClearBookmark(hash)
	}
	err := s.store.SetBookmark(hash, state.Bookmark{
		Chunk:  snap.Position,
		Total:  snap.Total,
		Source: doc.Source,
	})
	if err != nil {
		s.log.Warn("failed to save bookmark", "err", err)
	}
	return err
}

// JumpToSection starts playback at the first chunk of section i.
func (s *Session) JumpToSection(i int) error {
	doc := s.Document()
	if i < 0 || i >= len(doc.Sections) {
		return playback.ErrOutOfRange
	}
	return s.ctrl.JumpTo(doc.Sections[i].Chunk)
}

// SkipSection moves to the next or previous section start and speaks from
// there. It returns false when there is no section in that direction.
func (s *Session) SkipSection(dir playback.Direction) bool {
	doc := s.Document()
	pos := s.ctrl.Snapshot().Position
	target := doc.NextSection(pos)
	if dir == playback.Previous {
		target = doc.PrevSection(pos)
	}
	if target < 0 {
		return false
	}
	return s.ctrl.JumpTo(target) == nil
}

// Preferences returns the persisted voice settings.
func (s *Session) Preferences() state.Preferences {
	if s.store == nil {
		return state.Preferences{}
	}
	return s.store.Preferences()
}

// SetVoice changes the voice for upcoming chunks and persists it.
func (s *Session) SetVoice(id string) {
	s.ctrl.SetVoice(id)
	s.savePreferences()
}

// SetRate changes the rate for upcoming chunks and persists it. It returns
// the clamped rate.
func (s *Session) SetRate(rate float64) float64 {
	r := s.ctrl.SetRate(rate)
	s.savePreferences()
	return r
}

// SetPitch changes the pitch for upcoming chunks and persists it. It
// returns the clamped pitch.
func (s *Session) SetPitch(pitch float64) float64 {
	p := s.ctrl.SetPitch(pitch)
	s.savePreferences()
	return p
}

func (s *Session) savePreferences() {
	if s.store == nil {
		return
	}
	snap := s.ctrl.Snapshot()
	prefs := s.store.Preferences()
	prefs.Voice = snap.Voice
	prefs.Rate = snap.Rate
	prefs.Pitch = snap.Pitch
	if err := s.store.SetPreferences(prefs); err != nil {
		s.log.Warn("failed to save preferences", "err", err)
	}
}

// Close saves the bookmark and shuts the controller down.
func (s *Session) Close() error {
	s.SaveBookmark()
	return s.ctrl.Close()
}
