// Package playback drives sequential speech over a list of chunks.
//
// The Controller owns the speech engine. Each utterance runs in its own
// goroutine and reports back tagged with the generation it was started in;
// every operation that changes position or status cancels the active
// utterance and bumps the generation first, so completions and errors from
// cancelled utterances are discarded.
package playback

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/metcalfc/purr/internal/speech"
)

type Controller struct {
	engine speech.Engine
	log    *log.Logger

	mu       sync.Mutex
	chunks   []string
	position int
	status   Status
	voice    string
	rate     float64
	pitch    float64
	err      error
	closed   bool
	onChange func(Snapshot)

	gen       uint64
	cancel    context.CancelFunc
	inflight  bool // the utterance for gen has not reported back yet
	suspended bool // the engine holds the utterance paused mid-way

	wg sync.WaitGroup
}

// New returns a stopped controller with no chunks that speaks through
// engine. The controller takes ownership of engine and closes it in Close.
func New(engine speech.Engine, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		engine: engine,
		log:    logger,
		rate:   1,
		pitch:  1,
	}
}

// OnChange registers fn to be called with a snapshot after every state
// change. fn is called without the controller lock held, possibly from an
// utterance goroutine.
func (c *Controller) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// Load replaces the chunk list, cancelling any speech and resetting to
// Stopped at position 0.
func (c *Controller) Load(chunks []string) {
	defer c.notify()
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked()
	c.chunks = append([]string(nil), chunks...)
	c.position = 0
	c.status = Stopped
	c.err = nil
}

// Play starts speaking at the current position, or resumes from Paused.
// It does nothing when there are no chunks or playback is already running.
func (c *Controller) Play() {
	defer c.notify()
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || len(c.chunks) == 0 {
		return
	}
	switch c.status {
	case Playing:
		return
	case Paused:
		c.status = Playing
		if c.inflight && c.suspended {
			err := c.engine.Resume()
			if err == nil {
				c.suspended = false
				return
			}
			c.log.Warn("resume failed, restarting chunk", "position", c.position, "err", err)
		}
		// The engine dropped the utterance; speak the chunk from its start.
		c.speakLocked()
	case Stopped:
		c.status = Playing
		c.err = nil
		c.speakLocked()
	}
}

// Pause suspends speech, keeping the position. It only applies while
// Playing. Engines that cannot suspend have their utterance cancelled and
// the chunk is spoken again from its start on Play.
func (c *Controller) Pause() {
	defer c.notify()
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != Playing {
		return
	}
	c.status = Paused
	if !c.inflight {
		return
	}
	if err := c.engine.Pause(); err != nil {
		if !errors.Is(err, speech.ErrPauseUnsupported) {
			c.log.Warn("pause failed, cancelling utterance", "err", err)
		}
		c.cancelLocked()
		return
	}
	c.suspended = true
}

// Stop cancels speech and rewinds to the first chunk.
func (c *Controller) Stop() {
	defer c.notify()
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked()
	c.status = Stopped
	c.position = 0
}

// Skip moves one chunk in dir, clamped to the list. While Playing the
// new position is spoken immediately, even when the clamp leaves it
// unchanged. Otherwise only the position moves.
func (c *Controller) Skip(dir Direction) {
	defer c.notify()
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.chunks) == 0 {
		return
	}
	pos := max(0, min(c.position+int(dir), len(c.chunks)-1))
	if c.status == Playing && !c.closed {
		c.position = pos
		c.speakLocked()
		return
	}
	c.cancelLocked()
	c.position = pos
}

// JumpTo starts speaking from chunk index.
func (c *Controller) JumpTo(index int) error {
	defer c.notify()
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.chunks) {
		return ErrOutOfRange
	}
	if c.closed {
		return nil
	}
	c.position = index
	c.status = Playing
	c.err = nil
	c.speakLocked()
	return nil
}

// SetVoice selects the voice for chunks spoken from now on.
func (c *Controller) SetVoice(id string) {
	defer c.notify()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.voice = id
}

// SetRate sets the speaking rate for chunks spoken from now on, clamped to
// [MinRate, MaxRate]. It returns the applied rate.
func (c *Controller) SetRate(rate float64) float64 {
	defer c.notify()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rate = clamp(rate, MinRate, MaxRate)
	return c.rate
}

// SetPitch sets the pitch for chunks spoken from now on, clamped to
// [MinPitch, MaxPitch]. It returns the applied pitch.
func (c *Controller) SetPitch(pitch float64) float64 {
	defer c.notify()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pitch = clamp(pitch, MinPitch, MaxPitch)
	return c.pitch
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close stops playback, waits for utterance goroutines to return and
// closes the engine.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.cancelLocked()
	c.status = Stopped
	c.mu.Unlock()

	c.wg.Wait()
	return c.engine.Close()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Position: c.position,
		Total:    len(c.chunks),
		Status:   c.status,
		Voice:    c.voice,
		Rate:     c.rate,
		Pitch:    c.pitch,
		Err:      c.err,
	}
}

func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.onChange
	snap := c.snapshotLocked()
	c.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// cancelLocked abandons the active utterance, if any. Whatever it reports
// afterwards belongs to an old generation and is ignored.
func (c *Controller) cancelLocked() {
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if err := c.engine.Cancel(); err != nil {
		c.log.Debug("engine cancel failed", "err", err)
	}
	c.inflight = false
	c.suspended = false
}

// speakLocked cancels the active utterance and starts speaking the chunk at
// position with the current voice settings.
func (c *Controller) speakLocked() {
	c.cancelLocked()

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.inflight = true
	gen := c.gen
	u := speech.Utterance{
		ID:    uuid.NewString(),
		Text:  c.chunks[c.position],
		Voice: c.voice,
		Rate:  c.rate,
		Pitch: c.pitch,
	}
	c.log.Debug("speak", "id", u.ID, "position", c.position, "gen", gen)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := c.engine.Speak(ctx, u)
		c.finish(gen, err)
	}()
}

// finish handles the outcome of the utterance started in generation gen.
func (c *Controller) finish(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.log.Debug("discarding stale utterance result", "gen", gen, "err", err)
		return
	}
	c.inflight = false
	c.suspended = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	switch {
	case err != nil:
		c.status = Stopped
		c.err = &SynthesisError{Index: c.position, Err: err}
		c.log.Error("speech failed", "position", c.position, "err", err)
	case c.status != Playing:
		// Paused while the chunk ran out; Play speaks it again.
	case c.position+1 < len(c.chunks):
		c.position++
		c.speakLocked()
	default:
		c.status = Stopped
		c.position = 0
	}
	c.mu.Unlock()

	c.notify()
}
