//go:build !nocgo

package audio

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

var errInterrupted = errors.New("audio: playback interrupted")

// Player plays raw 16-bit little-endian PCM through the system audio device
// and supports suspending playback mid-buffer.
type Player struct {
	ctx *oto.Context
	log *log.Logger

	mu     sync.Mutex
	active *oto.Player // currently playing, nil when idle
	paused bool
}

// NewPlayer initializes the system audio context. Only one may exist per
// process.
func NewPlayer(logger *log.Logger) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-readyChan

	logger.Debug("audio player initialized", "rate", SampleRate, "channels", ChannelCount)
	return &Player{ctx: ctx, log: logger}, nil
}

// Play plays pcm and blocks until it finishes, ctx is cancelled or Stop is
// called.
func (p *Player) Play(ctx context.Context, pcm []byte) error {
	player := p.ctx.NewPlayer(bytes.NewReader(pcm))

	p.mu.Lock()
	if err := ctx.Err(); err != nil {
		p.mu.Unlock()
		player.Close()
		return err
	}
	p.active = player
	// A Pause that arrived during synthesis holds the buffer until Resume.
	if !p.paused {
		player.Play()
	}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		if p.active == player {
			p.active = nil
		}
		p.mu.Unlock()
		player.Close()
	}()

	p.log.Debug("audio player: playing", "bytes", len(pcm))

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
			p.mu.Lock()
			current := p.active == player
			paused := p.paused
			p.mu.Unlock()
			if !current {
				return errInterrupted
			}
			if !paused && !player.IsPlaying() {
				return nil
			}
		}
	}
}

// Pause suspends the active buffer, or the next one if nothing is playing
// yet.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		return
	}
	p.paused = true
	if p.active != nil {
		p.active.Pause()
	}
}

// Resume continues a paused buffer.
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		return
	}
	p.paused = false
	if p.active != nil {
		p.active.Play()
	}
}

// Stop interrupts the active buffer, if any. Safe to call concurrently and
// when nothing is playing.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = false
	if p.active != nil {
		p.active.Pause()
		p.active = nil
		p.log.Debug("audio player: interrupted")
	}
}
