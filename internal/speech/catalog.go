package speech

import (
	"context"
	"sync"
	"time"
)

// Catalog holds the voice list of an engine. Voices may become available
// after startup, so hosts subscribe once and are told whenever the list
// changes.
type Catalog struct {
	engine Engine

	mu     sync.Mutex
	voices []Voice
	subs   []func([]Voice)
}

func NewCatalog(engine Engine) *Catalog {
	return &Catalog{engine: engine}
}

// Subscribe registers fn to receive the voice list whenever it changes. If
// voices are already known, fn is called immediately.
func (c *Catalog) Subscribe(fn func([]Voice)) {
	c.mu.Lock()
	c.subs = append(c.subs, fn)
	voices := c.voices
	c.mu.Unlock()

	if len(voices) > 0 {
		fn(voices)
	}
}

// Refresh reloads the voice list from the engine and notifies subscribers
// when it differs from the previous one.
func (c *Catalog) Refresh(ctx context.Context) error {
	voices, err := c.engine.Voices(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if equalVoices(c.voices, voices) {
		c.mu.Unlock()
		return nil
	}
	c.voices = voices
	subs := append([]func([]Voice){}, c.subs...)
	c.mu.Unlock()

	for _, fn := range subs {
		fn(voices)
	}
	return nil
}

// Watch refreshes the voice list now and then every interval until ctx is
// done, so voices installed while running show up. Refresh errors go to
// onErr, which may be nil.
func (c *Catalog) Watch(ctx context.Context, interval time.Duration, onErr func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := c.Refresh(ctx); err != nil && ctx.Err() == nil && onErr != nil {
			onErr(err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Voices returns the current voice list.
func (c *Catalog) Voices() []Voice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.voices
}

// Next returns the voice after the one with ID current, wrapping around.
// An unknown or empty current yields the first voice.
func (c *Catalog) Next(current string) (Voice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.voices) == 0 {
		return Voice{}, false
	}
	for i, v := range c.voices {
		if v.ID == current {
			return c.voices[(i+1)%len(c.voices)], true
		}
	}
	return c.voices[0], true
}

// Lookup finds a voice by ID.
func (c *Catalog) Lookup(id string) (Voice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range c.voices {
		if v.ID == id {
			return v, true
		}
	}
	return Voice{}, false
}

func equalVoices(a, b []Voice) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
