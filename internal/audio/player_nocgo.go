//go:build nocgo

package audio

import (
	"context"

	"github.com/charmbracelet/log"
)

// Player is a stand-in for builds without an audio backend.
type Player struct{}

// NewPlayer always fails with ErrUnavailable.
func NewPlayer(*log.Logger) (*Player, error) {
	return nil, ErrUnavailable
}

func (p *Player) Play(ctx context.Context, _ []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrUnavailable
}

func (p *Player) Pause()  {}
func (p *Player) Resume() {}
func (p *Player) Stop()   {}
