package playback

import (
	"errors"
	"fmt"
)

// Status is the controller's coarse playback mode.
type Status int

const (
	Stopped Status = iota
	Playing
	Paused
)

func (s Status) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Direction selects the neighbouring chunk for Skip.
type Direction int

const (
	Previous Direction = -1
	Next     Direction = 1
)

// Voice setting limits. Values outside are clamped.
const (
	MinRate  = 0.5
	MaxRate  = 2.0
	MinPitch = 0.0
	MaxPitch = 2.0
)

// ErrOutOfRange is returned by JumpTo for an index outside the chunk list.
var ErrOutOfRange = errors.New("chunk index out of range")

// SynthesisError reports that the engine failed while speaking a chunk.
// Playback stops with the position left at Index.
type SynthesisError struct {
	Index int
	Err   error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("speech failed at chunk %d: %v", e.Index+1, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// Snapshot is a consistent copy of the controller state.
type Snapshot struct {
	Position int
	Total    int
	Status   Status
	Voice    string
	Rate     float64
	Pitch    float64

	// Err is the most recent SynthesisError, cleared when playback starts
	// again or a new chunk list is loaded.
	Err error
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}
