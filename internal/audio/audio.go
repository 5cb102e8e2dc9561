// Package audio plays raw PCM through the system audio device.
//
// The device backend needs cgo (and the ALSA headers on Linux). Build with
// -tags nocgo to leave it out; NewPlayer then returns ErrUnavailable.
package audio

import "errors"

// PCM format produced by the OpenAI speech endpoint.
const (
	SampleRate   = 24000
	ChannelCount = 1
)

// ErrUnavailable is returned by NewPlayer in builds without audio support.
var ErrUnavailable = errors.New("audio: not available in this build")
