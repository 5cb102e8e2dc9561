// Package speech provides the speech engines that voice a document one
// utterance at a time.
//
// An Engine is owned by exactly one caller, normally the playback
// controller, which constructs it once, injects it and calls Close on
// shutdown. At most one utterance is active at a time.
package speech

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/charmbracelet/log"
)

// ErrPauseUnsupported is returned by Pause and Resume when the engine cannot
// suspend an utterance mid-way.
var ErrPauseUnsupported = errors.New("speech: pause not supported by engine")

// Engine speaks utterances.
type Engine interface {
	// Speak voices the utterance and blocks until it finishes. When ctx is
	// cancelled the utterance is aborted and ctx.Err() is returned.
	Speak(ctx context.Context, u Utterance) error

	// Pause suspends the active utterance.
	Pause() error

	// Resume continues a suspended utterance from where it stopped.
	Resume() error

	// Cancel aborts the active utterance. It is safe to call with nothing
	// active.
	Cancel() error

	// Voices lists the voices the engine can use.
	Voices(ctx context.Context) ([]Voice, error)

	// Close releases the engine.
	Close() error
}

// Utterance is one chunk of text with the voice settings it is spoken with.
type Utterance struct {
	ID    string
	Text  string
	Voice string
	Rate  float64 // 1.0 is the engine's normal speed
	Pitch float64 // 1.0 is the engine's normal pitch
}

// Voice describes a voice an engine offers.
type Voice struct {
	ID       string
	Name     string
	Language string
}

func (v Voice) String() string {
	if v.Language == "" {
		return v.Name
	}
	return fmt.Sprintf("%s (%s)", v.Name, v.Language)
}

// Engine names accepted by New.
const (
	EngineAuto   = "auto"
	EngineEspeak = "espeak"
	EngineSay    = "say"
	EngineOpenAI = "openai"
)

// Output plays synthesized PCM. Play blocks until the buffer finishes or
// ctx is cancelled; Pause before Play holds the next buffer.
type Output interface {
	Play(ctx context.Context, pcm []byte) error
	Pause()
	Resume()
	Stop()
}

// Config selects and configures an engine.
type Config struct {
	Engine string
	OpenAI OpenAIConfig
	Cache  CacheConfig

	// OpenOutput opens the audio device for engines that synthesize PCM
	// themselves. Only the openai engine calls it.
	OpenOutput func(*log.Logger) (Output, error)
}

// New constructs the engine named by cfg.Engine. "auto" picks the first
// local synthesizer found on PATH.
func New(cfg Config, logger *log.Logger) (Engine, error) {
	if logger == nil {
		logger = log.Default()
	}
	switch cfg.Engine {
	case EngineAuto, "":
		for _, program := range localPrograms() {
			if _, err := exec.LookPath(program); err == nil {
				logger.Debug("selected speech engine", "program", program)
				return engineOrNil(NewCommandEngine(program, logger))
			}
		}
		return nil, fmt.Errorf("no speech synthesizer found on PATH (tried %v)", localPrograms())
	case EngineEspeak:
		if _, err := exec.LookPath("espeak-ng"); err == nil {
			return engineOrNil(NewCommandEngine("espeak-ng", logger))
		}
		return engineOrNil(NewCommandEngine("espeak", logger))
	case EngineSay:
		return engineOrNil(NewCommandEngine("say", logger))
	case EngineOpenAI:
		if cfg.OpenOutput == nil {
			return nil, errors.New("openai engine needs an audio output")
		}
		var cache *AudioCache
		if cfg.Cache.Enabled {
			c, err := OpenAudioCache(cfg.Cache, logger)
			if err != nil {
				return nil, err
			}
			cache = c
		}
		player, err := cfg.OpenOutput(logger)
		if err != nil {
			if cache != nil {
				cache.Close()
			}
			return nil, fmt.Errorf("failed to open audio output: %w", err)
		}
		e, err := NewOpenAIEngine(cfg.OpenAI, player, cache, logger)
		if err != nil {
			player.Stop()
			if cache != nil {
				cache.Close()
			}
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown speech engine %q", cfg.Engine)
	}
}

// engineOrNil keeps a nil concrete engine from becoming a non-nil Engine.
func engineOrNil[E Engine](e E, err error) (Engine, error) {
	if err != nil {
		return nil, err
	}
	return e, nil
}

func localPrograms() []string {
	if runtime.GOOS == "darwin" {
		return []string{"say", "espeak-ng", "espeak"}
	}
	return []string{"espeak-ng", "espeak"}
}
