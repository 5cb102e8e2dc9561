package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/metcalfc/purr/internal/audio"
	"github.com/metcalfc/purr/internal/config"
	"github.com/metcalfc/purr/internal/playback"
	"github.com/metcalfc/purr/internal/reader"
	"github.com/metcalfc/purr/internal/session"
	"github.com/metcalfc/purr/internal/speech"
	"github.com/metcalfc/purr/internal/state"
)

// app holds everything a reader front end needs.
type app struct {
	cfg     *config.Config
	log     *log.Logger
	session *session.Session
	catalog *speech.Catalog
}

func newApp(cfg *config.Config, logger *log.Logger, store *state.Store) (*app, error) {
	engine, err := speech.New(speechConfig(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start speech engine: %w", err)
	}

	ctrl := playback.New(engine, logger)
	ctrl.SetVoice(cfg.Voice)
	ctrl.SetRate(cfg.Rate)
	ctrl.SetPitch(cfg.Pitch)

	opts := reader.Options{
		Language:    cfg.OCRLanguage,
		MaxFileSize: cfg.MaxFileSize,
	}
	return &app{
		cfg:     cfg,
		log:     logger,
		session: session.New(ctrl, store, opts, logger),
		catalog: speech.NewCatalog(engine),
	}, nil
}

// voiceRefresh is how often the engine is asked for its voices again.
const voiceRefresh = 30 * time.Second

// start probes external collaborators and keeps the voice list current in
// the background. Extraction of OCR formats fails fast until its probe ends.
func (a *app) start(ctx context.Context) {
	go reader.ProbeAll(ctx)
	go a.catalog.Watch(ctx, voiceRefresh, func(err error) {
		a.log.Warn("failed to list voices", "err", err)
	})
}

// checkVoice clears a configured voice the engine does not offer, so a
// voice saved for another engine does not break playback.
func (a *app) checkVoice(voices []speech.Voice) {
	ctrl := a.session.Controller()
	id := ctrl.Snapshot().Voice
	if id == "" || len(voices) == 0 {
		return
	}
	if _, ok := a.catalog.Lookup(id); !ok {
		a.log.Warn("voice not offered by engine, using default", "voice", id)
		ctrl.SetVoice("")
	}
}

func (a *app) Close() error {
	return a.session.Close()
}

func speechConfig(cfg *config.Config) speech.Config {
	return speech.Config{
		Engine: cfg.Engine,
		OpenAI: speech.OpenAIConfig{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
		},
		Cache: speech.CacheConfig{
			Enabled: cfg.Cache.Enabled,
			Dir:     cfg.Cache.Dir,
			TTL:     cfg.Cache.TTL,
		},
		OpenOutput: openAudio,
	}
}

func openAudio(logger *log.Logger) (speech.Output, error) {
	p, err := audio.NewPlayer(logger)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// progressText describes the playback position, e.g. "Chunk 3/10".
func progressText(doc *reader.Document, snap playback.Snapshot) string {
	current, total := doc.Progress(snap.Position)
	if total == 0 {
		current = 0
	}
	return fmt.Sprintf("Chunk %d/%d", current, total)
}

// settingsText describes the voice settings a chunk is spoken with.
func settingsText(snap playback.Snapshot) string {
	voice := snap.Voice
	if voice == "" {
		voice = "default"
	}
	return fmt.Sprintf("voice %s | rate %.1f | pitch %.1f", voice, snap.Rate, snap.Pitch)
}

// input is what the reader starts with: a file to load, piped text, or
// nothing for an empty interactive session.
type input struct {
	path string
	text string
}

// readInput resolves the command-line argument or piped stdin.
func readInput(stdin io.Reader, args []string) (input, error) {
	if len(args) > 0 {
		return input{path: args[0]}, nil
	}
	if f, ok := stdin.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
			return input{}, nil
		}
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return input{}, fmt.Errorf("reading stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return input{}, nil
	}
	return input{text: string(data)}, nil
}

// newLogger returns a logger writing to w at the configured level.
func newLogger(cfg *config.Config, w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           cfg.Level(),
		ReportTimestamp: true,
		Prefix:          "purr",
	})
}

// fileLogger logs to the configured log file, or discards when none is set.
// Interactive front ends own the terminal, so they never log to it.
func fileLogger(cfg *config.Config) (*log.Logger, func(), error) {
	if cfg.LogFile == "" {
		return newLogger(cfg, io.Discard), func() {}, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return newLogger(cfg, f), func() { f.Close() }, nil
}
