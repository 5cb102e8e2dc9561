package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultOpenAIModel and DefaultOpenAIVoice are used when unset.
const (
	DefaultOpenAIModel = "gpt-4o-mini-tts"
	DefaultOpenAIVoice = "alloy"
)

var openAIVoices = []string{
	"alloy", "ash", "ballad", "coral", "echo", "fable",
	"nova", "onyx", "sage", "shimmer", "verse",
}

// OpenAIConfig configures the OpenAI speech engine.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAIEngine synthesizes each utterance with the OpenAI speech API and
// plays the PCM locally. Pitch is not supported by the API and is ignored.
type OpenAIEngine struct {
	client openai.Client
	model  string
	player Output
	cache  *AudioCache
	log    *log.Logger
}

// NewOpenAIEngine creates an engine. cache may be nil.
func NewOpenAIEngine(cfg OpenAIConfig, player Output, cache *AudioCache, logger *log.Logger) (*OpenAIEngine, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	if logger == nil {
		logger = log.Default()
	}
	return &OpenAIEngine{
		client: openai.NewClient(opts...),
		model:  model,
		player: player,
		cache:  cache,
		log:    logger,
	}, nil
}

func (e *OpenAIEngine) Speak(ctx context.Context, u Utterance) error {
	pcm, err := e.synthesize(ctx, u)
	if err != nil {
		return err
	}
	return e.player.Play(ctx, pcm)
}

func (e *OpenAIEngine) synthesize(ctx context.Context, u Utterance) ([]byte, error) {
	voice := u.Voice
	if voice == "" {
		voice = DefaultOpenAIVoice
	}
	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}

	key := CacheKey(e.model, voice, strconv.FormatFloat(rate, 'f', 2, 64), u.Text)
	if e.cache != nil {
		if pcm, ok := e.cache.Get(key); ok {
			e.log.Debug("audio cache hit", "id", u.ID)
			return pcm, nil
		}
	}

	resp, err := e.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(e.model),
		Input:          u.Text,
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatPCM,
		Speed:          openai.Float(rate),
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Body.Close()

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai speech: read audio: %w", err)
	}

	if e.cache != nil {
		if err := e.cache.Put(key, pcm); err != nil {
			e.log.Warn("audio cache write failed", "err", err)
		}
	}
	return pcm, nil
}

func (e *OpenAIEngine) Pause() error {
	e.player.Pause()
	return nil
}

func (e *OpenAIEngine) Resume() error {
	e.player.Resume()
	return nil
}

func (e *OpenAIEngine) Cancel() error {
	e.player.Stop()
	return nil
}

func (e *OpenAIEngine) Voices(context.Context) ([]Voice, error) {
	voices := make([]Voice, len(openAIVoices))
	for i, v := range openAIVoices {
		voices[i] = Voice{ID: v, Name: v}
	}
	return voices, nil
}

func (e *OpenAIEngine) Close() error {
	e.player.Stop()
	if e.cache != nil {
		return e.cache.Close()
	}
	return nil
}
