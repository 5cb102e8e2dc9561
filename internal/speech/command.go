package speech

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const baseWordsPerMinute = 175

type dialect int

const (
	dialectEspeak dialect = iota
	dialectSay
)

// CommandEngine speaks through a local synthesizer program: espeak-ng,
// espeak or macOS say. Each utterance is one process; pausing stops the
// process where the platform allows it.
type CommandEngine struct {
	path    string
	dialect dialect
	log     *log.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	paused bool
}

// NewCommandEngine locates program on PATH.
func NewCommandEngine(program string, logger *log.Logger) (*CommandEngine, error) {
	path, err := exec.LookPath(program)
	if err != nil {
		return nil, fmt.Errorf("speech engine %q not found: %w", program, err)
	}
	d := dialectEspeak
	if strings.TrimSuffix(filepath.Base(program), filepath.Ext(program)) == "say" {
		d = dialectSay
	}
	if logger == nil {
		logger = log.Default()
	}
	return &CommandEngine{path: path, dialect: d, log: logger}, nil
}

// args builds the command line for u. Text is passed on stdin.
func (e *CommandEngine) args(u Utterance) []string {
	var args []string
	if u.Voice != "" {
		args = append(args, "-v", u.Voice)
	}
	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}
	wpm := strconv.Itoa(int(math.Round(baseWordsPerMinute * rate)))

	switch e.dialect {
	case dialectSay:
		args = append(args, "-r", wpm, "-f", "-")
	default:
		p := int(math.Round(u.Pitch * 50))
		p = max(0, min(p, 99))
		args = append(args, "-s", wpm, "-p", strconv.Itoa(p), "--stdin")
	}
	return args
}

func (e *CommandEngine) Speak(ctx context.Context, u Utterance) error {
	cmd := exec.CommandContext(ctx, e.path, e.args(u)...)
	cmd.Stdin = strings.NewReader(u.Text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	e.mu.Lock()
	if err := cmd.Start(); err != nil {
		e.mu.Unlock()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("failed to start %s: %w", filepath.Base(e.path), err)
	}
	e.cmd = cmd
	// A Pause that arrived before the process started takes effect now.
	if e.paused {
		if err := suspend(cmd.Process); err != nil {
			e.paused = false
		}
	}
	e.mu.Unlock()

	e.log.Debug("speaking", "id", u.ID, "pid", cmd.Process.Pid, "chars", len(u.Text))
	err := cmd.Wait()

	e.mu.Lock()
	if e.cmd == cmd {
		e.cmd = nil
		e.paused = false
	}
	e.mu.Unlock()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", filepath.Base(e.path), err, msg)
		}
		return fmt.Errorf("%s: %w", filepath.Base(e.path), err)
	}
	return nil
}

func (e *CommandEngine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paused {
		return nil
	}
	if !canSuspend {
		return ErrPauseUnsupported
	}
	if e.cmd == nil {
		e.paused = true
		return nil
	}
	if err := suspend(e.cmd.Process); err != nil {
		return err
	}
	e.paused = true
	return nil
}

func (e *CommandEngine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.paused {
		return nil
	}
	if e.cmd == nil {
		e.paused = false
		return nil
	}
	if err := resume(e.cmd.Process); err != nil {
		return err
	}
	e.paused = false
	return nil
}

func (e *CommandEngine) Cancel() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
	if e.cmd == nil || e.cmd.Process == nil {
		return nil
	}
	// Killing a stopped process is fine; it need not be resumed first.
	if err := e.cmd.Process.Kill(); err != nil {
		e.log.Debug("kill failed", "err", err)
	}
	e.cmd = nil
	return nil
}

func (e *CommandEngine) Voices(ctx context.Context) ([]Voice, error) {
	var args []string
	if e.dialect == dialectSay {
		args = []string{"-v", "?"}
	} else {
		args = []string{"--voices"}
	}
	out, err := exec.CommandContext(ctx, e.path, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}
	if e.dialect == dialectSay {
		return parseSayVoices(out), nil
	}
	return parseEspeakVoices(out), nil
}

func (e *CommandEngine) Close() error {
	return e.Cancel()
}

// parseEspeakVoices parses `espeak-ng --voices`:
//
//	Pty Language       Age/Gender VoiceName          File                 Other Languages
//	 5  af              --/M      Afrikaans          gmw/af
func parseEspeakVoices(out []byte) []Voice {
	var voices []Voice
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || fields[0] == "Pty" {
			continue
		}
		voices = append(voices, Voice{
			ID:       fields[1],
			Name:     strings.ReplaceAll(fields[3], "_", " "),
			Language: fields[1],
		})
	}
	return voices
}

var sayVoiceRegex = regexp.MustCompile(`^(.+?)\s+([a-z]{2,3}[_-][A-Za-z0-9]+)\s+#`)

// parseSayVoices parses `say -v ?`:
//
//	Alex                en_US    # Most people recognize me by my voice.
func parseSayVoices(out []byte) []Voice {
	var voices []Voice
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		m := sayVoiceRegex.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		voices = append(voices, Voice{ID: name, Name: name, Language: m[2]})
	}
	return voices
}
