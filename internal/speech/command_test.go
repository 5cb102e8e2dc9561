package speech

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestCommandEngineArgs(t *testing.T) {
	tests := []struct {
		name    string
		dialect dialect
		u       Utterance
		want    []string
	}{
		{
			name:    "espeak defaults",
			dialect: dialectEspeak,
			u:       Utterance{Text: "Hi.", Rate: 1, Pitch: 1},
			want:    []string{"-s", "175", "-p", "50", "--stdin"},
		},
		{
			name:    "espeak voice rate pitch",
			dialect: dialectEspeak,
			u:       Utterance{Voice: "en-gb", Rate: 2, Pitch: 0.5},
			want:    []string{"-v", "en-gb", "-s", "350", "-p", "25", "--stdin"},
		},
		{
			name:    "espeak zero rate and pitch",
			dialect: dialectEspeak,
			u:       Utterance{},
			want:    []string{"-s", "175", "-p", "0", "--stdin"},
		},
		{
			name:    "espeak pitch clamped",
			dialect: dialectEspeak,
			u:       Utterance{Rate: 0.5, Pitch: 2},
			want:    []string{"-s", "88", "-p", "99", "--stdin"},
		},
		{
			name:    "say",
			dialect: dialectSay,
			u:       Utterance{Voice: "Alex", Rate: 1.5, Pitch: 2},
			want:    []string{"-v", "Alex", "-r", "263", "-f", "-"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &CommandEngine{path: "synth", dialect: tt.dialect}
			got := e.args(tt.u)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("args() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseEspeakVoices(t *testing.T) {
	out := []byte(`Pty Language       Age/Gender VoiceName          File                 Other Languages
 5  af              --/M      Afrikaans          gmw/af
 2  en-gb           --/M      English_(Great_Britain) gmw/en            (en 2)
 5  en-us           --/M      English_(America)  gmw/en-US            (en 3)
`)
	voices := parseEspeakVoices(out)
	if len(voices) != 3 {
		t.Fatalf("got %d voices, want 3: %v", len(voices), voices)
	}
	if voices[1].ID != "en-gb" || voices[1].Name != "English (Great Britain)" {
		t.Errorf("voices[1] = %+v", voices[1])
	}
	if voices[2].String() != "English (America) (en-us)" {
		t.Errorf("String() = %q", voices[2].String())
	}
}

func TestParseSayVoices(t *testing.T) {
	out := []byte(`Alex                en_US    # Most people recognize me by my voice.
Bad News            en_US    # The light you see at the end of the tunnel is the headlamp of a fast approaching train.
Amélie              fr_CA    # Bonjour, je m’appelle Amélie.
garbage line
`)
	voices := parseSayVoices(out)
	if len(voices) != 3 {
		t.Fatalf("got %d voices, want 3: %v", len(voices), voices)
	}
	if voices[1].ID != "Bad News" || voices[1].Language != "en_US" {
		t.Errorf("voices[1] = %+v", voices[1])
	}
	if voices[2].Name != "Amélie" {
		t.Errorf("voices[2].Name = %q", voices[2].Name)
	}
}

// writeStub writes an executable shell script named name into a temp dir.
func writeStub(t *testing.T, name, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stub requires a unix shell")
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func newStubEngine(t *testing.T, path string) *CommandEngine {
	t.Helper()
	e, err := NewCommandEngine(path, log.New(os.Stderr))
	if err != nil {
		t.Fatalf("NewCommandEngine: %v", err)
	}
	return e
}

func TestCommandEngineSpeakPassesTextOnStdin(t *testing.T) {
	out := filepath.Join(t.TempDir(), "spoken.txt")
	stub := writeStub(t, "espeak-ng", `echo "$@" > "`+out+`.args"
cat > "`+out+`"
`)
	e := newStubEngine(t, stub)

	err := e.Speak(context.Background(), Utterance{Text: "Hello world.", Voice: "en"})
	if err != nil {
		t.Fatalf("Speak: %v", err)
	}

	spoken, _ := os.ReadFile(out)
	if string(spoken) != "Hello world." {
		t.Errorf("stdin = %q, want %q", spoken, "Hello world.")
	}
	args, _ := os.ReadFile(out + ".args")
	if !strings.Contains(string(args), "-v en") || !strings.Contains(string(args), "--stdin") {
		t.Errorf("args = %q", args)
	}
}

func TestCommandEngineSpeakFailure(t *testing.T) {
	stub := writeStub(t, "espeak", "echo 'no such voice' >&2\nexit 3\n")
	e := newStubEngine(t, stub)

	err := e.Speak(context.Background(), Utterance{Text: "Hi."})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "no such voice") {
		t.Errorf("error %q should include stderr", err)
	}
}

func TestCommandEngineSpeakCancelled(t *testing.T) {
	stub := writeStub(t, "espeak", "exec sleep 10\n")
	e := newStubEngine(t, stub)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := e.Speak(ctx, Utterance{Text: "A long sentence."})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Speak() = %v, want context.DeadlineExceeded", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("Speak took %v after cancellation", time.Since(start))
	}
}

func TestCommandEngineCancelKillsUtterance(t *testing.T) {
	stub := writeStub(t, "espeak", "exec sleep 10\n")
	e := newStubEngine(t, stub)

	done := make(chan error, 1)
	go func() {
		done <- e.Speak(context.Background(), Utterance{Text: "A long sentence."})
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		e.mu.Lock()
		started := e.cmd != nil
		e.mu.Unlock()
		if started {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("utterance never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := e.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	select {
	case err := <-done:
		if err == nil {
			t.Error("expected an error from a killed utterance")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Speak did not return after Cancel")
	}
}

func TestCommandEngineIdleControls(t *testing.T) {
	e := &CommandEngine{path: "synth", log: log.New(os.Stderr)}
	if err := e.Cancel(); err != nil {
		t.Errorf("Cancel with nothing active: %v", err)
	}
	if err := e.Pause(); err != nil && !errors.Is(err, ErrPauseUnsupported) {
		t.Errorf("Pause with nothing active: %v", err)
	}
	if err := e.Resume(); err != nil {
		t.Errorf("Resume with nothing active: %v", err)
	}
}

func TestCommandEngineVoices(t *testing.T) {
	stub := writeStub(t, "espeak-ng", `if [ "$1" = "--voices" ]; then
  echo "Pty Language       Age/Gender VoiceName          File                 Other Languages"
  echo " 5  de              --/M      German             gmw/de"
fi
`)
	e := newStubEngine(t, stub)

	voices, err := e.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices: %v", err)
	}
	want := []Voice{{ID: "de", Name: "German", Language: "de"}}
	if !reflect.DeepEqual(voices, want) {
		t.Errorf("Voices() = %v, want %v", voices, want)
	}
}

func TestNewUnknownEngine(t *testing.T) {
	e, err := New(Config{Engine: "carrier-pigeon"}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if e != nil {
		t.Errorf("engine should be nil on error, got %T", e)
	}
}

func TestNewMissingProgram(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	e, err := New(Config{Engine: EngineSay}, nil)
	if err == nil {
		t.Fatal("expected error for missing say")
	}
	if e != nil {
		t.Errorf("engine should be nil on error, got %T", e)
	}
}
