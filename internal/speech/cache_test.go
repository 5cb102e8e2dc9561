package speech

import (
	"bytes"
	"io"
	"testing"

	"github.com/charmbracelet/log"
)

func openTestCache(t *testing.T) *AudioCache {
	t.Helper()
	c, err := OpenAudioCache(CacheConfig{Enabled: true, InMemory: true}, log.New(io.Discard))
	if err != nil {
		t.Fatalf("OpenAudioCache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestAudioCache(t *testing.T) {
	c := openTestCache(t)

	key := CacheKey("tts-1", "alloy", "1.00", "Hello.")
	if _, ok := c.Get(key); ok {
		t.Fatal("empty cache reported a hit")
	}

	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	if err := c.Put(key, pcm); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected a hit after Put")
	}
	if !bytes.Equal(got, pcm) {
		t.Errorf("Get() = %v, want %v", got, pcm)
	}

	if err := c.Delete(key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := c.Get(key); ok {
		t.Error("hit after Delete")
	}
}

func TestCacheKey(t *testing.T) {
	a := CacheKey("tts-1", "alloy", "1.00", "Hello.")
	if a != CacheKey("tts-1", "alloy", "1.00", "Hello.") {
		t.Error("same parameters should produce the same key")
	}
	if a == CacheKey("tts-1", "alloy", "1.50", "Hello.") {
		t.Error("rate should change the key")
	}
	// Field boundaries must not collide.
	if CacheKey("ab", "c") == CacheKey("a", "bc") {
		t.Error("keys collide across field boundaries")
	}
	if len(a) != 64 {
		t.Errorf("key length = %d, want 64", len(a))
	}
}

func TestOpenAudioCacheRequiresDir(t *testing.T) {
	if _, err := OpenAudioCache(CacheConfig{Enabled: true}, nil); err == nil {
		t.Error("expected error without Dir")
	}
}

func TestAudioCacheOnDisk(t *testing.T) {
	dir := t.TempDir()
	key := CacheKey("x")

	c, err := OpenAudioCache(CacheConfig{Enabled: true, Dir: dir}, log.New(io.Discard))
	if err != nil {
		t.Fatalf("OpenAudioCache: %v", err)
	}
	if err := c.Put(key, []byte("pcm")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	c.Close()

	c, err = OpenAudioCache(CacheConfig{Enabled: true, Dir: dir}, log.New(io.Discard))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c.Close()
	if got, ok := c.Get(key); !ok || string(got) != "pcm" {
		t.Errorf("Get() after reopen = %q, %v", got, ok)
	}
}
