package speech

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	badger "github.com/dgraph-io/badger/v4"
)

// CacheConfig configures the synthesized audio cache.
type CacheConfig struct {
	Enabled bool
	Dir     string
	TTL     time.Duration // zero keeps entries until evicted by hand

	// InMemory runs the cache without disk persistence.
	InMemory bool
}

// AudioCache stores synthesized audio keyed by CacheKey, so replaying or
// skipping back over a chunk does not synthesize it again.
type AudioCache struct {
	db  *badger.DB
	ttl time.Duration
	log *log.Logger
}

// OpenAudioCache opens the cache described by cfg.
func OpenAudioCache(cfg CacheConfig, logger *log.Logger) (*AudioCache, error) {
	if !cfg.InMemory && cfg.Dir == "" {
		return nil, errors.New("audio cache: Dir is required for on-disk mode")
	}
	if logger == nil {
		logger = log.Default()
	}
	opts := badger.DefaultOptions(cfg.Dir).WithLogger(badgerLogger{logger})
	if cfg.InMemory {
		opts = opts.WithInMemory(true).WithDir("").WithValueDir("")
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("audio cache: %w", err)
	}
	return &AudioCache{db: db, ttl: cfg.TTL, log: logger}, nil
}

// CacheKey derives a cache key from the parameters that shape the audio.
func CacheKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached audio for key.
func (c *AudioCache) Get(key string) ([]byte, bool) {
	var val []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.log.Warn("audio cache read failed", "err", err)
		}
		return nil, false
	}
	return val, true
}

// Put stores audio under key.
func (c *AudioCache) Put(key string, audio []byte) error {
	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), audio)
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
}

// Delete removes key. No error if the key does not exist.
func (c *AudioCache) Delete(key string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (c *AudioCache) Close() error {
	return c.db.Close()
}

// badgerLogger routes badger warnings and errors to the application logger,
// suppressing debug and info level messages.
type badgerLogger struct {
	l *log.Logger
}

func (b badgerLogger) Errorf(f string, v ...interface{}) {
	b.l.Errorf("[badger] "+strings.TrimSpace(f), v...)
}

func (b badgerLogger) Warningf(f string, v ...interface{}) {
	b.l.Warnf("[badger] "+strings.TrimSpace(f), v...)
}

func (badgerLogger) Infof(string, ...interface{})  {}
func (badgerLogger) Debugf(string, ...interface{}) {}
