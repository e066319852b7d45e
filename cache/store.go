// Package cache provides the translation cache: an in-memory map of
// original HTML to translation, mirrored into persistent storage with
// debounced writes.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ZaguanLabs/framelai/dom"
	"github.com/ZaguanLabs/framelai/storage"
)

const (
	// DefaultKey is the storage key the cache is mirrored under.
	DefaultKey = "framelai:translations"

	// MaxSize is the maximum number of entries kept and persisted.
	MaxSize = 10000

	// DefaultDebounce is the coalescing window for persistent writes.
	DefaultDebounce = 2 * time.Second

	snapshotVersion = "1.0"
)

// Dictionary reports keys that the static dictionary already resolves.
// Such keys are never persisted.
type Dictionary interface {
	Contains(key string) bool
}

type entry struct {
	translation string
	owners      []dom.Node
	seq         uint64
}

// Stats summarises the cache.
type Stats struct {
	Entries int `json:"entries"`
	Bytes   int `json:"bytes"` // Size of the persisted payload
}

// Store is the translation cache. It is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	entries  map[string]*entry
	seq      uint64
	timer    *time.Timer
	timerGen uint64
	storage  storage.Storage
	key      string
	dict     Dictionary
	maxSize  int
	debounce time.Duration
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithDictionary excludes dictionary phrases from persistence.
func WithDictionary(d Dictionary) Option {
	return func(s *Store) {
		s.dict = d
	}
}

// WithDebounce sets the persistence coalescing window.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) {
		s.debounce = d
	}
}

// WithMaxSize overrides the entry cap.
func WithMaxSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxSize = n
		}
	}
}

// WithKey sets the storage key.
func WithKey(key string) Option {
	return func(s *Store) {
		s.key = key
	}
}

// WithLogger sets the logger used for swallowed storage errors.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// NewStore creates an empty cache mirrored into st. A nil st keeps the
// cache in memory only.
func NewStore(st storage.Storage, opts ...Option) *Store {
	s := &Store{
		entries:  make(map[string]*entry),
		storage:  st,
		key:      DefaultKey,
		maxSize:  MaxSize,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the translation stored for key.
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return "", false
	}
	return e.translation, true
}

// Owners returns the live elements currently showing the entry for key.
func (s *Store) Owners(key string) []dom.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	out := make([]dom.Node, 0, len(e.owners))
	for _, o := range e.owners {
		if o.Document().Contains(o) {
			out = append(out, o)
		}
	}
	return out
}

// Put stores a translation. If key exists its translation is replaced and
// owner is merged into the owner list; detached owners are dropped.
func (s *Store) Put(key, translation string, owner dom.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	e.translation = translation
	e.seq = s.seq

	live := e.owners[:0]
	seen := false
	for _, o := range e.owners {
		if !o.Document().Contains(o) {
			continue
		}
		if o == owner {
			seen = true
		}
		live = append(live, o)
	}
	e.owners = live
	if owner.Valid() && !seen {
		e.owners = append(e.owners, owner)
	}

	if len(s.entries) > s.maxSize {
		s.evictOldest()
	}
}

// Remove deletes key and schedules a write. It reports whether the key
// existed.
func (s *Store) Remove(key string) bool {
	s.mu.Lock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	s.mu.Unlock()

	if ok {
		s.Persist()
	}
	return ok
}

// Clear empties the cache and deletes the persisted mirror.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]*entry)
	s.stopTimer()
	s.mu.Unlock()

	if s.storage == nil {
		return nil
	}
	if err := s.storage.Remove(ctx, s.key); err != nil {
		s.logger.Warn("cache clear failed", "key", s.key, "error", err)
		return err
	}
	return nil
}

// Reset drops the in-memory entries without touching storage. Any pending
// write is cancelled.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*entry)
	s.stopTimer()
}

// Persist schedules a write of the cache. Each call re-arms the single
// pending write, so a burst of calls produces one write after the burst goes
// quiet; the write captures the state at the moment it fires.
func (s *Store) Persist() {
	if s.storage == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimer()
	gen := s.timerGen
	s.timer = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		if s.timerGen != gen {
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.mu.Unlock()
		_ = s.Flush(context.Background())
	})
}

// Flush writes the cache now, cancelling any pending write. Errors are
// logged and returned; the in-memory cache is unaffected either way.
func (s *Store) Flush(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}

	s.mu.Lock()
	s.stopTimer()
	payload, err := s.encodeLocked()
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("cache encode failed", "error", err)
		return err
	}

	if err := s.storage.Set(ctx, s.key, string(payload)); err != nil {
		s.logger.Warn("cache persist failed", "key", s.key, "error", err)
		return err
	}
	s.logger.Debug("cache persisted", "key", s.key, "bytes", len(payload))
	return nil
}

// Load merges the persisted mirror into memory. Entries already in memory
// win over persisted ones.
func (s *Store) Load(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}

	raw, ok, err := s.storage.Get(ctx, s.key)
	if err != nil {
		s.logger.Warn("cache load failed", "key", s.key, "error", err)
		return err
	}
	if !ok {
		return nil
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		s.logger.Warn("cache snapshot unreadable", "key", s.key, "error", err)
		return fmt.Errorf("decoding cache snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Snapshots are newest first; replay oldest first so sequence numbers
	// keep the same order.
	loaded := 0
	for i := len(snap.Entries) - 1; i >= 0; i-- {
		se := snap.Entries[i]
		if _, exists := s.entries[se.Key]; exists {
			continue
		}
		s.seq++
		s.entries[se.Key] = &entry{translation: se.Value, seq: s.seq}
		loaded++
	}
	for len(s.entries) > s.maxSize {
		s.evictOldest()
	}
	s.logger.Debug("cache loaded", "key", s.key, "entries", loaded)
	return nil
}

// Statistics returns the entry count and the size of the persisted payload.
func (s *Store) Statistics() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := s.encodeLocked()
	if err != nil {
		return Stats{Entries: len(s.entries)}
	}
	return Stats{Entries: len(s.entries), Bytes: len(payload)}
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Keys returns all keys, newest first.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderedKeysLocked()
}

func (s *Store) orderedKeysLocked() []string {
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return s.entries[keys[i]].seq > s.entries[keys[j]].seq
	})
	return keys
}

func (s *Store) evictOldest() {
	var oldest string
	var min uint64
	found := false
	for k, e := range s.entries {
		if !found || e.seq < min {
			oldest, min, found = k, e.seq, true
		}
	}
	if found {
		delete(s.entries, oldest)
	}
}

func (s *Store) stopTimer() {
	s.timerGen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
