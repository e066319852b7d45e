package framelai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZaguanLabs/framelai/cache"
	"github.com/ZaguanLabs/framelai/dictionary"
	"github.com/ZaguanLabs/framelai/dom"
	"github.com/ZaguanLabs/framelai/storage"
)

// DefaultContentID is the id of the container whose text is translated.
const DefaultContentID = "story"

// Control message actions.
const (
	ActionUpdateSettings = "updateSettings"
	ActionShowCacheStats = "showCacheStats"
	ActionClearCache     = "clearCache"
	ActionForceRefresh   = "forceRefresh"
)

// Message is an inbound control message.
type Message struct {
	Action  string `json:"action"`
	Enabled *bool  `json:"enabled,omitempty"`
}

// Reply acknowledges a control message.
type Reply struct {
	Success bool         `json:"success"`
	Error   string       `json:"error,omitempty"`
	Stats   *cache.Stats `json:"stats,omitempty"`
}

// Session runs the translation pipeline against one framed document.
type Session struct {
	doc       *dom.Document
	remote    RemoteTranslator
	dict      Dictionary
	store     *cache.Store
	settings  SettingsSource
	logger    *slog.Logger
	timing    Timing
	contentID string
	excluded  string

	st      *state
	batcher *Batcher
	keys    *KeyBinder
	display *Display
	client  *Client
	watcher *Watcher
	console *Console

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running atomic.Int32
	started bool
}

// SessionOption is a functional option for configuring a Session.
type SessionOption func(*Session)

// WithDictionary sets the static dictionary.
func WithDictionary(d Dictionary) SessionOption {
	return func(s *Session) {
		s.dict = d
	}
}

// WithStore sets the translation cache. The default is an in-memory store.
func WithStore(store *cache.Store) SessionOption {
	return func(s *Session) {
		s.store = store
	}
}

// WithSettings sets the settings source.
func WithSettings(src SettingsSource) SessionOption {
	return func(s *Session) {
		s.settings = src
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = l
	}
}

// WithTiming overrides the pipeline delays.
func WithTiming(t Timing) SessionOption {
	return func(s *Session) {
		s.timing = t
	}
}

// WithContentID sets the id of the content container.
func WithContentID(id string) SessionOption {
	return func(s *Session) {
		s.contentID = id
	}
}

// WithExcludedSelector sets the selector of containers never translated.
func WithExcludedSelector(selector string) SessionOption {
	return func(s *Session) {
		s.excluded = selector
	}
}

// NewSession creates a session for doc that sends cache misses to remote.
func NewSession(doc *dom.Document, remote RemoteTranslator, opts ...SessionOption) (*Session, error) {
	if doc == nil {
		return nil, errors.New("framelai: nil document")
	}
	if remote == nil {
		return nil, errors.New("framelai: nil remote translator")
	}

	s := &Session{
		doc:       doc,
		remote:    remote,
		logger:    slog.Default(),
		timing:    DefaultTiming(),
		contentID: DefaultContentID,
		excluded:  DefaultExcludedSelector,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.dict == nil {
		s.dict = dictionary.New(nil)
	}
	if s.store == nil {
		s.store = cache.NewStore(storage.NewMemory(),
			cache.WithDictionary(s.dict),
			cache.WithLogger(s.logger))
	}

	excluded := "#" + ToggleID
	if s.excluded != "" {
		excluded = s.excluded + ", " + excluded
	}

	s.st = newState()
	s.batcher = newBatcher(s.st, excluded, s.logger)
	s.keys = NewKeyBinder(doc, s.timing.KeyUpDelay, s.logger)
	s.display = newDisplay(doc, s.st, s.dict, s.store, s.keys, s.logger)
	s.client = newClient(doc, s.st, s.dict, s.store, remote, s.display, s.timing, s.logger)
	s.watcher = newWatcher(doc, s.contentID, s.timing.WatchDebounce, s.st, s.goPass, s.logger)
	s.console = NewConsole(s.store, s.logger)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.client.bind(s.ctx)
	return s, nil
}

// Start reads the settings, loads the cache and, when translation is
// enabled, injects the toggle, starts watching and runs a first pass in the
// background. It fails with ErrNotFramed on a top-level document.
func (s *Session) Start(ctx context.Context) error {
	if !s.doc.InFrame() {
		s.logger.Info("top-level document, not starting")
		return ErrNotFramed
	}

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	settings := DefaultSettings()
	if s.settings != nil {
		got, err := s.settings.Settings(ctx, settings)
		if err != nil {
			s.logger.Warn("reading settings failed, using defaults", "error", err)
		} else {
			settings = got
		}
	}

	s.st.mu.Lock()
	s.st.enabled = settings.Enabled
	s.st.mu.Unlock()

	if !settings.Enabled {
		s.logger.Info("translation disabled")
		return nil
	}

	_ = s.store.Load(ctx)
	s.logger.Info("session started", "content_id", s.contentID, "cached", s.store.Len())

	s.display.InjectToggle()
	s.watcher.Start()
	s.goPass()
	return nil
}

// Translate runs one pass synchronously and returns the number of units
// collected. It returns ErrBusy if a pass or retry cycle is running.
func (s *Session) Translate(ctx context.Context) (int, error) {
	if !s.st.tryAcquire() {
		return 0, ErrBusy
	}
	defer s.st.release()

	if !s.Enabled() {
		return 0, nil
	}

	scope := s.doc.GetElementByID(s.contentID)
	if !scope.Valid() {
		return 0, &ContentError{Message: "content container not found", ID: s.contentID}
	}

	units := s.batcher.Collect(scope)
	if len(units) == 0 {
		return 0, nil
	}
	s.logger.Info("translation units found", "units", len(units))
	s.client.TranslateAll(ctx, units)
	return len(units), nil
}

func (s *Session) runPass() {
	if _, err := s.Translate(s.ctx); err != nil {
		if errors.Is(err, ErrBusy) {
			s.logger.Debug("pass skipped", "reason", err)
			return
		}
		s.logger.Error("translation pass failed", "error", err)
	}
}

func (s *Session) goPass() {
	s.running.Add(1)
	go func() {
		defer s.running.Add(-1)
		s.runPass()
	}()
}

// Enabled reports whether translation is switched on.
func (s *Session) Enabled() bool {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return s.st.enabled
}

// SetEnabled switches translation on or off. Switching on clears the
// processed markers and triggers a pass; switching off stops watching and
// removes the toggle.
func (s *Session) SetEnabled(enabled bool) {
	s.st.mu.Lock()
	s.st.enabled = enabled
	s.st.mu.Unlock()
	s.client.Stop()

	if enabled {
		s.st.clearProcessed()
		s.display.InjectToggle()
		s.watcher.Start()
		s.goPass()
		s.logger.Info("translation enabled")
		return
	}
	s.watcher.Stop()
	s.display.RemoveToggle()
	s.logger.Info("translation disabled")
}

// SetMode switches the display mode and returns the number of elements
// updated.
func (s *Session) SetMode(mode DisplayMode) int {
	return s.display.SetMode(mode)
}

// Toggle flips the display mode.
func (s *Session) Toggle() DisplayMode {
	return s.display.Toggle()
}

// Mode returns the current display mode.
func (s *Session) Mode() DisplayMode {
	return s.st.currentMode()
}

// ForceRefresh restores every original, clears the cache and all pipeline
// state, then translates the content again from scratch. Remote results
// still in flight are discarded when they arrive.
func (s *Session) ForceRefresh(ctx context.Context) error {
	if !s.st.tryAcquire() {
		s.logger.Info("refresh skipped, translation in progress")
		return ErrBusy
	}

	s.logger.Info("force refresh: clearing cache and translating again")
	s.watcher.Stop()
	s.client.Stop()

	s.display.SetMode(ModeOriginal)
	s.st.mu.Lock()
	s.st.mode = ModeTranslated
	s.st.mu.Unlock()
	s.display.updateToggle(ModeTranslated)

	if err := s.console.ClearCache(ctx); err != nil {
		s.logger.Warn("clearing persisted cache failed", "error", err)
	}
	s.st.reset()
	s.st.release()

	_, err := s.Translate(ctx)
	if s.Enabled() {
		s.watcher.Start()
	}
	return err
}

// HandleMessage processes a control message. Known actions always succeed;
// their work may continue in the background.
func (s *Session) HandleMessage(ctx context.Context, msg Message) Reply {
	switch msg.Action {
	case ActionUpdateSettings:
		if msg.Enabled == nil {
			return Reply{Error: "updateSettings requires enabled"}
		}
		s.SetEnabled(*msg.Enabled)
		return Reply{Success: true}

	case ActionShowCacheStats:
		stats := s.console.ShowStats()
		return Reply{Success: true, Stats: &stats}

	case ActionClearCache:
		if err := s.console.ClearCache(ctx); err != nil {
			s.logger.Warn("clear cache failed", "error", err)
		}
		return Reply{Success: true}

	case ActionForceRefresh:
		s.running.Add(1)
		go func() {
			defer s.running.Add(-1)
			if err := s.ForceRefresh(s.ctx); err != nil && !errors.Is(err, ErrBusy) {
				s.logger.Error("force refresh failed", "error", err)
			}
		}()
		return Reply{Success: true}

	default:
		return Reply{Error: fmt.Sprintf("unknown action %q", msg.Action)}
	}
}

// Console returns the cache inspection surface.
func (s *Session) Console() *Console {
	return s.console
}

// Store returns the translation cache.
func (s *Session) Store() *cache.Store {
	return s.store
}

// Pending returns the units parked for a batch retry.
func (s *Session) Pending() []PendingFailure {
	return s.client.Pending()
}

// Idle reports whether no pass, retry cycle or debounced trigger is pending.
func (s *Session) Idle() bool {
	return s.running.Load() == 0 &&
		!s.st.isBusy() &&
		!s.client.RetryScheduled() &&
		!s.watcher.Armed()
}

// Wait blocks until background work has settled or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	return s.waitFor(ctx, s.Idle)
}

// Close stops watching and retrying, cancels background work and writes the
// cache.
func (s *Session) Close(ctx context.Context) error {
	s.watcher.Stop()
	s.client.Stop()
	s.cancel()
	if err := s.waitFor(ctx, func() bool { return s.running.Load() == 0 }); err != nil {
		return err
	}
	return s.store.Flush(ctx)
}

func (s *Session) waitFor(ctx context.Context, done func() bool) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for !done() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
