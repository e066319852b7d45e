package framelai

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ZaguanLabs/framelai/cache"
	"github.com/ZaguanLabs/framelai/dom"
)

// Source tells where a unit's translation came from.
type Source int

const (
	// SourceNone means the unit was not translated: the remote attempts
	// failed and the unit was parked, or the result arrived after a refresh.
	SourceNone Source = iota
	SourceDictionary
	SourceCache
	SourceRemote
)

func (s Source) String() string {
	switch s {
	case SourceDictionary:
		return "dictionary"
	case SourceCache:
		return "cache"
	case SourceRemote:
		return "remote"
	default:
		return "none"
	}
}

// PassResult summarises one TranslateAll call.
type PassResult struct {
	Units      int
	Dictionary int
	Cached     int
	Remote     int
	Failed     int
}

// Translated returns the number of units that got a translation.
func (r PassResult) Translated() int {
	return r.Dictionary + r.Cached + r.Remote
}

// Client resolves translation units through the dictionary, the cache and
// the remote translator, and owns the deferred retry queue.
type Client struct {
	doc     *dom.Document
	st      *state
	dict    Dictionary
	store   *cache.Store
	remote  RemoteTranslator
	display *Display
	timing  Timing
	logger  *slog.Logger

	mu         sync.Mutex
	ctx        context.Context
	retryTimer *time.Timer
	retrySeq   uint64
	retrying   bool
}

func newClient(doc *dom.Document, st *state, dict Dictionary, store *cache.Store, remote RemoteTranslator, display *Display, timing Timing, logger *slog.Logger) *Client {
	c := &Client{
		doc:     doc,
		st:      st,
		dict:    dict,
		store:   store,
		display: display,
		timing:  timing,
		logger:  logger,
		ctx:     context.Background(),
	}
	c.remote = NewRetryableTranslator(remote, RetryConfig{
		MaxAttempts: MaxTranslationRetries,
		Backoff:     timing.RetryBackoff,
		OnFailure: func(attempt int, err error) {
			c.logger.Warn("translation attempt failed",
				"attempt", attempt, "max_attempts", MaxTranslationRetries, "error", err)
		},
	})
	return c
}

// bind sets the context used by timer-driven retry cycles.
func (c *Client) bind(ctx context.Context) {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()
}

// Resolve translates one unit. Dictionary and cache hits are applied
// immediately; otherwise the remote translator is asked, and a unit whose
// attempts all fail is parked for a batch retry.
func (c *Client) Resolve(ctx context.Context, u Unit) Source {
	if tr, ok := c.dict.Lookup(u.Key); ok {
		c.apply(u, tr)
		return SourceDictionary
	}
	if tr, ok := c.store.Get(u.Key); ok {
		c.store.Put(u.Key, tr, u.Element)
		c.apply(u, tr)
		return SourceCache
	}

	switch c.resolveRemote(ctx, u) {
	case remoteOK:
		return SourceRemote
	case remoteFailed:
		c.st.park(u.Key, u.Element)
		c.logger.Error("translation parked after retries", "text", preview(u.Key))
	}
	return SourceNone
}

type remoteOutcome int

const (
	remoteOK remoteOutcome = iota
	remoteFailed
	remoteStale
)

func (c *Client) resolveRemote(ctx context.Context, u Unit) remoteOutcome {
	gen := c.st.currentGeneration()
	req := TranslateRequest{
		Action:     ActionTranslate,
		Text:       u.Key,
		Dictionary: c.dict.Relevant(u.Text),
	}
	if req.Dictionary == nil {
		req.Dictionary = map[string]string{}
	}

	resp, err := c.remote.Translate(ctx, req)
	if c.st.currentGeneration() != gen {
		c.logger.Debug("discarding result from before refresh", "text", preview(u.Key))
		return remoteStale
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return remoteStale
		}
		return remoteFailed
	}

	c.store.Put(u.Key, resp.Translation, u.Element)
	c.store.Persist()
	c.apply(u, resp.Translation)
	c.logger.Debug("translated", "text", preview(u.Key))
	return remoteOK
}

// apply shows a translation if the mode is translated, then marks the
// element processed and clears any pending failure for its key.
func (c *Client) apply(u Unit, translation string) {
	if c.st.currentMode() == ModeTranslated {
		c.display.Render(u.Element, translation)
	}
	c.st.markProcessed(u.Element)
	c.st.unpark(u.Key)
}

// TranslateAll resolves units one at a time, pausing after every remote
// attempt. If anything is left pending a batch retry is scheduled.
func (c *Client) TranslateAll(ctx context.Context, units []Unit) PassResult {
	res := PassResult{Units: len(units)}
	for _, u := range units {
		if ctx.Err() != nil {
			break
		}
		src := c.Resolve(ctx, u)
		switch src {
		case SourceDictionary:
			res.Dictionary++
		case SourceCache:
			res.Cached++
		case SourceRemote:
			res.Remote++
		default:
			res.Failed++
		}
		if src == SourceRemote || src == SourceNone {
			if err := sleep(ctx, c.timing.InterUnitDelay); err != nil {
				break
			}
		}
	}

	c.logger.Info("translation pass complete",
		"units", res.Units, "translated", res.Translated(), "failed", res.Failed)
	if c.st.pendingCount() > 0 {
		c.scheduleRetry()
	}
	return res
}

// RetryFailed runs one batch retry cycle over the pending failures. It
// returns ErrBusy if a pass is running.
func (c *Client) RetryFailed(ctx context.Context) error {
	if !c.st.tryAcquire() {
		return ErrBusy
	}
	defer c.st.release()

	pending := c.st.pendingSnapshot()
	if len(pending) == 0 {
		return nil
	}
	c.logger.Info("retrying failed translations", "pending", len(pending))

	succeeded, failed := 0, 0
	for _, p := range pending {
		if ctx.Err() != nil {
			break
		}
		if !c.doc.Contains(p.Element) {
			c.st.unpark(p.Key)
			continue
		}
		if p.Retries >= MaxBatchRetries {
			c.st.unpark(p.Key)
			c.logger.Error("giving up on translation", "text", preview(p.Key), "batch_retries", p.Retries)
			continue
		}
		if tr, ok := c.store.Get(p.Key); ok {
			c.apply(Unit{Key: p.Key, Element: p.Element}, tr)
			continue
		}

		u := Unit{Key: p.Key, Text: p.Element.TextContent(), Element: p.Element}
		switch c.resolveRemote(ctx, u) {
		case remoteOK:
			succeeded++
		case remoteFailed:
			c.st.bumpRetries(p.Key)
			failed++
		}
		if err := sleep(ctx, c.timing.InterUnitDelay); err != nil {
			break
		}
	}

	c.logger.Info("retry cycle complete", "succeeded", succeeded, "still_failing", failed)
	if c.st.pendingCount() > 0 {
		c.scheduleRetry()
	} else {
		c.logger.Info("all translations complete")
	}
	return nil
}

// scheduleRetry arms the single retry slot unless it is already armed.
func (c *Client) scheduleRetry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.retryTimer != nil {
		return
	}
	c.logger.Info("scheduling batch retry", "delay", c.timing.BatchRetryDelay, "pending", c.st.pendingCount())
	c.retrySeq++
	seq := c.retrySeq
	c.retryTimer = time.AfterFunc(c.timing.BatchRetryDelay, func() {
		c.mu.Lock()
		if seq != c.retrySeq {
			c.mu.Unlock()
			return
		}
		c.retryTimer = nil
		c.retrying = true
		ctx := c.ctx
		c.mu.Unlock()

		err := c.RetryFailed(ctx)

		c.mu.Lock()
		c.retrying = false
		c.mu.Unlock()
		if errors.Is(err, ErrBusy) {
			c.scheduleRetry()
		}
	})
}

// RetryScheduled reports whether a batch retry is armed or running.
func (c *Client) RetryScheduled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retryTimer != nil || c.retrying
}

// Pending returns the parked failures, oldest first.
func (c *Client) Pending() []PendingFailure {
	return c.st.pendingSnapshot()
}

// Stop cancels a scheduled batch retry.
func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retrySeq++
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= 50 {
		return s
	}
	return string(r[:50]) + "..."
}
