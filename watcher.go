package framelai

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ZaguanLabs/framelai/dom"
)

// Watcher observes the content container and triggers a pass once
// mutations have been quiet for the debounce interval.
type Watcher struct {
	doc       *dom.Document
	contentID string
	debounce  time.Duration
	st        *state
	trigger   func()
	logger    *slog.Logger

	mu       sync.Mutex
	observer *dom.Observer
	timer    *time.Timer
	seq      uint64
}

func newWatcher(doc *dom.Document, contentID string, debounce time.Duration, st *state, trigger func(), logger *slog.Logger) *Watcher {
	return &Watcher{
		doc:       doc,
		contentID: contentID,
		debounce:  debounce,
		st:        st,
		trigger:   trigger,
		logger:    logger,
	}
}

// Start begins observing. The document body is observed when the content
// container does not exist yet. Calling Start again restarts observation.
func (w *Watcher) Start() {
	target := w.doc.GetElementByID(w.contentID)
	if !target.Valid() {
		w.logger.Warn("content container not found, watching body", "id", w.contentID)
		target = w.doc.Body()
	}

	w.Stop()
	obs := w.doc.Observe(target, dom.ObserveOptions{
		ChildList:     true,
		CharacterData: true,
		Subtree:       true,
	}, w.onMutations)

	w.mu.Lock()
	w.observer = obs
	w.mu.Unlock()
	w.logger.Debug("watching for changes", "target", target.Tag())
}

// Stop disconnects the observer and cancels a pending trigger.
func (w *Watcher) Stop() {
	w.mu.Lock()
	obs := w.observer
	w.observer = nil
	w.seq++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	if obs != nil {
		obs.Disconnect()
	}
}

// Active reports whether the watcher is observing.
func (w *Watcher) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.observer != nil
}

// Armed reports whether a debounced trigger is pending.
func (w *Watcher) Armed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.timer != nil
}

func (w *Watcher) onMutations(records []dom.Record) {
	if w.st.isBusy() {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.observer == nil {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.seq++
	seq := w.seq
	w.timer = time.AfterFunc(w.debounce, func() { w.fire(seq) })
}

// fire runs the trigger unless the timer was replaced or the watcher stopped
// in the meantime.
func (w *Watcher) fire(seq uint64) {
	w.mu.Lock()
	if seq != w.seq || w.observer == nil {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	w.trigger()

	w.mu.Lock()
	if seq == w.seq {
		w.timer = nil
	}
	w.mu.Unlock()
}
