package framelai

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZaguanLabs/framelai/dom"
)

func newTestWatcher(t *testing.T, contentID string) (*Watcher, *dom.Document, *state, *atomic.Int32) {
	t.Helper()
	doc, err := dom.ParseString(framePage(`<p id="line">Hello</p>`), dom.WithFrame())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	st := newState()
	var fired atomic.Int32
	w := newWatcher(doc, contentID, 20*time.Millisecond, st, func() { fired.Add(1) }, quietLogger())
	t.Cleanup(w.Stop)
	return w, doc, st, &fired
}

func TestWatcher_Debounces(t *testing.T) {
	w, doc, _, fired := newTestWatcher(t, "story")
	w.Start()
	if !w.Active() {
		t.Fatal("expected watcher to be active")
	}

	scope := doc.GetElementByID("story")
	for i := 0; i < 3; i++ {
		if err := scope.AppendHTML("<p>More text</p>"); err != nil {
			t.Fatalf("AppendHTML: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	eventually(t, func() bool { return fired.Load() > 0 }, "debounced trigger")
	time.Sleep(60 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("expected a single trigger for a burst of mutations, got %d", got)
	}
	if w.Armed() {
		t.Error("expected no pending trigger after firing")
	}
}

func TestWatcher_IgnoresMutationsWhileBusy(t *testing.T) {
	w, doc, st, fired := newTestWatcher(t, "story")
	w.Start()

	st.tryAcquire()
	_ = doc.GetElementByID("line").SetInnerHTML("Changed")
	time.Sleep(60 * time.Millisecond)
	st.release()

	if fired.Load() != 0 || w.Armed() {
		t.Errorf("expected mutations during a pass to be dropped (fired=%d)", fired.Load())
	}
}

func TestWatcher_StopCancelsPendingTrigger(t *testing.T) {
	w, doc, _, fired := newTestWatcher(t, "story")
	w.Start()

	_ = doc.GetElementByID("line").SetInnerHTML("Changed")
	eventually(t, w.Armed, "trigger armed")
	w.Stop()

	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Errorf("expected no trigger after Stop, got %d", fired.Load())
	}
	if w.Active() {
		t.Error("expected watcher to be inactive after Stop")
	}
}

func TestWatcher_FallsBackToBody(t *testing.T) {
	w, doc, _, fired := newTestWatcher(t, "missing")
	w.Start()

	if err := doc.Body().AppendHTML("<p>Late content</p>"); err != nil {
		t.Fatalf("AppendHTML: %v", err)
	}
	eventually(t, func() bool { return fired.Load() == 1 }, "trigger from body")
}
