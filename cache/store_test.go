package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ZaguanLabs/framelai/dictionary"
	"github.com/ZaguanLabs/framelai/dom"
	"github.com/ZaguanLabs/framelai/storage"
)

// countingStorage wraps Memory and counts writes.
type countingStorage struct {
	*storage.Memory
	mu   sync.Mutex
	sets int
	fail error
}

func newCountingStorage() *countingStorage {
	return &countingStorage{Memory: storage.NewMemory()}
}

func (c *countingStorage) Set(ctx context.Context, key, value string) error {
	c.mu.Lock()
	c.sets++
	fail := c.fail
	c.mu.Unlock()
	if fail != nil {
		return fail
	}
	return c.Memory.Set(ctx, key, value)
}

func (c *countingStorage) writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets
}

func quiet() Option {
	return WithLogger(slog.New(slog.DiscardHandler))
}

func decode(t *testing.T, st storage.Storage) Snapshot {
	t.Helper()
	raw, ok, err := st.Get(context.Background(), DefaultKey)
	if err != nil || !ok {
		t.Fatalf("expected persisted snapshot (ok=%v, err=%v)", ok, err)
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		t.Fatalf("snapshot is not JSON: %v", err)
	}
	return snap
}

func TestStore_GetPut(t *testing.T) {
	s := NewStore(nil, quiet())

	if _, ok := s.Get("Hello"); ok {
		t.Error("expected miss on empty store")
	}
	s.Put("Hello", "안녕", dom.Node{})
	if got, ok := s.Get("Hello"); !ok || got != "안녕" {
		t.Errorf("Get = %q, %v", got, ok)
	}

	s.Put("Hello", "안녕하세요", dom.Node{})
	if got, _ := s.Get("Hello"); got != "안녕하세요" {
		t.Errorf("expected replaced translation, got %q", got)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", s.Len())
	}
}

func TestStore_OwnersMerge(t *testing.T) {
	doc, err := dom.ParseString(`<body><p id="a">Hi</p><p id="b">Hi</p></body>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	a, b := doc.GetElementByID("a"), doc.GetElementByID("b")
	s := NewStore(nil, quiet())

	s.Put("Hi", "안녕", a)
	s.Put("Hi", "안녕", a)
	s.Put("Hi", "안녕", b)
	if owners := s.Owners("Hi"); len(owners) != 2 {
		t.Fatalf("expected 2 distinct owners, got %d", len(owners))
	}

	if err := a.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	owners := s.Owners("Hi")
	if len(owners) != 1 || owners[0] != b {
		t.Errorf("expected only the attached owner, got %v", owners)
	}
	if s.Owners("missing") != nil {
		t.Error("expected nil owners for a missing key")
	}
}

func TestStore_EvictsOldest(t *testing.T) {
	s := NewStore(nil, WithMaxSize(3), quiet())
	for i := 0; i < 5; i++ {
		s.Put(fmt.Sprintf("k%d", i), "v", dom.Node{})
	}

	if s.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", s.Len())
	}
	keys := s.Keys()
	want := []string{"k4", "k3", "k2"}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys() = %v, want %v", keys, want)
			break
		}
	}
}

func TestStore_PersistCoalesces(t *testing.T) {
	st := newCountingStorage()
	s := NewStore(st, WithDebounce(20*time.Millisecond), quiet())

	for i := 0; i < 10; i++ {
		s.Put(fmt.Sprintf("line %d", i), "번역", dom.Node{})
		s.Persist()
	}
	if st.writes() != 0 {
		t.Fatal("expected no write before the debounce elapses")
	}

	deadline := time.Now().Add(2 * time.Second)
	for st.writes() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)

	if st.writes() != 1 {
		t.Errorf("expected one coalesced write, got %d", st.writes())
	}
	if snap := decode(t, st); len(snap.Entries) != 10 {
		t.Errorf("expected the write to capture all 10 entries, got %d", len(snap.Entries))
	}
}

func TestStore_PersistRearmsOnEachCall(t *testing.T) {
	st := newCountingStorage()
	s := NewStore(st, WithDebounce(60*time.Millisecond), quiet())

	// Keep calling well inside the debounce for longer than one window.
	for i := 0; i < 8; i++ {
		s.Put(fmt.Sprintf("line %d", i), "번역", dom.Node{})
		s.Persist()
		time.Sleep(20 * time.Millisecond)
	}
	if st.writes() != 0 {
		t.Fatalf("expected the write to wait for a quiet period, got %d writes", st.writes())
	}

	deadline := time.Now().Add(2 * time.Second)
	for st.writes() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	if st.writes() != 1 {
		t.Errorf("expected one write after the burst, got %d", st.writes())
	}
	if snap := decode(t, st); len(snap.Entries) != 8 {
		t.Errorf("expected the write to capture all 8 entries, got %d", len(snap.Entries))
	}
}

func TestStore_FlushExcludesDictionaryAndOrdersNewestFirst(t *testing.T) {
	st := storage.NewMemory()
	dict := dictionary.New(map[string]string{"Continue": "계속"})
	s := NewStore(st, WithDictionary(dict), quiet())

	s.Put("Hello", "안녕", dom.Node{})
	s.Put("continue", "계속", dom.Node{})
	s.Put("Good night.", "잘 자.", dom.Node{})
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	snap := decode(t, st)
	if snap.Version != snapshotVersion || snap.SavedAt == "" {
		t.Errorf("unexpected header: %+v", snap)
	}
	if len(snap.Entries) != 2 {
		t.Fatalf("expected dictionary phrase to be left out, got %+v", snap.Entries)
	}
	if snap.Entries[0].Key != "Good night." || snap.Entries[1].Key != "Hello" {
		t.Errorf("expected newest first, got %+v", snap.Entries)
	}
}

func TestStore_FlushCapsPayload(t *testing.T) {
	st := storage.NewMemory()
	s := NewStore(st, WithMaxSize(2), quiet())
	for i := 0; i < 4; i++ {
		s.Put(fmt.Sprintf("k%d", i), "v", dom.Node{})
	}
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if snap := decode(t, st); len(snap.Entries) != 2 || snap.Entries[0].Key != "k3" {
		t.Errorf("expected the 2 newest entries, got %+v", snap.Entries)
	}
}

func TestStore_FlushFailureKeepsMemory(t *testing.T) {
	st := newCountingStorage()
	st.fail = errors.New("quota exceeded")
	s := NewStore(st, quiet())
	s.Put("Hello", "안녕", dom.Node{})

	if err := s.Flush(context.Background()); err == nil {
		t.Fatal("expected Flush to report the storage error")
	}
	if _, ok := s.Get("Hello"); !ok {
		t.Error("expected in-memory entry to survive a failed write")
	}
}

func TestStore_LoadRoundTrip(t *testing.T) {
	st := storage.NewMemory()
	first := NewStore(st, quiet())
	first.Put("old", "오래된", dom.Node{})
	first.Put("new", "새로운", dom.Node{})
	if err := first.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	second := NewStore(st, quiet())
	second.Put("new", "이미 있음", dom.Node{})
	if err := second.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got, _ := second.Get("old"); got != "오래된" {
		t.Errorf("expected loaded entry, got %q", got)
	}
	if got, _ := second.Get("new"); got != "이미 있음" {
		t.Errorf("expected in-memory entry to win, got %q", got)
	}
}

func TestStore_LoadEmptyAndCorrupt(t *testing.T) {
	st := storage.NewMemory()
	s := NewStore(st, quiet())
	if err := s.Load(context.Background()); err != nil {
		t.Errorf("loading nothing should succeed: %v", err)
	}

	_ = st.Set(context.Background(), DefaultKey, "{not json")
	if err := s.Load(context.Background()); err == nil {
		t.Error("expected error for a corrupt snapshot")
	}
	if s.Len() != 0 {
		t.Error("expected cache to stay empty")
	}
}

func TestStore_ClearAndRemove(t *testing.T) {
	st := storage.NewMemory()
	s := NewStore(st, WithDebounce(time.Hour), quiet())
	s.Put("a", "1", dom.Node{})
	s.Put("b", "2", dom.Node{})
	_ = s.Flush(context.Background())

	if !s.Remove("a") {
		t.Error("expected Remove to report an existing key")
	}
	if s.Remove("a") {
		t.Error("expected Remove to report a missing key")
	}

	if err := s.Clear(context.Background()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if s.Len() != 0 {
		t.Error("expected empty cache")
	}
	if _, ok, _ := st.Get(context.Background(), DefaultKey); ok {
		t.Error("expected persisted copy to be removed")
	}
}

func TestStore_Statistics(t *testing.T) {
	s := NewStore(nil, quiet())
	empty := s.Statistics()
	s.Put("Hello", "안녕", dom.Node{})
	stats := s.Statistics()

	if stats.Entries != 1 {
		t.Errorf("expected 1 entry, got %d", stats.Entries)
	}
	if stats.Bytes <= empty.Bytes {
		t.Errorf("expected payload to grow, %d <= %d", stats.Bytes, empty.Bytes)
	}
}

func TestStore_ExportImport(t *testing.T) {
	src := NewStore(nil, quiet())
	src.Put("Hello", "안녕", dom.Node{})
	src.Put("Good night.", "잘 자.", dom.Node{})

	var buf bytes.Buffer
	if err := src.Export(&buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.Contains(buf.String(), "\n  \"entries\"") {
		t.Errorf("expected indented JSON, got %s", buf.String())
	}

	dst := NewStore(nil, quiet())
	res, err := dst.Import(&buf)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Imported != 2 || res.Skipped != 0 || res.Version != snapshotVersion {
		t.Errorf("unexpected result: %+v", res)
	}
	if keys := dst.Keys(); len(keys) != 2 || keys[0] != "Good night." {
		t.Errorf("expected order to survive import, got %v", keys)
	}

	res, err = dst.Import(strings.NewReader(`{"entries":[{"key":" ","value":"x"},{"key":"k","value":""}]}`))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Imported != 0 || res.Skipped != 2 {
		t.Errorf("expected blank entries to be skipped, got %+v", res)
	}

	if _, err := dst.Import(strings.NewReader("nope")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
