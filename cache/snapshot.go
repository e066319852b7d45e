package cache

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ZaguanLabs/framelai/dom"
)

// Snapshot is the JSON structure the cache is persisted and exported as.
// Entries are ordered newest first.
type Snapshot struct {
	Version string          `json:"version"`
	SavedAt string          `json:"saved_at"`
	Entries []SnapshotEntry `json:"entries"`
}

// SnapshotEntry is a single persisted translation.
type SnapshotEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ImportResult contains statistics about an import.
type ImportResult struct {
	Version  string
	Imported int
	Skipped  int
}

// encodeLocked builds the persisted payload: the newest maxSize entries
// that the dictionary does not already cover. Must be called with the lock
// held.
func (s *Store) encodeLocked() ([]byte, error) {
	snap := Snapshot{
		Version: snapshotVersion,
		SavedAt: time.Now().UTC().Format(time.RFC3339),
		Entries: make([]SnapshotEntry, 0, len(s.entries)),
	}
	for _, key := range s.orderedKeysLocked() {
		if len(snap.Entries) >= s.maxSize {
			break
		}
		if s.dict != nil && s.dict.Contains(key) {
			continue
		}
		snap.Entries = append(snap.Entries, SnapshotEntry{Key: key, Value: s.entries[key].translation})
	}
	return json.Marshal(snap)
}

// Export writes the persisted form of the cache to w, indented.
func (s *Store) Export(w io.Writer) error {
	s.mu.Lock()
	payload, err := s.encodeLocked()
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(snap); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// Import reads a snapshot from r and adds its entries, then schedules a
// write. Blank keys or values are skipped.
func (s *Store) Import(r io.Reader) (*ImportResult, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}

	result := &ImportResult{Version: snap.Version}
	for i := len(snap.Entries) - 1; i >= 0; i-- {
		e := snap.Entries[i]
		if strings.TrimSpace(e.Key) == "" || strings.TrimSpace(e.Value) == "" {
			result.Skipped++
			continue
		}
		s.Put(e.Key, e.Value, dom.Node{})
		result.Imported++
	}
	if result.Imported > 0 {
		s.Persist()
	}
	return result, nil
}
