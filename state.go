package framelai

import (
	"sort"
	"sync"

	"github.com/ZaguanLabs/framelai/dom"
)

// PendingFailure is a unit whose immediate retries ran out. It waits for a
// batch retry cycle.
type PendingFailure struct {
	Key     string
	Element dom.Node
	Retries int // Batch-level retries already spent

	seq uint64
}

// state is the pipeline's shared mutable state. Every field is guarded by mu.
type state struct {
	mu sync.Mutex

	mode       DisplayMode
	enabled    bool
	busy       bool
	generation uint64

	processed map[dom.Node]struct{}
	originals map[dom.Node]string
	order     []dom.Node // insertion order of originals
	pending   map[string]*PendingFailure
	seq       uint64
}

func newState() *state {
	return &state{
		enabled:   true,
		processed: make(map[dom.Node]struct{}),
		originals: make(map[dom.Node]string),
		pending:   make(map[string]*PendingFailure),
	}
}

// tryAcquire sets the busy flag if it is clear.
func (s *state) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

func (s *state) release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

func (s *state) isBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *state) currentMode() DisplayMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *state) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *state) markProcessed(nodes ...dom.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range nodes {
		s.processed[n] = struct{}{}
	}
}

// trackLocked records original for el unless el is already tracked, and
// returns the tracked original.
func (s *state) trackLocked(el dom.Node, original string) string {
	if prev, ok := s.originals[el]; ok {
		return prev
	}
	s.originals[el] = original
	s.order = append(s.order, el)
	return original
}

// tracked returns a snapshot of the (element, original) pairs in insertion
// order.
func (s *state) tracked() ([]dom.Node, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	els := make([]dom.Node, len(s.order))
	originals := make([]string, len(s.order))
	copy(els, s.order)
	for i, el := range els {
		originals[i] = s.originals[el]
	}
	return els, originals
}

func (s *state) untrack(el dom.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.originals[el]; !ok {
		return
	}
	delete(s.originals, el)
	for i, x := range s.order {
		if x == el {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// park records a failed unit. An existing entry keeps its retry count.
func (s *state) park(key string, el dom.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pending[key]; ok {
		p.Element = el
		return
	}
	s.seq++
	s.pending[key] = &PendingFailure{Key: key, Element: el, seq: s.seq}
}

func (s *state) unpark(key string) {
	s.mu.Lock()
	delete(s.pending, key)
	s.mu.Unlock()
}

func (s *state) pendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// pendingSnapshot returns copies of the pending entries, oldest first.
func (s *state) pendingSnapshot() []PendingFailure {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PendingFailure, 0, len(s.pending))
	for _, p := range s.pending {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// reset clears markers, originals and pending failures and starts a new
// generation. Results of work started before the reset are discarded.
func (s *state) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed = make(map[dom.Node]struct{})
	s.originals = make(map[dom.Node]string)
	s.order = nil
	s.pending = make(map[string]*PendingFailure)
	s.generation++
}

func (s *state) clearProcessed() {
	s.mu.Lock()
	s.processed = make(map[dom.Node]struct{})
	s.mu.Unlock()
}

// bumpRetries counts a failed batch retry for key, if it is still pending.
func (s *state) bumpRetries(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pending[key]; ok {
		p.Retries++
	}
}
