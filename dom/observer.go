package dom

import (
	"sync"

	"golang.org/x/net/html"
)

// MutationType names the kind of change a Record describes.
type MutationType string

const (
	ChildList     MutationType = "childList"
	CharacterData MutationType = "characterData"
)

// Record describes one mutation.
type Record struct {
	Type   MutationType
	Target Node
}

// ObserveOptions selects which mutations an Observer receives.
type ObserveOptions struct {
	ChildList     bool
	CharacterData bool
	Subtree       bool
}

// Observer receives batches of mutation records asynchronously, after the
// mutating call has returned.
type Observer struct {
	doc    *Document
	target *html.Node
	opts   ObserveOptions
	fn     func([]Record)

	mu        sync.Mutex
	queue     []Record
	scheduled bool
	closed    bool
}

// Observe starts watching target. fn is never called while the document
// lock is held.
func (d *Document) Observe(target Node, opts ObserveOptions, fn func([]Record)) *Observer {
	o := &Observer{doc: d, target: target.n, opts: opts, fn: fn}
	if target.n == nil {
		o.closed = true
		return o
	}

	d.mu.Lock()
	d.observers = append(d.observers, o)
	d.mu.Unlock()
	return o
}

// Disconnect stops delivery. Records already queued are dropped.
func (o *Observer) Disconnect() {
	o.mu.Lock()
	o.closed = true
	o.queue = nil
	o.mu.Unlock()

	d := o.doc
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, x := range d.observers {
		if x == o {
			d.observers = append(d.observers[:i], d.observers[i+1:]...)
			break
		}
	}
}

// notify must be called with the document lock held.
func (d *Document) notify(typ MutationType, target *html.Node) {
	rec := Record{Type: typ, Target: d.wrap(target)}
	for _, o := range d.observers {
		if o.wants(typ, target) {
			o.enqueue(rec)
		}
	}
}

func (o *Observer) wants(typ MutationType, target *html.Node) bool {
	switch typ {
	case ChildList:
		if !o.opts.ChildList {
			return false
		}
	case CharacterData:
		if !o.opts.CharacterData {
			return false
		}
	}
	if target == o.target {
		return true
	}
	if !o.opts.Subtree {
		return false
	}
	for p := target.Parent; p != nil; p = p.Parent {
		if p == o.target {
			return true
		}
	}
	return false
}

func (o *Observer) enqueue(rec Record) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.queue = append(o.queue, rec)
	if !o.scheduled {
		o.scheduled = true
		go o.deliver()
	}
}

func (o *Observer) deliver() {
	o.mu.Lock()
	records := o.queue
	o.queue = nil
	o.scheduled = false
	closed := o.closed
	o.mu.Unlock()

	if closed || len(records) == 0 {
		return
	}
	o.fn(records)
}
