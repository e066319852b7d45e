package dom

import "golang.org/x/net/html"

// Listener handles a dispatched event.
type Listener func(*Event)

type listener struct {
	typ     string
	capture bool
	fn      Listener
}

// Event is a DOM event. Keyboard fields are zero for other event types.
type Event struct {
	Type          string
	Target        Node
	CurrentTarget Node
	Bubbles       bool
	Cancelable    bool

	Key      string
	Code     string
	KeyCode  int
	Which    int
	ShiftKey bool

	defaultPrevented bool
	stopped          bool
}

// NewKeyboardEvent builds a bubbling, cancelable keyboard event.
func NewKeyboardEvent(typ, key, code string, keyCode int, shift bool) *Event {
	return &Event{
		Type:       typ,
		Bubbles:    true,
		Cancelable: true,
		Key:        key,
		Code:       code,
		KeyCode:    keyCode,
		Which:      keyCode,
		ShiftKey:   shift,
	}
}

// PreventDefault cancels the event's default action if it is cancelable.
func (e *Event) PreventDefault() {
	if e.Cancelable {
		e.defaultPrevented = true
	}
}

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool {
	return e.defaultPrevented
}

// StopPropagation prevents any further listeners from running.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// AddEventListener registers fn for events of type typ on the node. Capture
// listeners run on the way down from the document to the target, the others
// on the way back up.
func (n Node) AddEventListener(typ string, capture bool, fn Listener) {
	if n.n == nil {
		return
	}
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	n.doc.listeners[n.n] = append(n.doc.listeners[n.n], listener{typ: typ, capture: capture, fn: fn})
}

// Click dispatches a click on the node. It returns false if a listener
// prevented the default action.
func (n Node) Click() bool {
	if n.n == nil {
		return false
	}
	ev := &Event{Type: "click", Bubbles: true, Cancelable: true}
	return n.doc.dispatch(n.n, ev)
}

// AddEventListener registers a document-level listener.
func (d *Document) AddEventListener(typ string, fn Listener) {
	d.Root().AddEventListener(typ, false, fn)
}

// Dispatch fires ev with the document itself as the target.
func (d *Document) Dispatch(ev *Event) bool {
	return d.dispatch(d.root, ev)
}

func (d *Document) dispatch(target *html.Node, ev *Event) bool {
	type call struct {
		node *html.Node
		fn   Listener
	}

	d.mu.RLock()
	var path []*html.Node
	for p := target; p != nil; p = p.Parent {
		path = append(path, p)
	}

	var calls []call
	for i := len(path) - 1; i >= 0; i-- {
		for _, l := range d.listeners[path[i]] {
			if l.typ == ev.Type && l.capture {
				calls = append(calls, call{node: path[i], fn: l.fn})
			}
		}
	}
	for i, p := range path {
		if i > 0 && !ev.Bubbles {
			break
		}
		for _, l := range d.listeners[p] {
			if l.typ == ev.Type && !l.capture {
				calls = append(calls, call{node: p, fn: l.fn})
			}
		}
	}
	d.mu.RUnlock()

	ev.Target = d.wrap(target)
	for _, c := range calls {
		if ev.stopped {
			break
		}
		ev.CurrentTarget = d.wrap(c.node)
		c.fn(ev)
	}
	return !ev.defaultPrevented
}
