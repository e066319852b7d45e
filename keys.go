package framelai

import (
	"log/slog"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/ZaguanLabs/framelai/dom"
)

// shortcutSelector matches the link-like elements the game binds numeric
// shortcuts to.
const shortcutSelector = "a, button, [role=link], [role=button], .link-internal, .macro-link"

// shortcutPattern matches "(3)" or "(Shift+2)" with flexible spacing.
var shortcutPattern = regexp.MustCompile(`(?i)\(\s*(shift\s*\+\s*)?([0-9])\s*\)`)

// Shortcut is a digit key, optionally shifted.
type Shortcut struct {
	Digit string
	Shift bool
}

// ParseShortcut extracts the key indicator from link text.
func ParseShortcut(text string) (Shortcut, bool) {
	m := shortcutPattern.FindStringSubmatch(text)
	if m == nil {
		return Shortcut{}, false
	}
	return Shortcut{Digit: m[2], Shift: m[1] != ""}, true
}

// KeyCode returns the legacy keyCode for the digit (48–57).
func (s Shortcut) KeyCode() int {
	d, _ := strconv.Atoi(s.Digit)
	return 48 + d
}

// KeyBinder turns clicks on shortcut links into the digit key presses the
// game listens for, so translated link text keeps working.
type KeyBinder struct {
	doc    *dom.Document
	delay  time.Duration
	logger *slog.Logger

	mu    sync.Mutex
	bound map[dom.Node]struct{}
}

// NewKeyBinder creates a binder dispatching on doc. keyup follows keydown
// after delay.
func NewKeyBinder(doc *dom.Document, delay time.Duration, logger *slog.Logger) *KeyBinder {
	if logger == nil {
		logger = slog.Default()
	}
	return &KeyBinder{
		doc:    doc,
		delay:  delay,
		logger: logger,
		bound:  make(map[dom.Node]struct{}),
	}
}

// Bind attaches a capture-phase click handler to every shortcut link under
// scope (scope included). Each element is bound at most once. It returns the
// number of newly bound elements.
func (k *KeyBinder) Bind(scope dom.Node) int {
	if !scope.Valid() {
		return 0
	}

	candidates := scope.Find(shortcutSelector)
	if scope.Matches(shortcutSelector) {
		candidates = append([]dom.Node{scope}, candidates...)
	}

	k.mu.Lock()
	for el := range k.bound {
		if !k.doc.Contains(el) {
			delete(k.bound, el)
		}
	}
	k.mu.Unlock()

	count := 0
	for _, el := range candidates {
		sc, ok := ParseShortcut(el.TextContent())
		if !ok {
			continue
		}

		k.mu.Lock()
		_, done := k.bound[el]
		if !done {
			k.bound[el] = struct{}{}
		}
		k.mu.Unlock()
		if done {
			continue
		}

		el.AddEventListener("click", true, func(ev *dom.Event) {
			ev.PreventDefault()
			ev.StopPropagation()
			k.Press(sc)
		})
		count++
	}

	if count > 0 {
		k.logger.Debug("bound keyboard shortcuts", "links", count)
	}
	return count
}

// Press dispatches keydown and keypress for sc on the document now and
// keyup after the configured delay.
func (k *KeyBinder) Press(sc Shortcut) {
	code := "Digit" + sc.Digit
	keyCode := sc.KeyCode()

	k.logger.Debug("dispatching shortcut", "key", sc.Digit, "shift", sc.Shift, "key_code", keyCode)
	k.doc.Dispatch(dom.NewKeyboardEvent("keydown", sc.Digit, code, keyCode, sc.Shift))
	k.doc.Dispatch(dom.NewKeyboardEvent("keypress", sc.Digit, code, keyCode, sc.Shift))
	time.AfterFunc(k.delay, func() {
		k.doc.Dispatch(dom.NewKeyboardEvent("keyup", sc.Digit, code, keyCode, sc.Shift))
	})
}
