package framelai

import (
	"log/slog"

	"github.com/ZaguanLabs/framelai/cache"
	"github.com/ZaguanLabs/framelai/dom"
)

// ToggleID is the id of the injected mode toggle button.
const ToggleID = "framelai-toggle"

// Display renders tracked elements in the current mode.
type Display struct {
	doc    *dom.Document
	st     *state
	dict   Dictionary
	store  *cache.Store
	keys   *KeyBinder
	logger *slog.Logger
}

func newDisplay(doc *dom.Document, st *state, dict Dictionary, store *cache.Store, keys *KeyBinder, logger *slog.Logger) *Display {
	return &Display{doc: doc, st: st, dict: dict, store: store, keys: keys, logger: logger}
}

// Lookup returns a known translation for an original: the dictionary first,
// then the cache.
func (d *Display) Lookup(original string) (string, bool) {
	if tr, ok := d.dict.Lookup(original); ok {
		return tr, true
	}
	return d.store.Get(original)
}

// Render replaces el's content with the sanitized translation and rebinds
// shortcuts. The new text is marked processed so it is not collected again.
// It reports whether el was updated.
func (d *Display) Render(el dom.Node, translation string) bool {
	if !d.doc.Contains(el) {
		return false
	}
	if err := el.SetInnerHTML(Sanitize(translation)); err != nil {
		d.logger.Warn("render failed", "tag", el.Tag(), "error", err)
		return false
	}
	d.st.markProcessed(el)
	d.st.markProcessed(el.TextNodes(nil)...)
	d.keys.Bind(el)
	return true
}

// SetMode switches every tracked element to mode and returns how many were
// updated. Elements that left the document are no longer tracked.
func (d *Display) SetMode(mode DisplayMode) int {
	d.st.mu.Lock()
	d.st.mode = mode
	d.st.mu.Unlock()

	els, originals := d.st.tracked()
	updated := 0
	for i, el := range els {
		if !d.doc.Contains(el) {
			d.st.untrack(el)
			continue
		}

		switch mode {
		case ModeTranslated:
			tr, ok := d.Lookup(originals[i])
			if ok && d.Render(el, tr) {
				updated++
			}
		case ModeOriginal:
			if current, err := el.InnerHTML(); err == nil && current == originals[i] {
				continue
			}
			if err := el.SetInnerHTML(originals[i]); err != nil {
				d.logger.Warn("restore failed", "tag", el.Tag(), "error", err)
				continue
			}
			updated++
		}
	}

	d.updateToggle(mode)
	d.logger.Info("display mode changed", "mode", mode.String(), "elements", updated)
	return updated
}

// Toggle flips the display mode and returns the new one.
func (d *Display) Toggle() DisplayMode {
	next := ModeOriginal
	if d.st.currentMode() == ModeOriginal {
		next = ModeTranslated
	}
	d.SetMode(next)
	return next
}

// InjectToggle adds the toggle button to <body> unless it already exists.
func (d *Display) InjectToggle() dom.Node {
	if btn := d.doc.GetElementByID(ToggleID); btn.Valid() {
		return btn
	}
	body := d.doc.Body()
	if !body.Valid() {
		d.logger.Warn("no body to attach the toggle to")
		return dom.Node{}
	}

	markup := `<button id="` + ToggleID + `" type="button">` + toggleLabel(d.st.currentMode()) + `</button>`
	if err := body.AppendHTML(markup); err != nil {
		d.logger.Warn("toggle injection failed", "error", err)
		return dom.Node{}
	}

	btn := d.doc.GetElementByID(ToggleID)
	btn.AddEventListener("click", false, func(*dom.Event) {
		d.Toggle()
	})
	d.logger.Debug("toggle button injected")
	return btn
}

// RemoveToggle removes the toggle button if present.
func (d *Display) RemoveToggle() {
	if btn := d.doc.GetElementByID(ToggleID); btn.Valid() {
		_ = btn.Remove()
	}
}

func (d *Display) updateToggle(mode DisplayMode) {
	btn := d.doc.GetElementByID(ToggleID)
	if !btn.Valid() {
		return
	}
	if err := btn.SetInnerHTML(toggleLabel(mode)); err != nil {
		d.logger.Warn("toggle label update failed", "error", err)
	}
}

// toggleLabel names the language a click switches to.
func toggleLabel(mode DisplayMode) string {
	if mode == ModeOriginal {
		return "Kor"
	}
	return "Eng"
}
