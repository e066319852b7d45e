package framelai

import (
	"log/slog"
	"strings"

	"github.com/ZaguanLabs/framelai/dom"
)

// DefaultExcludedSelector matches containers whose text is never collected.
const DefaultExcludedSelector = "#saves-list-container, #saves-list, .saves-list"

// Batcher groups untranslated text into block-level translation units.
type Batcher struct {
	st       *state
	excluded string
	logger   *slog.Logger
}

func newBatcher(st *state, excluded string, logger *slog.Logger) *Batcher {
	return &Batcher{st: st, excluded: excluded, logger: logger}
}

// Collect walks the text under scope and returns one unit per block that
// holds new, translatable text. Collected text nodes are marked processed,
// so a second call without intervening changes returns nothing.
func (b *Batcher) Collect(scope dom.Node) []Unit {
	if !scope.Valid() {
		return nil
	}

	var (
		units    []Unit
		accepted []dom.Node
		seen     = make(map[dom.Node]bool)
	)

	for _, tn := range scope.TextNodes(ignoredTags) {
		if b.isProcessed(tn) {
			continue
		}
		text := tn.Data()
		if strings.TrimSpace(text) == "" || !Classify(text) {
			continue
		}

		parent := tn.Parent()
		if !parent.IsElement() || parent.IsHidden() {
			continue
		}
		if b.excluded != "" && parent.Closest(b.excluded).Valid() {
			continue
		}

		accepted = append(accepted, tn)

		block := blockFor(parent, scope)
		if seen[block] {
			continue
		}
		seen[block] = true

		inner, err := block.InnerHTML()
		if err != nil {
			b.logger.Warn("skipping unreadable block", "tag", block.Tag(), "error", err)
			continue
		}
		inner = strings.TrimSpace(inner)
		if !hasLatin(inner) {
			continue
		}

		key, ok := b.track(block, inner)
		if !ok {
			continue
		}
		units = append(units, Unit{Key: key, Text: block.TextContent(), Element: block})
	}

	b.st.markProcessed(accepted...)
	if len(units) > 0 {
		b.logger.Debug("collected translation units", "units", len(units), "text_nodes", len(accepted))
	}
	return units
}

func (b *Batcher) isProcessed(n dom.Node) bool {
	b.st.mu.Lock()
	defer b.st.mu.Unlock()
	_, ok := b.st.processed[n]
	return ok
}

// track returns the key for block. A processed block that currently shows
// its tracked original was restored on purpose and is skipped.
func (b *Batcher) track(block dom.Node, inner string) (string, bool) {
	b.st.mu.Lock()
	defer b.st.mu.Unlock()

	original, tracked := b.st.originals[block]
	_, done := b.st.processed[block]
	if tracked && done && inner == original {
		return "", false
	}
	return b.st.trackLocked(block, inner), true
}

// blockFor returns the nearest whitelisted block ancestor of el that is not
// outside scope, or el itself when there is none.
func blockFor(el, scope dom.Node) dom.Node {
	for p := el; p.IsElement(); p = p.Parent() {
		if blockTags[p.Tag()] {
			return p
		}
		if p == scope {
			break
		}
	}
	return el
}
