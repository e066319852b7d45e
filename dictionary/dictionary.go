// Package dictionary holds the static phrase table used before any cache or
// remote lookup.
package dictionary

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dictionary maps lowercase phrases to fixed translations. It is read-only
// after construction and safe for concurrent use. A nil *Dictionary behaves
// as an empty one.
type Dictionary struct {
	entries  map[string]string
	patterns map[string]*regexp.Regexp
}

// New builds a dictionary. Keys are trimmed and lowercased; empty keys and
// empty translations are ignored.
func New(entries map[string]string) *Dictionary {
	d := &Dictionary{
		entries:  make(map[string]string, len(entries)),
		patterns: make(map[string]*regexp.Regexp, len(entries)),
	}
	for phrase, translation := range entries {
		key := normalize(phrase)
		if key == "" || strings.TrimSpace(translation) == "" {
			continue
		}
		d.entries[key] = translation
		d.patterns[key] = regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])` + regexp.QuoteMeta(key) + `(?:[^\p{L}\p{N}]|$)`)
	}
	return d
}

// LoadFile reads a dictionary from a YAML or JSON file holding a flat
// phrase → translation mapping.
func LoadFile(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}

	var entries map[string]string
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing dictionary %s: %w", path, err)
	}
	return New(entries), nil
}

// Lookup returns the translation for text, matched exactly after trimming
// and lowercasing.
func (d *Dictionary) Lookup(text string) (string, bool) {
	if d == nil {
		return "", false
	}
	v, ok := d.entries[normalize(text)]
	return v, ok
}

// Contains reports whether key is one of the phrases.
func (d *Dictionary) Contains(key string) bool {
	_, ok := d.Lookup(key)
	return ok
}

// Relevant returns the entries whose phrase occurs in text as a whole word
// or phrase, ignoring case.
func (d *Dictionary) Relevant(text string) map[string]string {
	out := make(map[string]string)
	if d == nil {
		return out
	}
	for key, pattern := range d.patterns {
		if pattern.MatchString(text) {
			out[key] = d.entries[key]
		}
	}
	return out
}

// Len returns the number of phrases.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
