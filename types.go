package framelai

import (
	"context"
	"time"

	"github.com/ZaguanLabs/framelai/dom"
)

const (
	// MaxTranslationRetries is the number of remote attempts made for a unit
	// before it is parked for a later batch retry.
	MaxTranslationRetries = 3

	// MaxBatchRetries is the number of batch-level retries a parked unit gets
	// before it is dropped for good.
	MaxBatchRetries = 3

	// ActionTranslate is the action name sent with every remote request.
	ActionTranslate = "translate"
)

// DisplayMode selects which version of the text is rendered.
type DisplayMode int

const (
	// ModeTranslated shows translated HTML wherever a translation is known.
	ModeTranslated DisplayMode = iota
	// ModeOriginal shows the untouched source HTML.
	ModeOriginal
)

func (m DisplayMode) String() string {
	if m == ModeOriginal {
		return "original"
	}
	return "translated"
}

// Unit is one block of source text to translate.
type Unit struct {
	Key     string   // Original inner HTML of the block (trimmed)
	Text    string   // Text content of the block at collection time
	Element dom.Node // Minimal block ancestor holding the text
}

// Settings are the user-controlled switches.
type Settings struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{Enabled: true}
}

// SettingsSource supplies settings, falling back to defaults for anything
// that is not set.
type SettingsSource interface {
	Settings(ctx context.Context, defaults Settings) (Settings, error)
}

// Dictionary is the static phrase table consulted before any cache or
// remote lookup. It is never written to.
type Dictionary interface {
	// Lookup matches the trimmed, lowercased text exactly.
	Lookup(text string) (string, bool)
	// Relevant returns the entries whose phrase occurs in text.
	Relevant(text string) map[string]string
	// Contains reports whether key (trimmed, lowercased) is a phrase.
	Contains(key string) bool
}

// RemoteTranslator is the interface for remote translation backends.
type RemoteTranslator interface {
	Translate(ctx context.Context, req TranslateRequest) (TranslateResponse, error)
}

// TranslateRequest is sent to the remote translator.
type TranslateRequest struct {
	Action     string            `json:"action"`
	Text       string            `json:"text"`
	Dictionary map[string]string `json:"dictionary"`
}

// TranslateResponse is returned by the remote translator.
type TranslateResponse struct {
	Success     bool   `json:"success"`
	Translation string `json:"translation,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Timing holds every delay the pipeline uses.
type Timing struct {
	RetryBackoff    time.Duration // Pause between remote attempts for one unit
	InterUnitDelay  time.Duration // Pause after each remote attempt in a batch
	BatchRetryDelay time.Duration // Delay before a batch retry cycle
	WatchDebounce   time.Duration // Quiet time before re-batching on mutations
	KeyUpDelay      time.Duration // Gap between synthetic keydown and keyup
}

// DefaultTiming returns the delays used in production.
func DefaultTiming() Timing {
	return Timing{
		RetryBackoff:    1 * time.Second,
		InterUnitDelay:  400 * time.Millisecond,
		BatchRetryDelay: 5 * time.Second,
		WatchDebounce:   500 * time.Millisecond,
		KeyUpDelay:      50 * time.Millisecond,
	}
}

// ignoredTags contains tags whose text is never collected.
var ignoredTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"textarea": true,
	"template": true,
	"input":    true,
	"button":   true,
}

// blockTags is the whitelist of elements that form a translation unit.
var blockTags = map[string]bool{
	"address":    true,
	"article":    true,
	"aside":      true,
	"blockquote": true,
	"caption":    true,
	"dd":         true,
	"div":        true,
	"dt":         true,
	"figcaption": true,
	"footer":     true,
	"h1":         true,
	"h2":         true,
	"h3":         true,
	"h4":         true,
	"h5":         true,
	"h6":         true,
	"header":     true,
	"label":      true,
	"li":         true,
	"p":          true,
	"section":    true,
	"td":         true,
	"th":         true,
}
