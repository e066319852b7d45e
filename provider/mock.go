package provider

import (
	"context"
	"sync"
)

// MockProvider is a scripted remote translator for testing. Unknown texts
// are answered with the text in brackets.
type MockProvider struct {
	mu           sync.Mutex
	translations map[string]string
	failures     map[string]int // remaining failures per text; negative fails forever
	err          error          // returned instead of an unsuccessful response
	calls        int
	requests     []TranslateRequest
}

// NewMockProvider creates a mock with the given translations.
func NewMockProvider(translations map[string]string) *MockProvider {
	m := &MockProvider{
		translations: make(map[string]string, len(translations)),
		failures:     make(map[string]int),
	}
	for k, v := range translations {
		m.translations[k] = v
	}
	return m
}

// FailTimes makes the next n requests for text fail. A negative n fails
// every request.
func (m *MockProvider) FailTimes(text string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[text] = n
}

// FailWith makes failures surface as transport errors instead of
// unsuccessful responses.
func (m *MockProvider) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Translate returns the scripted translation.
func (m *MockProvider) Translate(ctx context.Context, req TranslateRequest) (TranslateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.requests = append(m.requests, req)

	if n, ok := m.failures[req.Text]; ok && n != 0 {
		if n > 0 {
			m.failures[req.Text] = n - 1
		}
		if m.err != nil {
			return TranslateResponse{}, m.err
		}
		return TranslateResponse{Success: false, Error: "mock failure"}, nil
	}

	if tr, ok := m.translations[req.Text]; ok {
		return TranslateResponse{Success: true, Translation: tr}, nil
	}
	return TranslateResponse{Success: true, Translation: "[" + req.Text + "]"}, nil
}

// CallCount returns the number of Translate calls.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Requests returns a copy of every request received.
func (m *MockProvider) Requests() []TranslateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TranslateRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Reset clears the call count and recorded requests.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = 0
	m.requests = nil
}

// Verify MockProvider implements RemoteTranslator
var _ RemoteTranslator = (*MockProvider)(nil)
