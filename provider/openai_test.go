package provider

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ZaguanLabs/framelai"
)

func TestBuildSystemPrompt(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test"})

	prompt := p.buildSystemPrompt(TranslateRequest{Action: framelai.ActionTranslate, Text: "Hello"})

	if !strings.Contains(prompt, "Korean (South Korea)") {
		t.Error("Prompt should contain target language name")
	}
	if !strings.Contains(prompt, "narrative register") {
		t.Error("Prompt should contain locale clarification for ko_KR")
	}
	if strings.Contains(prompt, "# Glossary") {
		t.Error("Prompt should not contain a glossary without dictionary entries")
	}
}

func TestBuildSystemPrompt_WithDictionary(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test"})

	req := TranslateRequest{
		Action:     framelai.ActionTranslate,
		Text:       "Hello, Robin!",
		Dictionary: map[string]string{"robin": "로빈", "whitney": "휘트니"},
	}

	prompt := p.buildSystemPrompt(req)

	if !strings.Contains(prompt, `"robin" → 로빈`) {
		t.Errorf("Prompt should contain glossary entry, got:\n%s", prompt)
	}
	if strings.Index(prompt, "robin") > strings.Index(prompt, "whitney") {
		t.Error("Glossary should be sorted")
	}
}

func TestBuildSystemPrompt_TargetLang(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test", TargetLang: "ja-JP"})

	prompt := p.buildSystemPrompt(TranslateRequest{Text: "Hello"})
	if !strings.Contains(prompt, "Japanese (Japan)") {
		t.Error("Prompt should contain the configured target language")
	}
}

func TestBuildUserMessage(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test"})

	msg := p.buildUserMessage(TranslateRequest{Text: "Hello"})
	if msg != `{"text":"Hello"}` {
		t.Errorf("Unexpected user message: %s", msg)
	}
}

func TestParseResponse(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test"})

	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{"translation key", `{"translation": "안녕, 로빈!"}`, "안녕, 로빈!", false},
		{"fallback key", `{"result": "안녕"}`, "안녕", false},
		{"empty", `{"translation": ""}`, "", true},
		{"not json", `안녕`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.parseResponse(tt.content)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseResponse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseResponse() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseResponse_EmptyIsErrEmptyTranslation(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test"})

	_, err := p.parseResponse(`{"translation": 3}`)
	if !errors.Is(err, framelai.ErrEmptyTranslation) {
		t.Errorf("Expected ErrEmptyTranslation, got: %v", err)
	}
}

func TestTranslate_EmptyText(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test"})

	resp, err := p.Translate(context.Background(), TranslateRequest{Text: "  "})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if resp.Success {
		t.Error("Expected unsuccessful response for empty text")
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		err  string
		want bool
	}{
		{"error, status code: 429, message: Rate limit reached", true},
		{"dial tcp: connection refused", true},
		{"error, status code: 401, message: Incorrect API key", false},
	}

	for _, tt := range tests {
		if got := isRetryableError(errors.New(tt.err)); got != tt.want {
			t.Errorf("isRetryableError(%q) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestMockProvider(t *testing.T) {
	m := NewMockProvider(map[string]string{"Hello": "안녕"})
	ctx := context.Background()

	resp, err := m.Translate(ctx, TranslateRequest{Text: "Hello"})
	if err != nil || !resp.Success || resp.Translation != "안녕" {
		t.Errorf("Translate(Hello) = %+v, %v", resp, err)
	}

	resp, _ = m.Translate(ctx, TranslateRequest{Text: "Unknown text"})
	if resp.Translation != "[Unknown text]" {
		t.Errorf("Expected '[Unknown text]', got %q", resp.Translation)
	}

	if m.CallCount() != 2 {
		t.Errorf("Expected CallCount 2, got %d", m.CallCount())
	}
}

func TestMockProvider_Failures(t *testing.T) {
	m := NewMockProvider(map[string]string{"Hello": "안녕"})
	ctx := context.Background()

	m.FailTimes("Hello", 2)
	for i := 0; i < 2; i++ {
		resp, err := m.Translate(ctx, TranslateRequest{Text: "Hello"})
		if err != nil || resp.Success {
			t.Errorf("attempt %d: expected unsuccessful response, got %+v, %v", i, resp, err)
		}
	}
	if resp, _ := m.Translate(ctx, TranslateRequest{Text: "Hello"}); !resp.Success {
		t.Error("Expected success after scripted failures")
	}

	transport := errors.New("port disconnected")
	m.FailWith(transport)
	m.FailTimes("Hello", -1)
	if _, err := m.Translate(ctx, TranslateRequest{Text: "Hello"}); !errors.Is(err, transport) {
		t.Errorf("Expected transport error, got: %v", err)
	}

	m.Reset()
	if m.CallCount() != 0 || len(m.Requests()) != 0 {
		t.Error("Reset should clear calls and requests")
	}
}
