package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ZaguanLabs/framelai"
	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements RemoteTranslator using OpenAI's API.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
	targetLang  string
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`     // OpenAI API key
	Model       string  `mapstructure:"model"`       // Model to use (default: "gpt-4o-mini")
	Temperature float32 `mapstructure:"temperature"` // Temperature for generation (default: 0.3)
	BaseURL     string  `mapstructure:"base_url"`    // Custom base URL (optional)
	TargetLang  string  `mapstructure:"target_lang"` // Target locale (default: ko_KR)
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	target := cfg.TargetLang
	if target == "" {
		target = framelai.DefaultTargetLang
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
		targetLang:  framelai.NormalizeLocale(target),
	}
}

// Translate translates one HTML fragment. A model answer without a usable
// translation is reported as an unsuccessful response; API failures are
// returned as errors.
func (p *OpenAIProvider) Translate(ctx context.Context, req TranslateRequest) (TranslateResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return TranslateResponse{Success: false, Error: "empty text"}, nil
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.buildSystemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: p.buildUserMessage(req)},
		},
		Temperature: p.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return TranslateResponse{}, &framelai.ProviderError{
			Message:   "OpenAI API call failed",
			Cause:     err,
			Retryable: isRetryableError(err),
		}
	}

	if len(resp.Choices) == 0 {
		return TranslateResponse{}, &framelai.ProviderError{
			Message:   "no response from OpenAI",
			Retryable: true,
		}
	}

	translation, err := p.parseResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return TranslateResponse{Success: false, Error: err.Error()}, nil
	}
	return TranslateResponse{Success: true, Translation: translation}, nil
}

func (p *OpenAIProvider) buildSystemPrompt(req TranslateRequest) string {
	targetName := framelai.GetLanguageName(p.targetLang)

	prompt := fmt.Sprintf(`# Role
You are an expert game localizer. You translate interactive fiction from English to %s with the fluency of a native speaker.

# Task
Translate the provided HTML fragment into natural %s.

# Style Guide
- **Natural Flow**: Avoid literal translations. Rephrase sentences so they read naturally.
- **Markup**: Keep every HTML tag and attribute exactly as it is. Translate only the text between tags.
- **Shortcuts**: Keep key indicators such as "(1)" or "(Shift+2)" unchanged, including their position at the end of link text.
- **Formatting**: Preserve meaningful whitespace and line breaks.`, targetName, targetName)

	if hint := framelai.GetLocaleClarification(p.targetLang); hint != "" {
		prompt += fmt.Sprintf("\n- **Locale**: %s", hint)
	}

	if len(req.Dictionary) > 0 {
		phrases := make([]string, 0, len(req.Dictionary))
		for source := range req.Dictionary {
			phrases = append(phrases, source)
		}
		sort.Strings(phrases)

		prompt += "\n\n# Glossary\nAlways translate these phrases exactly as given:"
		for _, source := range phrases {
			prompt += fmt.Sprintf("\n- \"%s\" → %s", source, req.Dictionary[source])
		}
	}

	prompt += `

# Format
Return a valid JSON object with a single key "translation" holding the translated HTML.
Example: { "translation": "<span>번역된 문장</span>" }
- Do NOT wrap in Markdown code blocks.`

	return prompt
}

func (p *OpenAIProvider) buildUserMessage(req TranslateRequest) string {
	data, _ := json.Marshal(map[string]string{"text": req.Text})
	return string(data)
}

func (p *OpenAIProvider) parseResponse(content string) (string, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err != nil {
		return "", fmt.Errorf("invalid response format from OpenAI: %w", err)
	}

	if s, ok := obj["translation"].(string); ok && s != "" {
		return s, nil
	}

	// Fallback: some models pick their own key
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && s != "" {
			return s, nil
		}
	}
	return "", framelai.ErrEmptyTranslation
}

func isRetryableError(err error) bool {
	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"rate limit",
		"timeout",
		"connection refused",
		"connection reset",
		"temporary",
		"503",
		"502",
		"500",
		"429",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// Verify OpenAIProvider implements RemoteTranslator
var _ RemoteTranslator = (*OpenAIProvider)(nil)
