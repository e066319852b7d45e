package framelai

import "strings"

// DefaultTargetLang is the locale translations are produced in.
const DefaultTargetLang = "ko_KR"

// LanguageNames maps locale codes to human-readable names for AI prompts.
var LanguageNames = map[string]string{
	"en_US": "English (United States)",
	"en_GB": "English (United Kingdom)",
	"ja_JP": "Japanese (Japan)",
	"ko_KR": "Korean (South Korea)",
	"zh_CN": "Chinese (Simplified)",
	"zh_TW": "Chinese (Traditional)",
}

// ShortCodeToLocale maps short language codes to full locale codes.
var ShortCodeToLocale = map[string]string{
	"en": "en_US",
	"ja": "ja_JP",
	"ko": "ko_KR",
	"zh": "zh_CN",
}

// localeHints holds extra prompt guidance per locale.
var localeHints = map[string]string{
	"ko_KR": "Use natural modern Korean as spoken in South Korea. Keep character names consistent and use a casual narrative register for story text.",
	"ja_JP": "Use natural modern Japanese; prefer plain form for narration.",
	"zh_TW": "Use Traditional Chinese characters as used in Taiwan.",
}

// GetLanguageName returns the human-readable name for a language code.
// Falls back to the code itself if not found.
func GetLanguageName(langCode string) string {
	langCode = NormalizeLocale(langCode)
	if name, ok := LanguageNames[langCode]; ok {
		return name
	}
	// Try expanding short code
	if locale, ok := ShortCodeToLocale[strings.ToLower(langCode)]; ok {
		if name, ok := LanguageNames[locale]; ok {
			return name
		}
	}
	return langCode
}

// GetLocaleClarification returns prompt guidance for a locale, or "".
func GetLocaleClarification(langCode string) string {
	langCode = NormalizeLocale(langCode)
	if locale, ok := ShortCodeToLocale[strings.ToLower(langCode)]; ok {
		langCode = locale
	}
	return localeHints[langCode]
}

// NormalizeLocale converts a language code to the standard format (e.g., "ko-KR" → "ko_KR").
func NormalizeLocale(langCode string) string {
	return strings.ReplaceAll(langCode, "-", "_")
}

// ToHTMLLang converts a locale code to HTML lang attribute format (e.g., "ko_KR" → "ko-KR").
func ToHTMLLang(langCode string) string {
	return strings.ReplaceAll(langCode, "_", "-")
}
