package framelai

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	hangulPattern = regexp.MustCompile(`\p{Hangul}`)
	latinPattern  = regexp.MustCompile(`[A-Za-z]`)

	// Matched against the trimmed, lowercased fragment.
	rejectPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\d+$`),
		regexp.MustCompile(`^[^\w\s]+$`),
		hangulPattern,
		regexp.MustCompile(`^\d+°c$`),
		regexp.MustCompile(`^[a-df][+\-]?$`),
		regexp.MustCompile(`^[a-z]\*$`),
	}
)

// Classify reports whether text looks like an untranslated English fragment
// worth sending through the pipeline.
func Classify(text string) bool {
	s := strings.ToLower(strings.TrimSpace(text))

	if utf8.RuneCountInString(s) < 2 && s != "a" && s != "i" {
		return false
	}

	for _, re := range rejectPatterns {
		if re.MatchString(s) {
			return false
		}
	}

	return latinPattern.MatchString(s)
}

// hasLatin reports whether s contains at least one ASCII letter.
func hasLatin(s string) bool {
	return latinPattern.MatchString(s)
}
