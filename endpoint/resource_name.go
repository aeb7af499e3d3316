package endpoint

import (
	"strings"
	"unicode"
)

// resourceName turns a resource name into lower snake_case words. A word
// ends at a lower-to-upper change, before the last capital of an acronym
// ("APIKey" is "api_key") and at any rune that is neither a letter nor a
// digit, so the result never contains TagSeparator.
func resourceName(s string) string {
	runes := []rune(s)
	words := make([]string, 0, 4)
	start := -1

	flush := func(end int) {
		if start >= 0 {
			words = append(words, strings.ToLower(string(runes[start:end])))
			start = -1
		}
	}

	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush(i)
			continue
		}
		if start >= 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			acronymEnd := unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || acronymEnd {
				flush(i)
			}
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(runes))

	return strings.Join(words, "_")
}
