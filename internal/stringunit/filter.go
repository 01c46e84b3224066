package stringunit

import (
	"slices"
	"strings"
	"unicode"
)

var (
	allowedControls = []rune{'\n', '\r', '\t', '\u200b', '\u00a0', '\u3000'}
	blacklist       = []string{"<p>"}
	whitelist       = []string{"WoollyRhino", "CuSith"}
)

// IsValid reports whether text looks like player-visible prose rather than
// an internal identifier.
func IsValid(text string) bool {
	if strings.TrimSpace(text) == "" || slices.Contains(blacklist, text) {
		return false
	}
	if slices.Contains(whitelist, text) || strings.Contains(text, "<Alias") {
		return true
	}
	if IsCamelCase(text) || IsSnakeCase(text) {
		return false
	}
	for _, r := range text {
		if !unicode.IsPrint(r) && !slices.Contains(allowedControls, r) {
			return false
		}
	}
	return true
}

// IsCamelCase reports an alphanumeric token with an inner capital, e.g. "IronSword01".
func IsCamelCase(text string) bool {
	runes := []rune(text)
	if len(runes) < 3 {
		return false
	}
	innerUpper := false
	for _, r := range runes[2:] {
		if unicode.IsUpper(r) {
			innerUpper = true
			break
		}
	}
	return innerUpper && !isUpper(text) && isAlnum(text)
}

// IsSnakeCase reports a token without spaces that contains an underscore.
func IsSnakeCase(text string) bool {
	return !strings.Contains(text, " ") && strings.Contains(text, "_")
}

// isUpper matches str.isupper: at least one cased rune and none lower or title case.
func isUpper(text string) bool {
	cased := false
	for _, r := range text {
		switch {
		case unicode.IsLower(r), unicode.IsTitle(r):
			return false
		case unicode.IsUpper(r):
			cased = true
		}
	}
	return cased
}

func isAlnum(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}
