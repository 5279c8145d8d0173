// Package unicodecheck rejects display labels that carry invisible or
// reordering characters. Session names and document titles are shown to every
// member of a session, so they are held to a stricter rule than content.
package unicodecheck

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MaxLabelLength bounds a label in runes after normalisation
const MaxLabelLength = 255

// Zero-width characters commonly used in spoofing attacks.
var zeroWidthChars = []rune{
	'\u200B', // Zero Width Space
	'\u200C', // Zero Width Non-Joiner
	'\u200D', // Zero Width Joiner
	'\u200E', // Left-to-Right Mark
	'\u200F', // Right-to-Left Mark
	'\uFEFF', // Byte Order Mark
}

// Bidirectional overrides can reorder displayed text.
var bidiOverrideChars = []rune{
	'\u202A', '\u202B', '\u202C', '\u202D', '\u202E',
	'\u2066', '\u2067', '\u2068', '\u2069',
}

// NormalizeLabel trims a label and converts it to NFC
func NormalizeLabel(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Problem describes the first disallowed character class in s, or "" when s is clean
func Problem(s string) string {
	for _, r := range s {
		switch {
		case slices.Contains(zeroWidthChars, r):
			return "zero-width characters"
		case slices.Contains(bidiOverrideChars, r):
			return "bidirectional overrides"
		case r == '\u3164' || r == '\uFFA0':
			return "Hangul fillers"
		case unicode.IsControl(r):
			return "control characters"
		case unicode.Is(unicode.Co, r) || unicode.Is(unicode.Cs, r):
			return "private-use characters"
		}
	}
	return ""
}

// ValidateLabel normalises a label named field and checks it is non-empty,
// bounded and free of invisible characters
func ValidateLabel(field, s string) (string, error) {
	label := NormalizeLabel(s)
	if label == "" {
		return "", fmt.Errorf("%s is required", field)
	}
	if n := len([]rune(label)); n > MaxLabelLength {
		return "", fmt.Errorf("%s must be at most %d characters", field, MaxLabelLength)
	}
	if p := Problem(label); p != "" {
		return "", fmt.Errorf("%s must not contain %s", field, p)
	}
	return label, nil
}
