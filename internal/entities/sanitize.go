package entities

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxTextLength caps analyzed input, in runes.
const MaxTextLength = 10000

var controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)

// Sanitize strips control characters (newlines and tabs survive), folds
// compatibility forms such as full-width digits with NFKC and caps the
// result at MaxTextLength runes.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}
	clean := norm.NFKC.String(text)
	clean = controlChars.ReplaceAllString(clean, "")
	if utf8.RuneCountInString(clean) > MaxTextLength {
		clean = string([]rune(clean)[:MaxTextLength])
	}
	return clean
}

// IsBlank reports whether text has no visible content.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

const maskPreviewLength = 120

// Mask redacts identifiers so a message preview can be logged. Payment
// handles keep their provider, numbers keep their last four digits.
func Mask(text string) string {
	out := handlePattern.ReplaceAllStringFunc(text, func(m string) string {
		at := strings.IndexByte(m, '@')
		return "***" + m[at:]
	})
	out = accountPattern.ReplaceAllStringFunc(out, maskDigits)
	out = phonePattern.ReplaceAllStringFunc(out, maskDigits)
	if utf8.RuneCountInString(out) > maskPreviewLength {
		out = string([]rune(out)[:maskPreviewLength]) + "..."
	}
	return out
}

func maskDigits(m string) string {
	clean := separators.Replace(m)
	if len(clean) <= 4 {
		return m
	}
	return strings.Repeat("*", len(clean)-4) + clean[len(clean)-4:]
}
