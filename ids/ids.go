// Package ids turns free-form user text into attachment identifier tokens.
package ids

import (
	"strings"
	"unicode"
)

// Parse strips everything except digits, commas and whitespace, treats every
// whitespace character as a comma and returns the non-empty fields in order.
// Text made only of separators yields nil.
func Parse(text string) []string {
	cleaned := FilterInput(text)
	tokens := strings.FieldsFunc(cleaned, isSeparator)
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

// Allowed reports whether r may be typed into an identifier field.
func Allowed(r rune) bool {
	return (r >= '0' && r <= '9') || isSeparator(r)
}

// FilterInput drops every rune that Allowed rejects.
func FilterInput(text string) string {
	return strings.Map(func(r rune) rune {
		if Allowed(r) {
			return r
		}
		return -1
	}, text)
}

func isSeparator(r rune) bool {
	return r == ',' || unicode.IsSpace(r)
}
