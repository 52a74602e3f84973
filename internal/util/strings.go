// Package util provides common utility functions used across the codebase.
package util

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Capitalize upper-cases the first rune of s ("staging theme" -> "Staging theme").
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// MaskSecret hides all but the last four characters of a credential so it
// can be shown to the user ("abcdefgh1234" -> "********1234").
// Values of four characters or fewer are fully masked.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
