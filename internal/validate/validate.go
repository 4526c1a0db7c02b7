// Package validate holds the format checks shared by every gym component.
// The checks are pure: they never print, log, or mutate.
package validate

import (
	"strings"
	"unicode"
)

// IsNumber reports whether s is a non-empty run of ASCII digits.
func IsNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsPositive reports whether s is a number greater than zero.
func IsPositive(s string) bool {
	if !IsNumber(s) {
		return false
	}
	return strings.TrimLeft(s, "0") != ""
}

// IsAlpha reports whether s is a non-empty run of letters. Accented
// letters count; spaces, digits and symbols do not.
func IsAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

var yesNo = map[string]bool{
	"si":  true,
	"sí":  true,
	"s":   true,
	"yes": true,
	"y":   true,
	"no":  false,
	"n":   false,
}

// IsYesNo reports whether answer is a recognised yes/no token.
func IsYesNo(answer string) bool {
	_, ok := yesNo[strings.ToLower(strings.TrimSpace(answer))]
	return ok
}

// YesNo resolves answer to a boolean. Anything that is not an explicit
// "no" resolves to true, so callers should gate on IsYesNo first.
func YesNo(answer string) bool {
	v, ok := yesNo[strings.ToLower(strings.TrimSpace(answer))]
	if !ok {
		return true
	}
	return v
}
