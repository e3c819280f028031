package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Fold canonicalizes a string for comparison: whitespace trimming, Unicode
// NFKC normalization, and case folding.
func Fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return folder.String(norm.NFKC.String(s))
}

// NormalizeEmail canonicalizes an email address for identity comparison.
func NormalizeEmail(email string) string {
	return Fold(email)
}

// NormalizeSessionID canonicalizes a session identifier. Purely numeric
// identifiers are stripped of leading zeros so that "0042" and "42" compare
// equal; anything else is trimmed and case folded.
func NormalizeSessionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if isDigits(id) {
		trimmed := strings.TrimLeft(id, "0")
		if trimmed == "" {
			return "0"
		}
		return trimmed
	}
	return folder.String(id)
}

// IdentityKey builds the dedup key for an attendance record from its email
// and session identifier.
func IdentityKey(email, sessionID string) string {
	return NormalizeEmail(email) + "\x00" + NormalizeSessionID(sessionID)
}

// FullName joins first and last name with a single space, collapsing interior
// whitespace, and applies title casing. Workbook variants that key on names
// rather than emails use this to build lookup values.
func FullName(first, last string) string {
	joined := strings.Join(strings.Fields(first+" "+last), " ")
	if joined == "" {
		return ""
	}
	return cases.Title(language.Und).String(joined)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
