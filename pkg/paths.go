package pkg

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// CleanSegment turns s into a single safe path component, or fallback when nothing is left
func CleanSegment(s, fallback string) string {
	clean := strings.Trim(unsafePathChars.ReplaceAllString(strings.TrimSpace(s), "_"), "._")
	if clean == "" {
		return fallback
	}
	return clean
}

// IsolatedSegment is CleanSegment for identifiers that own a directory.
// Whenever cleaning changes s, a digest of the raw value is appended so two
// distinct identifiers never resolve to the same component.
func IsolatedSegment(s, fallback string) string {
	if s == "" {
		return fallback
	}
	clean := CleanSegment(s, fallback)
	if clean == s {
		return clean
	}
	sum := sha256.Sum256([]byte(s))
	return clean + "-" + hex.EncodeToString(sum[:4])
}
