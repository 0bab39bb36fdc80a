// Package cachekey derives answer-cache keys shared by the memory and
// sqlite backends, so switching backends never re-keys existing entries.
package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Derive hashes (documentID, normalised question) into a cache key.
// Normalisation is trim plus lowercase, so whitespace and case variants of
// the same question hit the same entry.
func Derive(documentID, question string) string {
	normalised := strings.ToLower(strings.TrimSpace(question))
	h := sha256.Sum256([]byte(documentID + "\x00" + normalised))
	return hex.EncodeToString(h[:])
}
