package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NormalizeText lowercases and collapses whitespace so that trivially
// different spellings of the same answer share one cache entry.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// ContentHash returns the stable cache key for a text: sha256 over the
// normalized form, hex encoded.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(NormalizeText(text)))
	return hex.EncodeToString(sum[:])
}

// EstimateTokens approximates token usage for cost accounting. The generation
// backend does not report usage, so chars/4 is the accepted rough estimate.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && len(text) > 0 {
		n = 1
	}
	return n
}
