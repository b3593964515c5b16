package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"
)

// StringPtr returns a pointer to a string, or nil if empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// IntPtr returns a pointer to an int, or nil if zero.
func IntPtr(i int) *int {
	if i == 0 {
		return nil
	}
	return &i
}

// ParseSourceRefs splits a pipe-separated list of source references, dropping blanks.
func ParseSourceRefs(refs string) []string {
	out := []string{}
	for _, part := range strings.Split(refs, "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// StemHash fingerprints a question stem so re-imports can detect duplicates.
// Case and runs of whitespace do not affect the hash.
func StemHash(stem string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(stem), " "))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Round2 rounds to two decimal places.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// MaxInt returns the larger of a and b.
func MaxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// LabelIndex converts a choice label ("A", "B", ...) to its 0-based position, or -1.
func LabelIndex(label string) int {
	label = strings.ToUpper(strings.TrimSpace(label))
	if len(label) != 1 || label[0] < 'A' || label[0] > 'Z' {
		return -1
	}
	return int(label[0] - 'A')
}

// IndexLabel converts a 0-based position to its choice label.
func IndexLabel(i int) string {
	return string(rune('A' + i))
}
