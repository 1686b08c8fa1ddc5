// Package checksum fingerprints file contents so unchanged imports can be
// skipped.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Changed returns the digest of data and whether it differs from prev.
// An empty prev always counts as changed.
func Changed(prev string, data []byte) (string, bool) {
	sum := Sum(data)
	return sum, prev == "" || sum != prev
}
