// Package fingerprint computes content digests used for change detection
// and history deduplication.
package fingerprint

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// PathSeparator joins file-list entries before hashing.
const PathSeparator = "|"

// Bytes returns the hex BLAKE2b-256 digest of b.
func Bytes(b []byte) string {
	sum := blake2b.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// String returns the digest of s.
func String(s string) string { return Bytes([]byte(s)) }

// Paths returns the digest of paths joined by PathSeparator in order.
func Paths(paths []string) string { return String(strings.Join(paths, PathSeparator)) }
