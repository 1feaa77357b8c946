// Package hashing provides the content-addressing primitive used for
// hash pins throughout refold. Digests are SHA3-256, rendered as
// uppercase hex so they can be pasted into a manifest verbatim.
package hashing

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Compute returns the SHA3-256 digest of content as uppercase hex.
func Compute(content []byte) string {
	sum := sha3.Sum256(content)
	return fmt.Sprintf("%X", sum[:])
}

// Matches reports whether content hashes to expected. The comparison is
// case-insensitive so manually lowercased pins still verify.
func Matches(content []byte, expected string) bool {
	return strings.EqualFold(Compute(content), expected)
}
