package scrub

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Digest returns the hex SHA3-256 digest of text.
// Audit tables store it in place of the original, which is never retained.
func Digest(text string) string {
	sum := sha3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
