package common

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sha256Hex returns the hex encoded SHA-256 digest of the input.
func Sha256Hex(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
