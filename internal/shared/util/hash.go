package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashKey returns a filesystem- and key-safe identifier for an arbitrary profile or job name.
func HashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
