package utils

import (
    "crypto/sha256"
    "encoding/hex"
)

// ContentHash returns the SHA-256 hex digest stored next to message,
// pinned-message and emergency text.  It is an integrity check only.
func ContentHash(content string) string {
    sum := sha256.Sum256([]byte(content))
    return hex.EncodeToString(sum[:])
}
