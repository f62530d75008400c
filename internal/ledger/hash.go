package ledger

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashSentinel is the previous-hash value of the first record ever appended.
const HashSentinel = "0"

// Digest returns the lowercase hex SHA-256 of a canonical record string.
func Digest(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// HashRecord recomputes a record's hash from its own stored fields.
func HashRecord(r Record) string {
	return Digest(Canonical(r))
}
