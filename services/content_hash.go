package services

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// HashChunkContent returns a deterministic fingerprint of normalized chunk
// text. Case and surrounding-whitespace differences hash identically, so
// near-duplicate chunks are treated as duplicates. Not cryptographic; a rare
// collision only drops one extra chunk.
func HashChunkContent(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	sum := md5.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
