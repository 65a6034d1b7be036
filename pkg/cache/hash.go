package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ArchiveKey returns the cache key for the archive of repoURL at treeish.
func ArchiveKey(repoURL, treeish string) string {
	return "archive:" + Hash([]byte(repoURL+"@"+treeish))
}
