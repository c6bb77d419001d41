// Package identity derives stable content fingerprints for deduplication.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the hex-encoded SHA-256 digest of title and link.
// The same (title, link) pair always yields the same fingerprint, so an
// article reached from different sources or depths dedupes to one row.
func Fingerprint(title, link string) string {
	h := sha256.New()
	h.Write([]byte(title))
	h.Write([]byte{0})
	h.Write([]byte(link))
	return hex.EncodeToString(h.Sum(nil))
}
