package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// OwnerKey returns a storage-safe identifier for an owner ("guest:<id>" or a
// token subject). The raw owner never appears in object keys.
func OwnerKey(owner string) string {
	sum := sha256.Sum256([]byte(owner))
	return hex.EncodeToString(sum[:])
}

// Fingerprint is the short form of OwnerKey used in log lines.
func Fingerprint(owner string) string {
	return "hash:" + OwnerKey(owner)[:12]
}
