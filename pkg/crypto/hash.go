package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex returns the lowercase hex SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashCanonical canonicalizes v and returns its SHA-256 hex digest. This is
// the `contentHash = SHA-256(canonical_serialize(content))` operation used
// throughout the proof chain and artifact ledger.
func HashCanonical(v interface{}) (string, error) {
	canon, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	return SHA256Hex(canon), nil
}

// HashBytes hashes a raw byte payload (used when content is already a
// string/[]byte rather than a structured value).
func HashBytes(data []byte) string {
	return SHA256Hex(data)
}
