package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// Signer produces and verifies HMAC-SHA256 signatures over canonical JSON
// bodies. An empty signing key fails loudly at construction time:
// missing signing key material is a fatal crypto-configuration error,
// never a soft failure deferred to first use.
type Signer struct {
	key []byte
}

// NewSigner constructs a Signer from key material. Returns an error if key
// is empty; callers that cannot tolerate an error (process bootstrap)
// should treat that error as fatal.
func NewSigner(key []byte) (*Signer, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("crypto: signer requires non-empty key material")
	}
	cp := make([]byte, len(key))
	copy(cp, key)
	return &Signer{key: cp}, nil
}

// RawKey returns a defensive copy of the underlying key material, for
// callers (such as a JWT library) that need to sign with the same secret
// outside of this package's canonical-JSON pipeline.
func (s *Signer) RawKey() []byte {
	cp := make([]byte, len(s.key))
	copy(cp, s.key)
	return cp
}

// SignBytes returns the lowercase hex HMAC-SHA256 of data.
func (s *Signer) SignBytes(data []byte) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignCanonical canonicalizes v and signs the result.
func (s *Signer) SignCanonical(v interface{}) (string, error) {
	canon, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	return s.SignBytes(canon), nil
}

// VerifyBytes checks sig (lowercase hex) against data using a constant-time
// comparison to prevent a timing oracle on signature validation.
func (s *Signer) VerifyBytes(data []byte, sig string) bool {
	expected := s.SignBytes(data)
	return ConstantTimeEqual(expected, sig)
}

// VerifyCanonical canonicalizes v and checks sig against it.
func (s *Signer) VerifyCanonical(v interface{}, sig string) (bool, error) {
	canon, err := CanonicalJSON(v)
	if err != nil {
		return false, err
	}
	return s.VerifyBytes(canon, sig), nil
}

// ConstantTimeEqual compares two hex strings without leaking timing
// information through early mismatch. A length mismatch is
// an immediate (and necessarily non-constant-time, since the adversary
// already knows length differs) false — the constant-time guarantee only
// needs to hold over equal-length comparisons, which is exactly what
// subtle.ConstantTimeCompare provides.
func ConstantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
