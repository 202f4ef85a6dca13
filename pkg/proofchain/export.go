package proofchain

import (
	"encoding/json"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// exportClaims wraps an exported chain snapshot in a signed JWT so that an
// exported proof chain carries its own tamper-evidence independent of the
// per-envelope HMAC signatures.
type exportClaims struct {
	jwt.RegisteredClaims
	Envelopes []*Envelope `json:"envelopes"`
}

// Export serializes the full chain as a JWT signed with the chain's HMAC
// key, claims carrying the envelope list verbatim.
func (c *Chain) Export() (string, error) {
	c.mu.Lock()
	envelopes := make([]*Envelope, len(c.envelopes))
	copy(envelopes, c.envelopes)
	c.mu.Unlock()

	now := c.clock().UTC()
	claims := exportClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   "agentsentry/governance/proofchain",
		},
		Envelopes: envelopes,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.signer.RawKey())
	if err != nil {
		return "", fmt.Errorf("proofchain: sign export: %w", err)
	}
	return signed, nil
}

// Import verifies and decodes a chain export produced by Export, then
// replaces the calling chain's contents with the decoded envelopes after
// confirming the linkage and signatures still verify.
func (c *Chain) Import(token string) error {
	claims := &exportClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("proofchain: unexpected signing method %v", t.Header["alg"])
		}
		return c.signer.RawKey(), nil
	})
	if err != nil {
		return fmt.Errorf("proofchain: parse export: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	byID := make(map[string]int, len(claims.Envelopes))
	for i, env := range claims.Envelopes {
		byID[env.EnvelopeID] = i
	}
	c.envelopes = claims.Envelopes
	c.byID = byID

	ok, err := c.verifyChainLocked()
	if err != nil {
		return fmt.Errorf("proofchain: verify imported chain: %w", err)
	}
	if !ok {
		return fmt.Errorf("proofchain: imported chain fails signature or linkage verification")
	}
	return nil
}

func (c *Chain) verifyChainLocked() (bool, error) {
	prevHash := GenesisHash
	for i, env := range c.envelopes {
		ok, err := c.Verify(env)
		if err != nil {
			return false, fmt.Errorf("verify envelope %d: %w", i, err)
		}
		if !ok || env.PreviousHash != prevHash {
			return false, nil
		}
		prevHash = env.ContentHash
	}
	return true, nil
}

// MarshalEnvelopes is a plain (unsigned) canonical JSON rendering, useful
// for diffing or handing envelopes to the replay verifier.
func MarshalEnvelopes(envelopes []*Envelope) ([]byte, error) {
	return json.Marshal(envelopes)
}
