// Package crypto provides the deterministic hashing, signing, and id
// primitives every other package in the control plane builds on: content
// hashing, HMAC signing, constant-time comparison, and canonical JSON.
package crypto

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// CanonicalJSON produces the RFC 8785 (JCS) canonical serialization of v:
// object keys sorted by ascending UTF-16 code unit, no insignificant
// whitespace, shortest round-trippable numbers. Every hashable body in the
// control plane (envelopes, artifacts, proposals, trace events) is hashed
// and signed over this representation, never over Go's raw json.Marshal
// output, so that byte-identical records always produce byte-identical
// hashes regardless of struct field order.
func CanonicalJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical json: marshal: %w", err)
	}

	canon, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonical json: transform: %w", err)
	}

	return canon, nil
}

// CanonicalEqual reports whether two values serialize to the same
// canonical JSON, independent of field order or map iteration order.
func CanonicalEqual(a, b interface{}) (bool, error) {
	ca, err := CanonicalJSON(a)
	if err != nil {
		return false, err
	}
	cb, err := CanonicalJSON(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ca, cb), nil
}
