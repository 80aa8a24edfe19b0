// Package signing produces the tamper-evident signature stamped onto an
// approval step when an approver decides it. The signature is a keyed
// BLAKE2b digest over the step's identity, the deciding actor, and the
// decision time, so a ledger row cannot be backdated or reattributed
// without detection.
package signing

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// Signer computes step signatures with a district-wide secret key.
type Signer struct {
	key []byte
}

// NewSigner validates the key length for keyed BLAKE2b (1..64 bytes).
func NewSigner(key []byte) (*Signer, error) {
	if len(key) == 0 || len(key) > 64 {
		return nil, fmt.Errorf("signing key must be 1..64 bytes, got %d", len(key))
	}
	return &Signer{key: key}, nil
}

// Sign returns the hex digest for one step decision.
func (s *Signer) Sign(submissionID uuid.UUID, step int, actorID uuid.UUID, signedAt time.Time) (string, error) {
	h, err := blake2b.New256(s.key)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(h, "%s|%d|%s|%d", submissionID, step, actorID, signedAt.UnixNano())
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify recomputes the digest and reports whether it matches.
func (s *Signer) Verify(submissionID uuid.UUID, step int, actorID uuid.UUID, signedAt time.Time, signature string) bool {
	expected, err := s.Sign(submissionID, step, actorID, signedAt)
	if err != nil {
		return false
	}
	return expected == signature
}
