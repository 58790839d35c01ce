package action

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainPayload is the domain prefix for payload digests. The version
// suffix enables future algorithm migration without colliding with old
// digests already stored in the ledger.
const DomainPayload = "walletd/payload/v1"

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest computes the content-addressed digest of a payload.
//
// The engine stores this on the execution row and compares it on replay:
// same idempotency key + same digest is a replay, same key + different
// digest is a duplicate_request conflict. The digest is computed over
// canonical JSON, so it is stable across process restarts and across
// callers that serialize the same payload differently.
func Digest(p Payload) (string, error) {
	canonical, err := marshalCanonical(p.fields())
	if err != nil {
		return "", fmt.Errorf("digest %s payload: %w", p.ActionType(), err)
	}
	return hashWithDomain(DomainPayload, canonical), nil
}
