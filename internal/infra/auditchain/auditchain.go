// Package auditchain computes the hashes that link audit events into a
// per-scope chain. Both the postgres and in-memory repositories build
// links from the same canonical form so a chain written by one verifies
// under the other.
package auditchain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"privaseal/internal/domain"
	"privaseal/internal/infra/canonicaljson"
)

// ZeroHash seeds the chain: the prev_event_hash of seq 1.
const ZeroHash = "0000000000000000000000000000000000000000000000000000000000000000"

// HashPayload canonicalizes the payload and returns both the canonical
// bytes and their sha256 hex digest.
func HashPayload(payload any) ([]byte, string, error) {
	canonical, err := canonicaljson.CanonicalizeAny(payload)
	if err != nil {
		return nil, "", err
	}
	sum := sha256.Sum256(canonical)
	return canonical, hex.EncodeToString(sum[:]), nil
}

// EventHash derives the chain link for an event whose seq, payload hash
// and predecessor hash are already fixed.
func EventHash(event domain.AuditEvent) (string, error) {
	if event.PayloadHash == "" {
		return "", errors.New("payload_hash is required")
	}
	if event.PrevEventHash == "" {
		return "", errors.New("prev_event_hash is required")
	}
	payload := map[string]any{
		"v":               domain.AuditChainVersion,
		"scope_id":        event.ScopeID,
		"seq":             event.Seq,
		"event_type":      string(event.EventType),
		"payload_hash":    event.PayloadHash,
		"prev_event_hash": event.PrevEventHash,
		"created_at":      event.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	canonical, err := canonicaljson.CanonicalizeAny(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Verify walks a scope's events in order and reports the first broken
// link, if any. Events must be sorted by seq ascending.
func Verify(events []domain.AuditEvent) error {
	prev := ZeroHash
	for i, event := range events {
		if event.Seq != int64(i+1) {
			return errors.New("sequence gap in audit chain")
		}
		if event.PrevEventHash != prev {
			return errors.New("previous hash mismatch in audit chain")
		}
		expected, err := EventHash(event)
		if err != nil {
			return err
		}
		if event.EventHash != expected {
			return errors.New("event hash mismatch in audit chain")
		}
		prev = event.EventHash
	}
	return nil
}
