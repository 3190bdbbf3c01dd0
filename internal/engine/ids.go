package engine

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator generates unique intent identifiers and synthetic transaction
// hashes for completed intents.
// Implemented by UUIDv7Generator (production) and FixedIDGenerator (tests).
type IDGenerator interface {
	IntentID() string
	TxHash() string
}

// UUIDv7Generator generates time-sortable UUIDv7 intent ids.
//
// UUIDv7 embeds a timestamp in the most significant bits, making ids
// sortable by creation time. This is helpful for debugging and for the
// creation-ordered listing the query surface exposes.
//
// Uses github.com/google/uuid package for RFC 4122 compliant UUIDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// IntentID creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) IntentID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// TxHash fabricates a synthetic 64-character hex transaction identifier.
// The value is random, not content-derived: the engine simulates submission
// and only needs a plausible correlation id.
func (g UUIDv7Generator) TxHash() string {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failure is unrecoverable at this level
		panic("read random bytes: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}

// FixedIDGenerator returns predetermined ids and hashes for testing.
//
// This enables deterministic test execution and golden transcript
// comparison. Tests provide a known sequence and verify exact output.
//
// Thread-safety: FixedIDGenerator is safe for concurrent use via internal mutex.
type FixedIDGenerator struct {
	mu     sync.Mutex
	ids    []string
	hashes []string
	idIdx  int
	hshIdx int
}

// NewFixedIDGenerator creates a generator that returns intent ids and tx
// hashes in the given order.
//
// Panics when a sequence is exhausted. This is a fail-fast approach to
// catch test misconfiguration (test created more intents than expected).
func NewFixedIDGenerator(ids []string, hashes []string) *FixedIDGenerator {
	return &FixedIDGenerator{ids: ids, hashes: hashes}
}

// IntentID returns the next predetermined intent id.
func (g *FixedIDGenerator) IntentID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idIdx >= len(g.ids) {
		panic("FixedIDGenerator: intent ids exhausted")
	}
	id := g.ids[g.idIdx]
	g.idIdx++
	return id
}

// TxHash returns the next predetermined transaction hash.
func (g *FixedIDGenerator) TxHash() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.hshIdx >= len(g.hashes) {
		panic("FixedIDGenerator: tx hashes exhausted")
	}
	h := g.hashes[g.hshIdx]
	g.hshIdx++
	return h
}
