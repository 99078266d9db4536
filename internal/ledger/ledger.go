// Package ledger records computed instance ids with their canonical text so a
// duplicate id can be traced back to the configurations that produced it.
package ledger

import (
	"context"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Entry is one recorded instance id.
type Entry struct {
	ID          string    `json:"id"`
	Canonical   string    `json:"canonical"`
	Fingerprint string    `json:"fingerprint"`
	SeenAt      time.Time `json:"seen_at"`
}

// Store persists ledger entries.
type Store interface {
	Record(ctx context.Context, entry Entry, ttl time.Duration) error
	Lookup(ctx context.Context, id string) (*Entry, error)
	Forget(ctx context.Context, id string) error
}

// NewEntry builds an entry for id computed from canonical text.
func NewEntry(id, canonical string, seenAt time.Time) Entry {
	return Entry{
		ID:          id,
		Canonical:   canonical,
		Fingerprint: Fingerprint(canonical),
		SeenAt:      seenAt.UTC(),
	}
}

// Fingerprint is a 64-bit digest of canonical text, wide enough to tell two
// configurations apart when their 32-bit instance ids collide.
func Fingerprint(canonical string) string {
	return strconv.FormatUint(xxhash.Sum64String(canonical), 16)
}

// Match classifies a newly computed canonical text against a recorded entry.
type Match int

const (
	// MatchUnknown means no entry was recorded for the id.
	MatchUnknown Match = iota
	// MatchSameConfig means both configurations serialize identically.
	MatchSameConfig
	// MatchCollision means different configurations share a 32-bit id.
	MatchCollision
)

func (m Match) String() string {
	switch m {
	case MatchSameConfig:
		return "same_config"
	case MatchCollision:
		return "collision"
	default:
		return "unknown"
	}
}

// Compare classifies canonical against a recorded entry, which may be nil.
func Compare(recorded *Entry, canonical string) Match {
	if recorded == nil {
		return MatchUnknown
	}
	if recorded.Fingerprint == Fingerprint(canonical) && recorded.Canonical == canonical {
		return MatchSameConfig
	}
	return MatchCollision
}
