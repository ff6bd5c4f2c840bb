package models

import "github.com/uptrace/bun"

// NonceTrackerID is the stable key of the single platform-wide tracker row.
const NonceTrackerID = "platform"

// NonceTrackerRecord is the persisted form of the anti-replay circular
// buffer. Slots holds the JSON-encoded slot array; the tracker logic lives
// in internal/nonce. Mutated only inside a settlement transaction.
type NonceTrackerRecord struct {
	bun.BaseModel `bun:"table:nonce_trackers"`

	ID       string `bun:"id,pk"`
	Cursor   uint64 `bun:"cursor"`
	Capacity int    `bun:"capacity"`
	Slots    []byte `bun:"slots"`
}
