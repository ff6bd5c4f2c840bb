package nonce

import (
	"encoding/json"
	"fmt"

	"ms-settlement/internal/models"
)

// ExpirySeconds is how long a consumed (nonce, buyer) pair stays unusable.
// It must exceed the maximum authorization lifetime (typically <= 60s) so a
// slot can never be evicted while its authorization is still valid.
const ExpirySeconds = 600

// DefaultCapacity is the default slot count of the platform tracker.
const DefaultCapacity = 1024

// Slot records one consumed authorization. A zero UsedAt marks an empty slot.
type Slot struct {
	Nonce  uint64 `json:"nonce"`
	Buyer  string `json:"buyer"`
	UsedAt int64  `json:"used_at"`
}

// Tracker is a fixed-capacity circular anti-replay buffer. The write cursor
// advances monotonically and overwrites the oldest slot, so replay is only
// prevented within ExpirySeconds and for the most recent Capacity entries.
// That is sufficient because authorizations expire long before eviction can
// occur under a correctly sized buffer.
type Tracker struct {
	Cursor   uint64
	Capacity int
	Slots    []Slot
}

func New(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Tracker{
		Capacity: capacity,
		Slots:    make([]Slot, capacity),
	}
}

// IsUsed reports whether (nonce, buyer) was consumed within ExpirySeconds of
// now. Expired slots are implicitly recyclable and do not count.
func (t *Tracker) IsUsed(nonce uint64, buyer string, now int64) bool {
	for _, slot := range t.Slots {
		if slot.UsedAt == 0 {
			continue
		}
		if slot.Nonce == nonce && slot.Buyer == buyer && slot.UsedAt+ExpirySeconds > now {
			return true
		}
	}
	return false
}

// MarkUsed writes at the cursor position, unconditionally overwriting the
// oldest entry. It does not look for duplicates: it is only called after
// IsUsed returned false within the same settlement transaction.
func (t *Tracker) MarkUsed(nonce uint64, buyer string, now int64) {
	t.Slots[t.Cursor%uint64(t.Capacity)] = Slot{
		Nonce:  nonce,
		Buyer:  buyer,
		UsedAt: now,
	}
	t.Cursor++
}

// FromRecord decodes the persisted tracker row.
func FromRecord(rec *models.NonceTrackerRecord) (*Tracker, error) {
	t := New(rec.Capacity)
	t.Cursor = rec.Cursor
	if len(rec.Slots) > 0 {
		if err := json.Unmarshal(rec.Slots, &t.Slots); err != nil {
			return nil, fmt.Errorf("decode nonce slots: %w", err)
		}
	}
	if len(t.Slots) != t.Capacity {
		// Capacity changes between deployments keep the recorded slots; the
		// buffer is re-sized and old entries retained up to the new size.
		slots := make([]Slot, t.Capacity)
		copy(slots, t.Slots)
		t.Slots = slots
	}
	return t, nil
}

// ToRecord encodes the tracker for persistence under its stable key.
func (t *Tracker) ToRecord() (*models.NonceTrackerRecord, error) {
	data, err := json.Marshal(t.Slots)
	if err != nil {
		return nil, fmt.Errorf("encode nonce slots: %w", err)
	}
	return &models.NonceTrackerRecord{
		ID:       models.NonceTrackerID,
		Cursor:   t.Cursor,
		Capacity: t.Capacity,
		Slots:    data,
	}, nil
}
