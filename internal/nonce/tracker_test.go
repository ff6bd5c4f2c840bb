package nonce_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-settlement/internal/nonce"
)

func TestMarkAndCheckNonce(t *testing.T) {
	tracker := nonce.New(8)
	now := int64(1_700_000_000)

	assert.False(t, tracker.IsUsed(1, "buyerA", now))

	tracker.MarkUsed(1, "buyerA", now)
	assert.True(t, tracker.IsUsed(1, "buyerA", now))

	// Same nonce, different buyer is a distinct pair.
	assert.False(t, tracker.IsUsed(1, "buyerB", now))
}

func TestNonceExpiry(t *testing.T) {
	tracker := nonce.New(8)
	now := int64(1_700_000_000)

	tracker.MarkUsed(7, "buyerA", now)

	assert.True(t, tracker.IsUsed(7, "buyerA", now+nonce.ExpirySeconds-1))
	// At exactly used_at + EXPIRY the slot no longer counts.
	assert.False(t, tracker.IsUsed(7, "buyerA", now+nonce.ExpirySeconds))
}

func TestCursorWrapsAndEvicts(t *testing.T) {
	tracker := nonce.New(4)
	now := int64(1_700_000_000)

	for i := uint64(0); i < 4; i++ {
		tracker.MarkUsed(i, "buyerA", now)
	}
	assert.True(t, tracker.IsUsed(0, "buyerA", now))

	// The fifth write overwrites the oldest slot; nonce 0 is evicted and
	// becomes reusable even though it has not expired. This lossiness is by
	// design: authorizations expire long before a sized buffer wraps.
	tracker.MarkUsed(4, "buyerA", now)
	assert.False(t, tracker.IsUsed(0, "buyerA", now))
	assert.True(t, tracker.IsUsed(1, "buyerA", now))
	assert.True(t, tracker.IsUsed(4, "buyerA", now))
}

// Under the sizing rule capacity >= peak_rate * EXPIRY_SECONDS, no unexpired
// nonce is ever forgotten. Simulate a worst-case steady request rate and
// check the property across the whole run.
func TestNoUnexpiredEvictionWhenSized(t *testing.T) {
	const ratePerSecond = 2
	capacity := ratePerSecond * nonce.ExpirySeconds
	tracker := nonce.New(capacity)

	start := int64(1_700_000_000)
	type used struct {
		n      uint64
		buyer  string
		usedAt int64
	}
	var history []used

	n := uint64(0)
	for sec := int64(0); sec < 2*nonce.ExpirySeconds; sec++ {
		now := start + sec
		for i := 0; i < ratePerSecond; i++ {
			buyer := fmt.Sprintf("buyer%d", n%17)
			require.False(t, tracker.IsUsed(n, buyer, now), "fresh nonce %d reported used", n)
			tracker.MarkUsed(n, buyer, now)
			history = append(history, used{n, buyer, now})
			n++
		}
		// Every unexpired consumption must still be visible.
		for _, u := range history {
			if u.usedAt+nonce.ExpirySeconds > now {
				require.True(t, tracker.IsUsed(u.n, u.buyer, now),
					"unexpired nonce %d evicted at t+%d", u.n, sec)
			}
		}
	}
}

func TestRecordRoundTrip(t *testing.T) {
	tracker := nonce.New(4)
	now := int64(1_700_000_000)
	tracker.MarkUsed(11, "buyerA", now)
	tracker.MarkUsed(12, "buyerB", now)

	rec, err := tracker.ToRecord()
	require.NoError(t, err)

	restored, err := nonce.FromRecord(rec)
	require.NoError(t, err)

	assert.Equal(t, tracker.Cursor, restored.Cursor)
	assert.True(t, restored.IsUsed(11, "buyerA", now))
	assert.True(t, restored.IsUsed(12, "buyerB", now))
	assert.False(t, restored.IsUsed(13, "buyerA", now))
}
