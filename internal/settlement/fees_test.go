package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-settlement/internal/models"
)

func TestSplitPrimary(t *testing.T) {
	// 1.00 unit ticket, 0.10 unit platform fee -> 0.90 to the organizer.
	split, err := SplitPrimary(1_000_000, 100_000)
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), split.PlatformFee)
	assert.Equal(t, int64(900_000), split.Net)
	assert.Equal(t, int64(1_000_000), split.PlatformFee+split.Net)
}

func TestSplitPrimaryPriceEqualsFee(t *testing.T) {
	split, err := SplitPrimary(100_000, 100_000)
	require.NoError(t, err)
	assert.Equal(t, int64(0), split.Net)
}

func TestSplitPrimaryPriceBelowFee(t *testing.T) {
	_, err := SplitPrimary(99_999, 100_000)
	assert.ErrorIs(t, err, models.ErrArithmeticOverflow)
}

func TestSplitResaleConservation(t *testing.T) {
	prices := []int64{0, 1, 9_999, 10_000, 1_000_000, 123_456_789, 600_000_000}
	rates := []uint16{0, 1, 250, 500, 9_999, 10_000}

	for _, price := range prices {
		for _, rate := range rates {
			split, err := SplitResale(price, 0, rate)
			require.NoError(t, err)
			assert.Equal(t, price, split.PlatformFee+split.OrganizerFee+split.Net,
				"price %d rate %d must split exactly", price, rate)
		}
	}
}

func TestSplitResale(t *testing.T) {
	// 500 units at 5% resale fee with a 0.10 platform fee.
	split, err := SplitResale(500_000_000, 100_000, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), split.PlatformFee)
	assert.Equal(t, int64(25_000_000), split.OrganizerFee)
	assert.Equal(t, int64(474_900_000), split.Net)
}

func TestSplitResaleFloorsOrganizerFee(t *testing.T) {
	// 333 micro at 1 bps -> floor(333/10000) = 0
	split, err := SplitResale(333, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), split.OrganizerFee)
	assert.Equal(t, int64(333), split.Net)
}

func TestSplitResaleFeesExceedPrice(t *testing.T) {
	// Full 100% resale rate plus a flat fee cannot be covered.
	_, err := SplitResale(1_000_000, 1, 10_000)
	assert.ErrorIs(t, err, models.ErrArithmeticOverflow)
}

func TestResaleFeeWideIntermediate(t *testing.T) {
	// price * rate overflows 64 bits; the 128-bit path must still floor
	// correctly.
	price := int64(9_000_000_000_000_000_000) // ~9e18 micro-units
	fee := resaleFee(price, 10_000)
	assert.Equal(t, price, fee)

	fee = resaleFee(price, 5_000)
	assert.Equal(t, price/2, fee)
}
