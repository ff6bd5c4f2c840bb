package settlement

import (
	"math/bits"

	"ms-settlement/internal/models"
)

// FeeBreakdown is the exact split of a gross price. The parts always sum to
// the price: no dust is created or lost.
type FeeBreakdown struct {
	PlatformFee  int64
	OrganizerFee int64 // basis-point resale fee; zero on primary sales
	Net          int64 // remainder to the organizer (primary) or seller (resale)
}

// resaleFee computes floor(price * rateBps / 10000) through a 128-bit
// intermediate so the multiplication cannot wrap. rateBps is validated
// <= 10000 at event creation, which also bounds the quotient by price.
func resaleFee(price int64, rateBps uint16) int64 {
	hi, lo := bits.Mul64(uint64(price), uint64(rateBps))
	quo, _ := bits.Div64(hi, lo, 10_000)
	return int64(quo)
}

// checkedSub fails closed with ErrArithmeticOverflow when fees exceed the
// price; it never wraps.
func checkedSub(a, b int64) (int64, error) {
	if b > a {
		return 0, models.ErrArithmeticOverflow
	}
	return a - b, nil
}

// SplitPrimary splits a primary-sale price into the flat platform fee and
// the organizer's net. A price exactly equal to the fee yields a legal zero
// net; a price below the fee fails.
func SplitPrimary(price, platformFee int64) (FeeBreakdown, error) {
	net, err := checkedSub(price, platformFee)
	if err != nil {
		return FeeBreakdown{}, err
	}
	return FeeBreakdown{PlatformFee: platformFee, Net: net}, nil
}

// SplitResale splits a resale price into the flat platform fee, the
// organizer's basis-point resale fee, and the seller's net.
func SplitResale(price, platformFee int64, rateBps uint16) (FeeBreakdown, error) {
	organizerFee := resaleFee(price, rateBps)
	net, err := checkedSub(price, platformFee)
	if err != nil {
		return FeeBreakdown{}, err
	}
	net, err = checkedSub(net, organizerFee)
	if err != nil {
		return FeeBreakdown{}, err
	}
	return FeeBreakdown{PlatformFee: platformFee, OrganizerFee: organizerFee, Net: net}, nil
}
