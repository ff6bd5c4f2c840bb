package points

// Purchase-based accrual: min(50, floor(whole_units / 10)), where prices are
// micro-units (1.00 unit = 1_000_000). The cap bounds reward inflation on
// high-value tickets.
const (
	MicroUnitsPerUnit  = 1_000_000
	MaxPurchasePoints  = 50
	UnitsPerPoint      = 10
	CheckInPointsAward = 100
)

func PurchasePoints(price int64) int64 {
	if price < 0 {
		return 0
	}
	points := price / MicroUnitsPerUnit / UnitsPerPoint
	if points > MaxPurchasePoints {
		return MaxPurchasePoints
	}
	return points
}
