package shared

import "github.com/shopspring/decimal"

// CentTolerance is the largest difference two monetary sums may show while
// still being treated as equal. Amounts are decimals so internally produced
// sums match exactly; the tolerance only absorbs sub-cent dust on opening
// balances imported from float-based systems.
var CentTolerance = decimal.New(1, -2)

// RoundCents normalises an amount to 2 decimal places.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// WithinTolerance reports whether a and b differ by less than a cent.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(CentTolerance)
}
