package model

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatUnits renders an integer token amount with the given decimals,
// truncated to places fractional digits. It is for display only.
func FormatUnits(amount *big.Int, decimals uint8, places int32) string {
	if amount == nil {
		amount = new(big.Int)
	}
	d := decimal.NewFromBigInt(amount, -int32(decimals))
	if places < 0 {
		return d.String()
	}
	return d.Truncate(places).StringFixed(places)
}
