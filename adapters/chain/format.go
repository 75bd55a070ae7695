package chain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatUnits renders a base-unit amount as a decimal string, dropping
// trailing zeros: 1500000000000000000 with 18 decimals is "1.5".
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}
