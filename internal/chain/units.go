package chain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// WLDDecimals WLD 代币精度
const WLDDecimals = 18

// ToTokenUnits 按精度把金额转为链上最小单位，例如 1.5 WLD -> 1500000000000000000
func ToTokenUnits(amount float64, decimals int32) *big.Int {
	if amount <= 0 {
		return big.NewInt(0)
	}
	return decimal.NewFromFloat(amount).Shift(decimals).Truncate(0).BigInt()
}

// FromTokenUnits 最小单位转回金额
func FromTokenUnits(v *big.Int, decimals int32) float64 {
	if v == nil {
		return 0
	}
	return decimal.NewFromBigInt(v, -decimals).InexactFloat64()
}
