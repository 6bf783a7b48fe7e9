package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Coin amounts are stored as BIGINT micros (10^-6 coins) to avoid floating
// point errors while still accepting fractional values at the edges.
const microsPerCoin = 1_000_000

// SignupGrantMicros is the balance issued to every freshly created wallet.
const SignupGrantMicros int64 = 1_000 * microsPerCoin

// ToDecimal converts micros to a coin amount.
func ToDecimal(micros int64) decimal.Decimal {
	return decimal.NewFromInt(micros).Div(decimal.NewFromInt(microsPerCoin))
}

// FromDecimal converts a coin amount to micros, rounding toward zero.
func FromDecimal(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(microsPerCoin)).IntPart()
}

// FromCoins converts a whole-coin amount to micros.
func FromCoins(coins int64) int64 {
	return coins * microsPerCoin
}

// FormatAmount renders micros as a human-readable coin amount.
func FormatAmount(micros int64) string {
	return fmt.Sprintf("%s MASS", ToDecimal(micros).StringFixed(2))
}
