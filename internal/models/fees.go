package models

import "github.com/shopspring/decimal"

var PlatformFeeRate = decimal.RequireFromString("0.05")

// SplitAmount divides amount into the platform fee (5%, rounded to two
// decimals) and the seller's remainder. fee + earnings == amount.
func SplitAmount(amount decimal.Decimal) (fee, earnings decimal.Decimal) {
	fee = amount.Mul(PlatformFeeRate).Round(2)
	return fee, amount.Sub(fee)
}
