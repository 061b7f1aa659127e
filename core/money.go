package core

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ValidateSplit checks that both percentages are finite, non-negative, and
// round to exactly 100 together.
func ValidateSplit(ratio SplitRatio) error {
	m, p := ratio.MerchantPct, ratio.PlatformPct
	if math.IsNaN(m) || math.IsInf(m, 0) || math.IsNaN(p) || math.IsInf(p, 0) {
		return ValidationError("split", "split percentages must be finite numbers")
	}
	if m < 0 || p < 0 {
		return ValidationError("split", "split percentages must not be negative")
	}
	if math.Round(m+p) != 100 {
		return ValidationError("split", "merchantPct + platformPct must be 100")
	}
	return nil
}

// SplitShares returns merchant = round(amount*merchantPct/100) and
// platform = amount - merchant, so the two always add back to amount.
func SplitShares(amountMinor int64, ratio SplitRatio) (int64, int64, error) {
	if amountMinor <= 0 {
		return 0, 0, ValidationError("amountMinor", "amountMinor must be a positive integer")
	}
	if err := ValidateSplit(ratio); err != nil {
		return 0, 0, err
	}
	merchant := decimal.NewFromInt(amountMinor).
		Mul(decimal.NewFromFloat(ratio.MerchantPct)).
		Div(hundred).
		Round(0).
		IntPart()
	if merchant > amountMinor {
		return 0, 0, ValidationError("split", "merchant share exceeds the amount")
	}
	return merchant, amountMinor - merchant, nil
}

// SplitEven divides total into n shares. The first total mod n shares carry
// the extra minor unit.
func SplitEven(total int64, n int) ([]int64, error) {
	if n <= 0 {
		return nil, ValidationError("payers", "at least one payer is required")
	}
	if total <= 0 {
		return nil, ValidationError("totalAmountMinor", "totalAmountMinor must be a positive integer")
	}
	parts := int64(n)
	base := total / parts
	remainder := total % parts
	shares := make([]int64, n)
	for i := range shares {
		shares[i] = base
		if int64(i) < remainder {
			shares[i]++
		}
	}
	return shares, nil
}

// SumAmounts adds amounts of a single asset with arbitrary precision.
func SumAmounts(amounts ...Amount) (Amount, error) {
	if len(amounts) == 0 {
		return Amount{}, fmt.Errorf("%w: nothing to sum", ErrInvalidAmount)
	}
	total := new(big.Int)
	first := amounts[0]
	for _, amount := range amounts {
		if amount.AssetCode != first.AssetCode || amount.AssetScale != first.AssetScale {
			return Amount{}, fmt.Errorf(
				"%w: cannot sum %s/%d with %s/%d",
				ErrInvalidAmount,
				first.AssetCode, first.AssetScale,
				amount.AssetCode, amount.AssetScale,
			)
		}
		value, err := amount.Int()
		if err != nil {
			return Amount{}, err
		}
		total.Add(total, value)
	}
	return NewAmount(total, first.AssetCode, first.AssetScale), nil
}

// MajorToMinor returns major * 10^scale.
func MajorToMinor(major int64, scale int) *big.Int {
	factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale)), nil)
	return factor.Mul(factor, big.NewInt(major))
}

// ScaledValue converts an amount into its major-unit decimal value.
func ScaledValue(amount Amount) (decimal.Decimal, error) {
	value, err := amount.Int()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(value, -int32(amount.AssetScale)), nil
}
