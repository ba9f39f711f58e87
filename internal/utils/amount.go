package utils

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"airdrop-backend/internal/types"

	"github.com/shopspring/decimal"
)

// MaxTokenDecimals largest precision whose unit (10^d) still fits in a uint256
const MaxTokenDecimals = 77

var (
	amountPattern = regexp.MustCompile(`^([0-9]+\.?[0-9]*|\.[0-9]+)$`)
	maxUint256    = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

// ToScaledInteger converts a human decimal amount ("2.5") into the smallest-unit
// integer used on-chain (2.5 * 10^decimals). Trailing fractional zeros are ignored;
// any other fractional digit beyond decimals is rejected rather than rounded.
func ToScaledInteger(amount string, decimals int32) (*big.Int, error) {
	if decimals < 0 || decimals > MaxTokenDecimals {
		return nil, fmt.Errorf("%w: decimals %d out of range [0, %d]",
			types.ErrInvalidAmountFormat, decimals, MaxTokenDecimals)
	}
	if !amountPattern.MatchString(amount) {
		return nil, fmt.Errorf("%w: %q is not a plain decimal number", types.ErrInvalidAmountFormat, amount)
	}

	whole, frac, _ := strings.Cut(amount, ".")
	frac = strings.TrimRight(frac, "0")
	if int32(len(frac)) > decimals {
		return nil, fmt.Errorf("%w: %q has %d fractional digits, token allows %d",
			types.ErrInvalidAmountFormat, amount, len(frac), decimals)
	}
	if whole == "" {
		whole = "0"
	}
	if frac != "" {
		whole = whole + "." + frac
	}

	d, err := decimal.NewFromString(whole)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidAmountFormat, err)
	}

	scaled := d.Shift(decimals).BigInt()
	if scaled.Cmp(maxUint256) > 0 {
		return nil, fmt.Errorf("%w: %q overflows uint256 at %d decimals",
			types.ErrInvalidAmountFormat, amount, decimals)
	}
	return scaled, nil
}

// FromScaledInteger renders an on-chain integer back into a decimal string
func FromScaledInteger(value *big.Int, decimals int32) string {
	return decimal.NewFromBigInt(value, -decimals).String()
}
