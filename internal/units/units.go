// Package units converts between wei and ether at the presentation boundary.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimals is the number of decimal places between wei and ether.
const Decimals = 18

// ParseEther converts a decimal ether string such as "1.5" into wei without
// going through a float. More than 18 fractional digits is an error.
func ParseEther(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("amount cannot be empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("amount %q must not be negative", s)
	}
	wei := d.Shift(Decimals)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("amount %q has more than %d decimals", s, Decimals)
	}
	return wei.BigInt(), nil
}

// Wei wraps a wei amount for JSON, where it marshals as a quoted integer.
func Wei(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, 0)
}

// Ether is wei scaled to ether, exact.
func Ether(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -Decimals)
}

// ToEther is the display approximation of wei. Never compare or add results.
func ToEther(wei *big.Int) float64 {
	return Ether(wei).InexactFloat64()
}

// FormatEther renders wei as an exact decimal ether string with trailing
// zeros removed.
func FormatEther(wei *big.Int) string {
	return Ether(wei).String()
}
