// Package split validates revenue shares and drives the payments contract's
// release call. Share sets that do not add up to 100 never reach the chain.
package split

import (
	"contract-orchestrator/internal/chainerrors"
	"contract-orchestrator/internal/models"
	"contract-orchestrator/internal/units"
	"encoding/json"
	"math/big"
)

const wholePercent = 100

// Allocation is the wei a payee would receive from a given total
type Allocation struct {
	Payee      models.Address `json:"payee"`
	Percentage uint8          `json:"percentage"`
	Amount     *big.Int       `json:"amount"`
}

// MarshalJSON writes Amount as a decimal wei string
func (a Allocation) MarshalJSON() ([]byte, error) {
	type plain Allocation
	return json.Marshal(struct {
		plain
		Amount    json.Marshaler `json:"amount"`
		AmountEth string         `json:"amountEth"`
	}{plain(a), units.Wei(a.Amount), units.FormatEther(a.Amount)})
}

// Validate checks a share set: at least one share, distinct non-zero payees,
// each percentage at most 100 and a total of exactly 100.
func Validate(shares []models.RevenueShare) error {
	const op = "split.validate"
	if len(shares) == 0 {
		return chainerrors.InvalidSplit(op, "no shares given")
	}
	seen := make(map[string]struct{}, len(shares))
	sum := 0
	for i, s := range shares {
		if s.Payee.IsZero() {
			return chainerrors.InvalidSplit(op, "share %d has no payee", i)
		}
		if _, dup := seen[s.Payee.Key()]; dup {
			return chainerrors.InvalidSplit(op, "payee %s appears more than once", s.Payee)
		}
		seen[s.Payee.Key()] = struct{}{}
		if s.Percentage > wholePercent {
			return chainerrors.InvalidSplit(op, "share %d is %d%%, above 100%%", i, s.Percentage)
		}
		sum += int(s.Percentage)
	}
	if sum != wholePercent {
		return chainerrors.InvalidSplit(op, "percentages sum to %d, expected 100", sum)
	}
	return nil
}

// ValidatePercentages is Validate for releases whose payees are fixed in
// the contract and only the percentages are supplied.
func ValidatePercentages(percentages []uint8) error {
	const op = "split.validate"
	if len(percentages) == 0 {
		return chainerrors.InvalidSplit(op, "no percentages given")
	}
	sum := 0
	for i, p := range percentages {
		if p > wholePercent {
			return chainerrors.InvalidSplit(op, "percentage %d is %d, above 100", i, p)
		}
		sum += int(p)
	}
	if sum != wholePercent {
		return chainerrors.InvalidSplit(op, "percentages sum to %d, expected 100", sum)
	}
	return nil
}

// Allocate previews how total wei divides over shares. Each payee gets the
// floor of its share and the first payee takes the remainder, so the
// amounts always add up to total.
func Allocate(total *big.Int, shares []models.RevenueShare) ([]Allocation, error) {
	if err := Validate(shares); err != nil {
		return nil, err
	}
	if total == nil || total.Sign() < 0 {
		return nil, chainerrors.InvalidSplit("split.allocate", "total must be a non-negative amount")
	}

	out := make([]Allocation, len(shares))
	assigned := new(big.Int)
	hundred := big.NewInt(wholePercent)
	for i, s := range shares {
		amount := new(big.Int).Mul(total, big.NewInt(int64(s.Percentage)))
		amount.Quo(amount, hundred)
		assigned.Add(assigned, amount)
		out[i] = Allocation{Payee: s.Payee, Percentage: s.Percentage, Amount: amount}
	}
	out[0].Amount.Add(out[0].Amount, new(big.Int).Sub(total, assigned))
	return out, nil
}

// PercentagesArg converts percentages to the uint256[] the contracts expect
func PercentagesArg(percentages []uint8) []*big.Int {
	out := make([]*big.Int, len(percentages))
	for i, p := range percentages {
		out[i] = big.NewInt(int64(p))
	}
	return out
}
