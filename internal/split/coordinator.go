package split

import (
	"context"
	"contract-orchestrator/internal/chainerrors"
	"contract-orchestrator/internal/interfaces"
	"contract-orchestrator/internal/models"
	"contract-orchestrator/internal/validation"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// Coordinator releases the payments contract's balance to a set of payees
type Coordinator struct {
	gateway interfaces.ContractGateway
	logger  *zerolog.Logger
}

func NewCoordinator(gateway interfaces.ContractGateway, logger *zerolog.Logger) *Coordinator {
	return &Coordinator{gateway: gateway, logger: logger}
}

// Release validates shares and submits release(payees, percentages). An
// invalid set returns ErrInvalidSplit without touching the gateway.
func (c *Coordinator) Release(ctx context.Context, shares []models.RevenueShare, opts models.CallOptions) (common.Hash, error) {
	const op = "payments.release"
	if err := Validate(shares); err != nil {
		return common.Hash{}, chainerrors.WithOp(op, err)
	}

	payees := make([]common.Address, len(shares))
	percentages := make([]uint8, len(shares))
	for i, s := range shares {
		payees[i] = s.Payee.Common()
		percentages[i] = s.Percentage
	}

	req := opts.Apply(models.NewRequest(models.Payments, "release", payees, PercentagesArg(percentages)))
	receipt, err := c.gateway.Submit(ctx, req)
	if err != nil {
		return common.Hash{}, chainerrors.WithOp(op, err)
	}
	c.logger.Info().
		Int("payees", len(shares)).
		Str("txHash", receipt.TxHash.Hex()).
		Msg("Payments released")
	return receipt.TxHash, nil
}

// Balance is the payments contract's balance in wei
func (c *Coordinator) Balance(ctx context.Context) (*big.Int, error) {
	var balance *big.Int
	if err := c.gateway.Read(ctx, models.NewRequest(models.Payments, "getBalance"), &balance); err != nil {
		return nil, chainerrors.WithOp("payments.balance", err)
	}
	return balance, nil
}

// AccountBalance is the native balance of any account
func (c *Coordinator) AccountBalance(ctx context.Context, account models.Address) (*big.Int, error) {
	balance, err := c.gateway.Balance(ctx, account.Common())
	if err != nil {
		return nil, chainerrors.WithOp("payments.accountBalance", err)
	}
	return balance, nil
}

// Deposit funds the payments contract with amount wei
func (c *Coordinator) Deposit(ctx context.Context, amount *big.Int, opts models.CallOptions) (common.Hash, error) {
	const op = "payments.deposit"
	if err := validation.ValidateAmount(amount); err != nil {
		return common.Hash{}, fmt.Errorf("%s: %w", op, err)
	}
	receipt, err := c.gateway.Submit(ctx, opts.Apply(models.NewRequest(models.Payments, "deposit").WithValue(amount)))
	if err != nil {
		return common.Hash{}, chainerrors.WithOp(op, err)
	}
	return receipt.TxHash, nil
}
