// Package wallet drives the multi-signature payment wallet. The contract
// holds the authoritative queue; the tracker never caches it, every read
// goes back to the chain.
package wallet

import (
	"context"
	"contract-orchestrator/internal/chainerrors"
	"contract-orchestrator/internal/events"
	"contract-orchestrator/internal/interfaces"
	"contract-orchestrator/internal/models"
	"contract-orchestrator/internal/validation"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"
)

// TransactionSubmitted(uint256 indexed txId, address indexed to, uint256 amount)
var submittedSignature = crypto.Keccak256Hash([]byte("TransactionSubmitted(uint256,address,uint256)"))

// onchainTx matches the tuple returned by getTransactions
type onchainTx struct {
	To            common.Address
	Amount        *big.Int
	ApprovalCount *big.Int
	Executed      bool
}

// onchainApproval matches the tuple returned by getTransactionApprovers
type onchainApproval struct {
	Approver  common.Address
	Timestamp *big.Int
}

type Tracker struct {
	gateway interfaces.ContractGateway
	logger  *zerolog.Logger
}

func NewTracker(gateway interfaces.ContractGateway, logger *zerolog.Logger) *Tracker {
	return &Tracker{gateway: gateway, logger: logger}
}

// Submit queues a transfer of amount wei to `to` and returns its id. The id
// comes from the TransactionSubmitted event; without one it is recovered
// from the queue tail, and an error reports the id as unknown when the tail
// belongs to another submission.
func (t *Tracker) Submit(ctx context.Context, to models.Address, amount *big.Int, opts models.CallOptions) (uint64, *models.Receipt, error) {
	const op = "wallet.submit"
	if err := validation.ValidateAmount(amount); err != nil {
		return 0, nil, fmt.Errorf("%s: %w", op, err)
	}

	req := opts.Apply(models.NewRequest(models.Wallet, "submitTransaction", to.Common(), new(big.Int).Set(amount)))
	receipt, err := t.gateway.Submit(ctx, req)
	if err != nil {
		return 0, nil, chainerrors.WithOp(op, err)
	}

	if id, ok := events.DecodeTopic(receipt, submittedSignature, 1); ok && id.IsUint64() {
		t.logger.Info().Uint64("txId", id.Uint64()).Str("to", to.String()).Str("txHash", receipt.TxHash.Hex()).Msg("Wallet transaction submitted")
		return id.Uint64(), receipt, nil
	}

	// no event in the receipt, fall back to the tail of the queue
	id, err := t.queuedID(ctx, to, amount)
	if err != nil {
		return 0, receipt, chainerrors.WithOp(op, err)
	}
	t.logger.Warn().Uint64("txId", id).Str("txHash", receipt.TxHash.Hex()).Msg("TransactionSubmitted event missing, id taken from queue tail")
	return id, receipt, nil
}

// queuedID returns the id of the last queued transaction when it is a
// pending transfer of amount to `to`. Another signer submitting the same
// transfer in the same block is indistinguishable from this one.
func (t *Tracker) queuedID(ctx context.Context, to models.Address, amount *big.Int) (uint64, error) {
	txs, err := t.GetTransactions(ctx)
	if err != nil {
		return 0, err
	}
	if len(txs) == 0 {
		return 0, &chainerrors.Error{Kind: chainerrors.ErrChainReadFailed, Reason: "transaction queue is empty after submit"}
	}
	last := txs[len(txs)-1]
	if last.Executed || !last.To.Equal(to) || last.Amount.Cmp(amount) != 0 {
		return 0, &chainerrors.Error{
			Kind:   chainerrors.ErrChainReadFailed,
			Reason: fmt.Sprintf("transaction id unknown: queue tail %d is not this submission", last.ID),
		}
	}
	return last.ID, nil
}

// Approve records the sender's approval of id. Rejections such as a repeat
// approval or an executed transaction come back from the contract.
func (t *Tracker) Approve(ctx context.Context, id uint64, opts models.CallOptions) (*models.Receipt, error) {
	req := opts.Apply(models.NewRequest(models.Wallet, "approveTransaction", new(big.Int).SetUint64(id)))
	receipt, err := t.gateway.Submit(ctx, req)
	if err != nil {
		return nil, chainerrors.WithOp("wallet.approve", err)
	}
	t.logger.Info().Uint64("txId", id).Str("txHash", receipt.TxHash.Hex()).Msg("Wallet transaction approved")
	return receipt, nil
}

// Execute runs id. The approval threshold is enforced by the contract.
func (t *Tracker) Execute(ctx context.Context, id uint64, opts models.CallOptions) (*models.Receipt, error) {
	req := opts.Apply(models.NewRequest(models.Wallet, "executeTransaction", new(big.Int).SetUint64(id)))
	receipt, err := t.gateway.Submit(ctx, req)
	if err != nil {
		return nil, chainerrors.WithOp("wallet.execute", err)
	}
	t.logger.Info().Uint64("txId", id).Str("txHash", receipt.TxHash.Hex()).Msg("Wallet transaction executed")
	return receipt, nil
}

// GetApprovers returns the approvals of id in the order the contract
// reports them, which is not necessarily chronological. Use SortApprovals
// when order matters.
func (t *Tracker) GetApprovers(ctx context.Context, id uint64) ([]models.Approval, error) {
	var raw []onchainApproval
	req := models.NewRequest(models.Wallet, "getTransactionApprovers", new(big.Int).SetUint64(id))
	if err := t.gateway.Read(ctx, req, &raw); err != nil {
		return nil, chainerrors.WithOp("wallet.getApprovers", err)
	}
	approvals := make([]models.Approval, 0, len(raw))
	for _, a := range raw {
		var ts uint64
		if a.Timestamp != nil {
			ts = a.Timestamp.Uint64()
		}
		approvals = append(approvals, models.Approval{Approver: models.AddressFromCommon(a.Approver), Timestamp: ts})
	}
	return approvals, nil
}

// SortApprovals orders approvals by timestamp, keeping the reported order for ties.
func SortApprovals(approvals []models.Approval) []models.Approval {
	sorted := make([]models.Approval, len(approvals))
	copy(sorted, approvals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})
	return sorted
}

// GetTransactions reads the whole queue. Ids are positions in it.
func (t *Tracker) GetTransactions(ctx context.Context) ([]models.MultiSigTransaction, error) {
	var raw []onchainTx
	if err := t.gateway.Read(ctx, models.NewRequest(models.Wallet, "getTransactions"), &raw); err != nil {
		return nil, chainerrors.WithOp("wallet.getTransactions", err)
	}
	txs := make([]models.MultiSigTransaction, 0, len(raw))
	for i, tx := range raw {
		m := models.MultiSigTransaction{
			ID:       uint64(i),
			To:       models.AddressFromCommon(tx.To),
			Amount:   new(big.Int),
			Executed: tx.Executed,
		}
		if tx.Amount != nil {
			m.Amount.Set(tx.Amount)
		}
		if tx.ApprovalCount != nil {
			m.ApprovalCount = tx.ApprovalCount.Uint64()
		}
		txs = append(txs, m)
	}
	return txs, nil
}

func (t *Tracker) GetTransaction(ctx context.Context, id uint64) (models.MultiSigTransaction, error) {
	txs, err := t.GetTransactions(ctx)
	if err != nil {
		return models.MultiSigTransaction{}, err
	}
	if id >= uint64(len(txs)) {
		return models.MultiSigTransaction{}, &chainerrors.Error{
			Op:     "wallet.getTransaction",
			Kind:   chainerrors.ErrNotFound,
			Reason: fmt.Sprintf("transaction %d does not exist", id),
		}
	}
	return txs[id], nil
}

// Deposit sends amount wei into the wallet
func (t *Tracker) Deposit(ctx context.Context, amount *big.Int, opts models.CallOptions) (*models.Receipt, error) {
	const op = "wallet.deposit"
	if err := validation.ValidateAmount(amount); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req := opts.Apply(models.NewRequest(models.Wallet, "deposit").WithValue(amount))
	receipt, err := t.gateway.Submit(ctx, req)
	if err != nil {
		return nil, chainerrors.WithOp(op, err)
	}
	return receipt, nil
}

// ReleasePayments pays out the wallet using the split fixed in the contract
func (t *Tracker) ReleasePayments(ctx context.Context, opts models.CallOptions) (*models.Receipt, error) {
	receipt, err := t.gateway.Submit(ctx, opts.Apply(models.NewRequest(models.Wallet, "releasePayments")))
	if err != nil {
		return nil, chainerrors.WithOp("wallet.releasePayments", err)
	}
	return receipt, nil
}

// Balance is the wallet contract's balance in wei
func (t *Tracker) Balance(ctx context.Context) (*big.Int, error) {
	var balance *big.Int
	if err := t.gateway.Read(ctx, models.NewRequest(models.Wallet, "getBalance"), &balance); err != nil {
		return nil, chainerrors.WithOp("wallet.balance", err)
	}
	return balance, nil
}
