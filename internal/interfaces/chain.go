package interfaces

import (
	"context"
	"contract-orchestrator/internal/models"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Transport signs, broadcasts and reads through a node. Implementations must
// keep per-account nonces strictly increasing for broadcasts they issue.
type Transport interface {
	// SignAndBroadcast signs call with the key for call.From (the default
	// signer when zero) and returns once the node accepted it. Failures that
	// happen before the send must satisfy errors.Is(err, chainerrors.ErrNotSent);
	// any other failure may have reached the node and should return the
	// signed transaction alongside the error.
	SignAndBroadcast(ctx context.Context, call models.TxCall) (*models.PendingTx, error)

	// WaitForReceipt blocks until tx is mined and confirmed. A reverted
	// transaction yields the receipt and a *chainerrors.RevertError.
	WaitForReceipt(ctx context.Context, tx *models.PendingTx) (*models.Receipt, error)

	// Call executes call against the latest state without a transaction.
	Call(ctx context.Context, call models.TxCall) ([]byte, error)

	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)

	// DefaultSender is the account used when a call names no sender.
	DefaultSender() common.Address
}

// ContractGateway is what the contract services need from the gateway
type ContractGateway interface {
	Submit(ctx context.Context, req models.TransactionRequest) (*models.Receipt, error)
	Read(ctx context.Context, req models.TransactionRequest, out any) error
	Balance(ctx context.Context, account common.Address) (*big.Int, error)
}

// IdempotencyStore remembers client supplied keys of submitted calls
type IdempotencyStore interface {
	// Reserve claims key. When the key is already taken it returns false and
	// the tx hash recorded for it, if any.
	Reserve(ctx context.Context, key, operation string) (reserved bool, txHash string, err error)
	// Record stores the broadcast tx hash for a reserved key.
	Record(ctx context.Context, key, txHash string) error
	// Release frees a key whose call was never broadcast.
	Release(ctx context.Context, key string) error
}

// AssetStore pins off-chain content and returns its locator URL
type AssetStore interface {
	UploadBinary(ctx context.Context, name string, data []byte) (string, error)
	UploadJSON(ctx context.Context, name string, document any) (string, error)
}
