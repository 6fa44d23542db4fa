package models

import (
	"contract-orchestrator/internal/units"
	"encoding/json"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TransactionRequest describes one logical contract call. Value is in wei;
// nil means no value is attached.
type TransactionRequest struct {
	Contract       ContractName
	Method         string
	Args           []any
	Value          *big.Int
	From           *Address
	IdempotencyKey string
}

// NewRequest builds a request with its own copy of args.
func NewRequest(contract ContractName, method string, args ...any) TransactionRequest {
	copied := make([]any, len(args))
	copy(copied, args)
	return TransactionRequest{
		Contract: contract,
		Method:   method,
		Args:     copied,
	}
}

// WithValue returns a copy of r carrying value wei.
func (r TransactionRequest) WithValue(value *big.Int) TransactionRequest {
	if value != nil {
		r.Value = new(big.Int).Set(value)
	}
	return r
}

// WithSender returns a copy of r sent from the given signer.
func (r TransactionRequest) WithSender(from Address) TransactionRequest {
	r.From = &from
	return r
}

// WithIdempotencyKey returns a copy of r guarded by key.
func (r TransactionRequest) WithIdempotencyKey(key string) TransactionRequest {
	r.IdempotencyKey = key
	return r
}

// Operation is the "contract.method" label used in logs, metrics and errors.
func (r TransactionRequest) Operation() string {
	return r.Contract.String() + "." + r.Method
}

// CallOptions carries the per-call settings of a state-changing operation.
type CallOptions struct {
	Sender         *Address
	IdempotencyKey string
}

// Apply returns req with the sender and idempotency key of o.
func (o CallOptions) Apply(req TransactionRequest) TransactionRequest {
	if o.Sender != nil {
		req = req.WithSender(*o.Sender)
	}
	return req.WithIdempotencyKey(o.IdempotencyKey)
}

// TxCall is a packed call handed to the transport.
type TxCall struct {
	From  common.Address
	To    common.Address
	Data  []byte
	Value *big.Int
}

// PendingTx is a broadcast transaction that has not been confirmed yet.
type PendingTx struct {
	Hash common.Hash
	TxCall
}

type ReceiptStatus uint64

const (
	ReceiptFailed     ReceiptStatus = 0
	ReceiptSuccessful ReceiptStatus = 1
)

// Log is one event record emitted during execution.
type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
	Index   uint
}

// Receipt is the confirmed outcome of a transaction. Read-only once built.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	Status      ReceiptStatus
	GasUsed     uint64
	Logs        []Log
}

func (r *Receipt) Succeeded() bool {
	return r != nil && r.Status == ReceiptSuccessful
}

// MultiSigTransaction mirrors one entry of the wallet's on-chain queue.
type MultiSigTransaction struct {
	ID            uint64   `json:"id"`
	To            Address  `json:"to"`
	Amount        *big.Int `json:"amount"`
	ApprovalCount uint64   `json:"approvalCount"`
	Executed      bool     `json:"executed"`
}

// MarshalJSON writes Amount as a decimal wei string with an ether display value
func (t MultiSigTransaction) MarshalJSON() ([]byte, error) {
	type plain MultiSigTransaction
	return json.Marshal(struct {
		plain
		Amount    json.Marshaler `json:"amount"`
		AmountEth string         `json:"amountEth"`
	}{plain(t), units.Wei(t.Amount), units.FormatEther(t.Amount)})
}

type Approval struct {
	Approver  Address `json:"approver"`
	Timestamp uint64  `json:"timestamp"`
}

func (a Approval) Time() time.Time {
	return time.Unix(int64(a.Timestamp), 0).UTC()
}

// MarshalJSON adds the approval time as an RFC 3339 date
func (a Approval) MarshalJSON() ([]byte, error) {
	type plain Approval
	return json.Marshal(struct {
		plain
		Date string `json:"date"`
	}{plain(a), a.Time().Format(time.RFC3339)})
}

// RevenueShare assigns a whole percentage of a release to one payee.
type RevenueShare struct {
	Payee      Address `json:"payee"`
	Percentage uint8   `json:"percentage"`
}

// Listing is one product of the marketplace contract.
type Listing struct {
	ID     uint64   `json:"id"`
	Name   string   `json:"name"`
	Price  *big.Int `json:"price"`
	Seller Address  `json:"seller"`
	Active bool     `json:"active"`
}

// MarshalJSON writes Price as a decimal wei string with an ether display value
func (l Listing) MarshalJSON() ([]byte, error) {
	type plain Listing
	return json.Marshal(struct {
		plain
		Price    json.Marshaler `json:"price"`
		PriceEth string         `json:"priceEth"`
	}{plain(l), units.Wei(l.Price), units.FormatEther(l.Price)})
}

// OperationEvent is published after a state-changing call is confirmed.
type OperationEvent struct {
	Contract    ContractName `json:"contract"`
	Operation   string       `json:"operation"`
	TxHash      string       `json:"txHash"`
	BlockNumber uint64       `json:"blockNumber"`
	Sender      string       `json:"sender"`
	Timestamp   time.Time    `json:"timestamp"`
}
