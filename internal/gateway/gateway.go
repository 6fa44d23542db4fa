// Package gateway funnels every contract call through one place: it packs
// arguments with the contract ABI, submits through the transport, waits for
// the confirmed receipt and maps failures onto the chainerrors taxonomy.
//
// Submit never retries. A broadcast transaction may still be mined after the
// caller stops waiting, so callers that might resubmit must set an
// idempotency key on the request. A key is freed again only when the
// transport reports the transaction was never sent.
package gateway

import (
	"context"
	"contract-orchestrator/internal/chainerrors"
	"contract-orchestrator/internal/contracts"
	"contract-orchestrator/internal/interfaces"
	"contract-orchestrator/internal/metrics"
	"contract-orchestrator/internal/models"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

var _ interfaces.ContractGateway = (*Gateway)(nil)

const defaultReceiptTimeout = 2 * time.Minute

type Gateway struct {
	registry       *contracts.Registry
	transport      interfaces.Transport
	logger         *zerolog.Logger
	store          interfaces.IdempotencyStore
	emitter        interfaces.EventEmitter
	metrics        *metrics.Metrics
	receiptTimeout time.Duration
	now            func() time.Time
}

type Option func(*Gateway)

// WithIdempotencyStore enables idempotency keys on Submit
func WithIdempotencyStore(store interfaces.IdempotencyStore) Option {
	return func(g *Gateway) { g.store = store }
}

// WithEmitter publishes an OperationEvent for every confirmed submit
func WithEmitter(emitter interfaces.EventEmitter) Option {
	return func(g *Gateway) { g.emitter = emitter }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithReceiptTimeout bounds how long Submit waits for confirmation
func WithReceiptTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.receiptTimeout = d
		}
	}
}

func New(registry *contracts.Registry, transport interfaces.Transport, logger *zerolog.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		registry:       registry,
		transport:      transport,
		logger:         logger,
		receiptTimeout: defaultReceiptTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Submit signs and broadcasts req and blocks until its receipt is
// confirmed. A reverted or rejected call returns ErrChainCallFailed with
// the node's reason.
func (g *Gateway) Submit(ctx context.Context, req models.TransactionRequest) (*models.Receipt, error) {
	op := req.Operation()
	contract, err := g.registry.Get(req.Contract)
	if err != nil {
		return nil, chainerrors.CallFailed(op, err)
	}
	data, err := contract.ABI.Pack(req.Method, req.Args...)
	if err != nil {
		return nil, chainerrors.CallFailed(op, fmt.Errorf("failed to encode arguments: %w", err))
	}

	call := models.TxCall{To: contract.Address, Data: data, Value: req.Value}
	if req.From != nil {
		call.From = req.From.Common()
	}

	key := req.IdempotencyKey
	if key != "" && g.store != nil {
		reserved, prior, err := g.store.Reserve(ctx, key, op)
		if err != nil {
			return nil, chainerrors.CallFailed(op, fmt.Errorf("idempotency store: %w", err))
		}
		if !reserved {
			g.observe("submit", req, metrics.OutcomeDuplicate)
			g.logger.Warn().Str("operation", op).Str("idempotencyKey", key).Str("txHash", prior).Msg("Rejected duplicate submission")
			return nil, chainerrors.Duplicate(op, key, prior)
		}
	}

	pending, err := g.transport.SignAndBroadcast(ctx, call)
	if err != nil {
		g.observe("submit", req, outcomeOf(err))
		if errors.Is(err, chainerrors.ErrNotSent) {
			// nothing reached the network, so the key can be used again
			g.release(ctx, key)
			g.logger.Error().Err(err).Str("operation", op).Msg("Broadcast rejected")
			return nil, chainerrors.CallFailed(op, err)
		}
		// the node may hold the transaction, keep the key reserved
		if pending == nil {
			g.logger.Error().Err(err).Str("operation", op).Str("idempotencyKey", key).Msg("Broadcast failed, outcome unknown")
			return nil, chainerrors.CallFailed(op, fmt.Errorf("broadcast outcome unknown: %w", err))
		}
		txHash := pending.Hash.Hex()
		g.record(ctx, key, txHash)
		g.logger.Error().Err(err).Str("operation", op).Str("txHash", txHash).Msg("Broadcast failed, outcome unknown")
		return nil, withTxHash(chainerrors.CallFailed(op, fmt.Errorf("tx %s outcome unknown: %w", txHash, err)), txHash)
	}
	txHash := pending.Hash.Hex()
	g.record(ctx, key, txHash)

	g.logger.Info().
		Str("operation", op).
		Str("txHash", txHash).
		Str("from", pending.From.Hex()).
		Msg("Transaction broadcast, waiting for receipt")

	start := g.now()
	waitCtx, cancel := context.WithTimeout(ctx, g.receiptTimeout)
	defer cancel()
	receipt, err := g.transport.WaitForReceipt(waitCtx, pending)
	if err != nil {
		g.observe("submit", req, outcomeOf(err))
		var revert *chainerrors.RevertError
		if errors.As(err, &revert) {
			g.logger.Error().Str("operation", op).Str("txHash", txHash).Str("reason", revert.Reason).Msg("Transaction reverted")
			return nil, chainerrors.CallFailed(op, err)
		}
		g.logger.Error().Err(err).Str("operation", op).Str("txHash", txHash).Msg("Stopped waiting for receipt")
		return nil, chainerrors.CallFailed(op, fmt.Errorf("tx %s outcome unknown: %w", txHash, err))
	}
	g.metrics.ObserveSubmit(req.Contract.String(), req.Method, g.now().Sub(start))
	g.observe("submit", req, metrics.OutcomeSuccess)

	g.logger.Info().
		Str("operation", op).
		Str("txHash", txHash).
		Uint64("blockNumber", receipt.BlockNumber).
		Int("logs", len(receipt.Logs)).
		Msg("Transaction confirmed")

	g.emit(req, pending, receipt)
	return receipt, nil
}

// Read performs req as an eth_call and unpacks the outputs into out
func (g *Gateway) Read(ctx context.Context, req models.TransactionRequest, out any) error {
	contract, raw, err := g.call(ctx, req)
	if err != nil {
		return err
	}
	if err := contract.ABI.UnpackIntoInterface(out, req.Method, raw); err != nil {
		g.observe("read", req, metrics.OutcomeError)
		return chainerrors.ReadFailed(req.Operation(), fmt.Errorf("failed to decode result: %w", err))
	}
	g.observe("read", req, metrics.OutcomeSuccess)
	return nil
}

// ReadValues is Read for callers that want the raw decoded outputs
func (g *Gateway) ReadValues(ctx context.Context, req models.TransactionRequest) ([]any, error) {
	contract, raw, err := g.call(ctx, req)
	if err != nil {
		return nil, err
	}
	values, err := contract.ABI.Unpack(req.Method, raw)
	if err != nil {
		g.observe("read", req, metrics.OutcomeError)
		return nil, chainerrors.ReadFailed(req.Operation(), fmt.Errorf("failed to decode result: %w", err))
	}
	g.observe("read", req, metrics.OutcomeSuccess)
	return values, nil
}

func (g *Gateway) call(ctx context.Context, req models.TransactionRequest) (*contracts.Contract, []byte, error) {
	op := req.Operation()
	contract, err := g.registry.Get(req.Contract)
	if err != nil {
		return nil, nil, chainerrors.ReadFailed(op, err)
	}
	data, err := contract.ABI.Pack(req.Method, req.Args...)
	if err != nil {
		return nil, nil, chainerrors.ReadFailed(op, fmt.Errorf("failed to encode arguments: %w", err))
	}
	call := models.TxCall{From: g.transport.DefaultSender(), To: contract.Address, Data: data, Value: req.Value}
	if req.From != nil {
		call.From = req.From.Common()
	}

	raw, err := g.transport.Call(ctx, call)
	if err != nil {
		g.observe("read", req, metrics.OutcomeError)
		g.logger.Debug().Err(err).Str("operation", op).Msg("Read call failed")
		return nil, nil, chainerrors.ReadFailed(op, err)
	}
	return contract, raw, nil
}

// Balance returns the native balance of any account in wei
func (g *Gateway) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := g.transport.BalanceAt(ctx, account)
	if err != nil {
		return nil, chainerrors.ReadFailed("balance", err)
	}
	return balance, nil
}

func (g *Gateway) BlockNumber(ctx context.Context) (uint64, error) {
	head, err := g.transport.BlockNumber(ctx)
	if err != nil {
		return 0, chainerrors.ReadFailed("blockNumber", err)
	}
	return head, nil
}

// Sender is the account used for calls that name no sender
func (g *Gateway) Sender() common.Address {
	return g.transport.DefaultSender()
}

func (g *Gateway) release(ctx context.Context, key string) {
	if key == "" || g.store == nil {
		return
	}
	if err := g.store.Release(context.WithoutCancel(ctx), key); err != nil {
		g.logger.Error().Err(err).Str("idempotencyKey", key).Msg("Failed to release idempotency key")
	}
}

func (g *Gateway) record(ctx context.Context, key, txHash string) {
	if key == "" || g.store == nil {
		return
	}
	if err := g.store.Record(context.WithoutCancel(ctx), key, txHash); err != nil {
		g.logger.Error().Err(err).Str("idempotencyKey", key).Str("txHash", txHash).Msg("Failed to record idempotency key")
	}
}

func withTxHash(err error, txHash string) error {
	var e *chainerrors.Error
	if errors.As(err, &e) && e.TxHash == "" {
		e.TxHash = txHash
	}
	return err
}

func (g *Gateway) emit(req models.TransactionRequest, pending *models.PendingTx, receipt *models.Receipt) {
	if g.emitter == nil {
		return
	}
	event := models.OperationEvent{
		Contract:    req.Contract,
		Operation:   req.Method,
		TxHash:      receipt.TxHash.Hex(),
		BlockNumber: receipt.BlockNumber,
		Sender:      pending.From.Hex(),
		Timestamp:   g.now().UTC(),
	}
	if err := g.emitter.EmitEvent(event); err != nil {
		g.logger.Error().Err(err).Str("txHash", event.TxHash).Msg("Error emitting operation event")
	}
}

func (g *Gateway) observe(kind string, req models.TransactionRequest, outcome string) {
	g.metrics.ObserveCall(kind, req.Contract.String(), req.Method, outcome)
}

func outcomeOf(err error) string {
	var revert *chainerrors.RevertError
	if errors.As(err, &revert) {
		return metrics.OutcomeReverted
	}
	return metrics.OutcomeError
}
