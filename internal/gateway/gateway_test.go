package gateway

import (
	"context"
	"contract-orchestrator/internal/chainerrors"
	"contract-orchestrator/internal/contracts"
	"contract-orchestrator/internal/idempotency"
	"contract-orchestrator/internal/metrics"
	"contract-orchestrator/internal/models"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	walletAddress = common.HexToAddress("0x59427DE366B815334d95267cE7968846Aa5Aa200")
	sender        = common.HexToAddress("0x3bB94F092f247A37DA1832D802Ae2CC2cA8d4526")
	payee         = common.HexToAddress("0x8ba1f109551bD432803012645Ac136ddd64DBA72")
)

type fakeTransport struct {
	mu           sync.Mutex
	broadcasts   []models.TxCall
	calls        []models.TxCall
	broadcastErr error
	sendErr      error
	waitErr      error
	callResult   []byte
	callErr      error
	balance      *big.Int
}

func (f *fakeTransport) SignAndBroadcast(_ context.Context, call models.TxCall) (*models.PendingTx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broadcastErr != nil {
		return nil, f.broadcastErr
	}
	f.broadcasts = append(f.broadcasts, call)
	if call.From == (common.Address{}) {
		call.From = sender
	}
	pending := &models.PendingTx{Hash: common.BigToHash(big.NewInt(int64(len(f.broadcasts)))), TxCall: call}
	if f.sendErr != nil {
		return pending, f.sendErr
	}
	return pending, nil
}

func (f *fakeTransport) WaitForReceipt(_ context.Context, tx *models.PendingTx) (*models.Receipt, error) {
	if f.waitErr != nil {
		return nil, f.waitErr
	}
	return &models.Receipt{TxHash: tx.Hash, BlockNumber: 42, Status: models.ReceiptSuccessful}, nil
}

func (f *fakeTransport) Call(_ context.Context, call models.TxCall) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.callResult, f.callErr
}

func (f *fakeTransport) BalanceAt(context.Context, common.Address) (*big.Int, error) {
	if f.balance == nil {
		return nil, errors.New("connection refused")
	}
	return f.balance, nil
}

func (f *fakeTransport) BlockNumber(context.Context) (uint64, error) { return 42, nil }

func (f *fakeTransport) DefaultSender() common.Address { return sender }

func (f *fakeTransport) broadcastCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.broadcasts)
}

type recordingEmitter struct {
	events []models.OperationEvent
}

func (e *recordingEmitter) EmitEvent(event models.OperationEvent) error {
	e.events = append(e.events, event)
	return nil
}

func setupGateway(t *testing.T, transport *fakeTransport, opts ...Option) (*Gateway, *prometheus.Registry) {
	t.Helper()
	registry := contracts.NewRegistry()
	registry.Register(models.Wallet, walletAddress, contracts.MustEmbeddedABI(models.Wallet))
	reg := prometheus.NewRegistry()
	logger := zerolog.Nop()
	opts = append([]Option{WithMetrics(metrics.New(reg)), WithReceiptTimeout(time.Second)}, opts...)
	return New(registry, transport, &logger, opts...), reg
}

func submitRequest() models.TransactionRequest {
	return models.NewRequest(models.Wallet, "submitTransaction", payee, big.NewInt(1000))
}

func TestSubmitSuccess(t *testing.T) {
	transport := &fakeTransport{}
	emitter := &recordingEmitter{}
	gw, reg := setupGateway(t, transport, WithEmitter(emitter))

	receipt, err := gw.Submit(context.Background(), submitRequest())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), receipt.BlockNumber)

	require.Len(t, transport.broadcasts, 1)
	call := transport.broadcasts[0]
	assert.Equal(t, walletAddress, call.To)
	walletABI := contracts.MustEmbeddedABI(models.Wallet)
	assert.Equal(t, walletABI.Methods["submitTransaction"].ID, call.Data[:4])

	require.Len(t, emitter.events, 1)
	assert.Equal(t, models.Wallet, emitter.events[0].Contract)
	assert.Equal(t, "submitTransaction", emitter.events[0].Operation)
	assert.Equal(t, receipt.TxHash.Hex(), emitter.events[0].TxHash)
	assert.Equal(t, sender.Hex(), emitter.events[0].Sender)

	assert.Equal(t, 1, testutil.CollectAndCount(reg, "orchestrator_gateway_submit_duration_seconds"))
}

func TestSubmitUsesRequestSender(t *testing.T) {
	transport := &fakeTransport{}
	gw, _ := setupGateway(t, transport)

	other := models.MustParseAddress("0x8ba1f109551bD432803012645Ac136ddd64DBA72")
	_, err := gw.Submit(context.Background(), submitRequest().WithSender(other).WithValue(big.NewInt(5)))
	require.NoError(t, err)
	require.Len(t, transport.broadcasts, 1)
	assert.Equal(t, other.Common(), transport.broadcasts[0].From)
	assert.Equal(t, "5", transport.broadcasts[0].Value.String())
}

func TestSubmitRevertCarriesReason(t *testing.T) {
	transport := &fakeTransport{waitErr: &chainerrors.RevertError{Reason: "Transaction already executed", TxHash: "0x01"}}
	emitter := &recordingEmitter{}
	gw, _ := setupGateway(t, transport, WithEmitter(emitter))

	_, err := gw.Submit(context.Background(), models.NewRequest(models.Wallet, "approveTransaction", big.NewInt(0)))
	require.Error(t, err)
	assert.ErrorIs(t, err, chainerrors.ErrChainCallFailed)
	assert.ErrorIs(t, err, chainerrors.ErrAlreadyExecuted)
	assert.Contains(t, err.Error(), "Transaction already executed")
	assert.Empty(t, emitter.events)
}

func TestSubmitUnknownOutcome(t *testing.T) {
	transport := &fakeTransport{waitErr: context.DeadlineExceeded}
	gw, _ := setupGateway(t, transport)

	_, err := gw.Submit(context.Background(), submitRequest())
	assert.ErrorIs(t, err, chainerrors.ErrChainCallFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "outcome unknown")
}

func TestSubmitEncodingError(t *testing.T) {
	transport := &fakeTransport{}
	gw, _ := setupGateway(t, transport)

	_, err := gw.Submit(context.Background(), models.NewRequest(models.Wallet, "submitTransaction", "not an address"))
	assert.ErrorIs(t, err, chainerrors.ErrChainCallFailed)
	assert.Equal(t, 0, transport.broadcastCount())
}

func TestSubmitUnknownContract(t *testing.T) {
	transport := &fakeTransport{}
	gw, _ := setupGateway(t, transport)

	_, err := gw.Submit(context.Background(), models.NewRequest(models.NFT, "mintNFT", payee, "ipfs://x"))
	assert.ErrorIs(t, err, chainerrors.ErrChainCallFailed)
	assert.Equal(t, 0, transport.broadcastCount())
}

func TestSubmitDuplicateKeyIsNotBroadcast(t *testing.T) {
	transport := &fakeTransport{}
	store := idempotency.NewMemoryStore(time.Hour)
	gw, reg := setupGateway(t, transport, WithIdempotencyStore(store))

	req := submitRequest().WithIdempotencyKey("order-17")
	first, err := gw.Submit(context.Background(), req)
	require.NoError(t, err)

	_, err = gw.Submit(context.Background(), req)
	assert.ErrorIs(t, err, chainerrors.ErrDuplicateSubmission)
	assert.ErrorIs(t, err, chainerrors.ErrChainCallFailed)

	var chainErr *chainerrors.Error
	require.True(t, errors.As(err, &chainErr))
	assert.Equal(t, first.TxHash.Hex(), chainErr.TxHash)
	assert.Equal(t, 1, transport.broadcastCount())

	assert.Equal(t, 1.0, callCount(t, reg, metrics.OutcomeDuplicate))
}

func TestSubmitBroadcastFailureReleasesKey(t *testing.T) {
	transport := &fakeTransport{broadcastErr: chainerrors.NotSent(&chainerrors.RevertError{Reason: "Insufficient balance"})}
	store := idempotency.NewMemoryStore(time.Hour)
	gw, _ := setupGateway(t, transport, WithIdempotencyStore(store))

	req := submitRequest().WithIdempotencyKey("retry-me")
	_, err := gw.Submit(context.Background(), req)
	assert.ErrorIs(t, err, chainerrors.ErrInsufficientFunds)

	transport.broadcastErr = nil
	_, err = gw.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, transport.broadcastCount())
}

func TestSubmitLostSendReplyKeepsKey(t *testing.T) {
	transport := &fakeTransport{sendErr: context.DeadlineExceeded}
	store := idempotency.NewMemoryStore(time.Hour)
	gw, _ := setupGateway(t, transport, WithIdempotencyStore(store))

	req := submitRequest().WithIdempotencyKey("lost-reply")
	_, err := gw.Submit(context.Background(), req)
	require.Error(t, err)
	assert.ErrorContains(t, err, "outcome unknown")
	var chainErr *chainerrors.Error
	require.True(t, errors.As(err, &chainErr))
	sent := common.BigToHash(big.NewInt(1)).Hex()
	assert.Equal(t, sent, chainErr.TxHash)

	transport.sendErr = nil
	_, err = gw.Submit(context.Background(), req)
	assert.ErrorIs(t, err, chainerrors.ErrDuplicateSubmission)
	require.True(t, errors.As(err, &chainErr))
	assert.Equal(t, sent, chainErr.TxHash)
	assert.Equal(t, 1, transport.broadcastCount())
}

func TestSubmitUnmarkedBroadcastErrorKeepsKey(t *testing.T) {
	transport := &fakeTransport{broadcastErr: errors.New("connection reset by peer")}
	store := idempotency.NewMemoryStore(time.Hour)
	gw, _ := setupGateway(t, transport, WithIdempotencyStore(store))

	req := submitRequest().WithIdempotencyKey("reset")
	_, err := gw.Submit(context.Background(), req)
	assert.ErrorContains(t, err, "outcome unknown")

	transport.broadcastErr = nil
	_, err = gw.Submit(context.Background(), req)
	assert.ErrorIs(t, err, chainerrors.ErrDuplicateSubmission)
	assert.Equal(t, 0, transport.broadcastCount())
}

func TestReadDecodes(t *testing.T) {
	transport := &fakeTransport{callResult: common.LeftPadBytes(big.NewInt(3).Bytes(), 32)}
	gw, _ := setupGateway(t, transport)

	var count *big.Int
	err := gw.Read(context.Background(), models.NewRequest(models.Wallet, "getTransactionCount"), &count)
	require.NoError(t, err)
	assert.Equal(t, "3", count.String())
	require.Len(t, transport.calls, 1)
	assert.Equal(t, sender, transport.calls[0].From)

	values, err := gw.ReadValues(context.Background(), models.NewRequest(models.Wallet, "getBalance"))
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, "3", values[0].(*big.Int).String())
}

func TestReadFailures(t *testing.T) {
	transport := &fakeTransport{callResult: []byte{0x01}}
	gw, _ := setupGateway(t, transport)

	var count *big.Int
	err := gw.Read(context.Background(), models.NewRequest(models.Wallet, "getTransactionCount"), &count)
	assert.ErrorIs(t, err, chainerrors.ErrChainReadFailed)

	transport.callErr = errors.New("connection refused")
	err = gw.Read(context.Background(), models.NewRequest(models.Wallet, "getTransactionCount"), &count)
	assert.ErrorIs(t, err, chainerrors.ErrChainReadFailed)
	assert.NotErrorIs(t, err, chainerrors.ErrChainCallFailed)

	err = gw.Read(context.Background(), models.NewRequest(models.Product, "getBalance"), &count)
	assert.ErrorIs(t, err, chainerrors.ErrChainReadFailed)
}

func TestBalance(t *testing.T) {
	transport := &fakeTransport{}
	gw, _ := setupGateway(t, transport)

	_, err := gw.Balance(context.Background(), payee)
	assert.ErrorIs(t, err, chainerrors.ErrChainReadFailed)

	transport.balance = big.NewInt(2_000_000_000_000_000_000)
	balance, err := gw.Balance(context.Background(), payee)
	require.NoError(t, err)
	assert.Equal(t, "2000000000000000000", balance.String())
}

func callCount(t *testing.T, reg *prometheus.Registry, outcome string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != "orchestrator_gateway_calls_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "outcome" && l.GetValue() == outcome {
					total += m.GetCounter().GetValue()
				}
			}
		}
	}
	return total
}
