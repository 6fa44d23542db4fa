package rpc

import (
	"context"
	"contract-orchestrator/internal/chainerrors"
	"contract-orchestrator/internal/config"
	"contract-orchestrator/internal/interfaces"
	"contract-orchestrator/internal/models"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var _ interfaces.Transport = (*Client)(nil)

// gas estimates are padded by this percentage
const gasLimitMarginPercent = 20

// Client is the signing transport: go-ethereum's ethclient behind a rate
// limiter, with one keyed transactor per configured account.
type Client struct {
	Endpoint      string
	ApiKey        string
	RateLimiter   *rate.Limiter
	Confirmations uint64
	PollInterval  time.Duration
	Logger        *zerolog.Logger
	HTTPClient    *http.Client

	eth           *ethclient.Client
	chainID       *big.Int
	signers       map[common.Address]*signer
	defaultSender common.Address
}

// signer serialises nonce allocation for one account
type signer struct {
	mu   sync.Mutex
	opts *bind.TransactOpts
}

// NewClient dials the node and loads the signing keys from cfg
func NewClient(ctx context.Context, cfg config.ChainConfig, logger *zerolog.Logger) (*Client, error) {
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
		Transport: &CustomTransport{
			Base:   http.DefaultTransport,
			ApiKey: cfg.ApiKey,
		},
	}

	rpcClient, err := gethrpc.DialOptions(ctx, cfg.RpcEndpoint, gethrpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create RPC client: %w", err)
	}

	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = 10
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	confirmations := cfg.Confirmations
	if confirmations == 0 {
		confirmations = 1
	}

	c := &Client{
		Endpoint:      cfg.RpcEndpoint,
		ApiKey:        cfg.ApiKey,
		RateLimiter:   rate.NewLimiter(rate.Limit(rateLimit), 1),
		Confirmations: confirmations,
		PollInterval:  pollInterval,
		Logger:        logger,
		HTTPClient:    httpClient,
		eth:           ethclient.NewClient(rpcClient),
		chainID:       big.NewInt(cfg.ChainID),
		signers:       make(map[common.Address]*signer),
	}

	keys := append([]string{cfg.PrivateKey}, cfg.ExtraKeys...)
	for i, hexKey := range keys {
		if hexKey == "" {
			continue
		}
		addr, err := c.addKey(hexKey)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("signing key %d: %w", i, err)
		}
		if i == 0 {
			c.defaultSender = addr
		}
	}
	if len(c.signers) == 0 {
		c.Close()
		return nil, errors.New("no signing key configured")
	}

	c.Logger.Info().
		Str("endpoint", c.Endpoint).
		Int64("chainId", cfg.ChainID).
		Str("sender", c.defaultSender.Hex()).
		Int("signers", len(c.signers)).
		Msg("Connected transport")
	return c, nil
}

// CustomTransport adds API key authentication to HTTP requests
type CustomTransport struct {
	Base   http.RoundTripper
	ApiKey string
}

func (t *CustomTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Content-Type", "application/json")
	if t.ApiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.ApiKey)
	}
	return t.Base.RoundTrip(req)
}

func (c *Client) addKey(hexKey string) (common.Address, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid private key: %w", err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, c.chainID)
	if err != nil {
		return common.Address{}, err
	}
	c.signers[opts.From] = &signer{opts: opts}
	return opts.From, nil
}

func (c *Client) DefaultSender() common.Address {
	return c.defaultSender
}

// Senders lists every account the client can sign for
func (c *Client) Senders() []common.Address {
	out := make([]common.Address, 0, len(c.signers))
	for addr := range c.signers {
		out = append(out, addr)
	}
	return out
}

func (c *Client) wait(ctx context.Context) error {
	if err := c.RateLimiter.Wait(ctx); err != nil {
		c.Logger.Error().Err(err).Msg("Rate limit error")
		return fmt.Errorf("rate limit error: %w", err)
	}
	return nil
}

// SignAndBroadcast builds an EIP-1559 transaction for call, signs it and
// sends it. The signer lock is held from nonce lookup to broadcast. Errors
// before the send are marked chainerrors.NotSent; a failed send returns the
// signed transaction's hash along with the error.
func (c *Client) SignAndBroadcast(ctx context.Context, call models.TxCall) (*models.PendingTx, error) {
	from := call.From
	if from == (common.Address{}) {
		from = c.defaultSender
	}
	s, ok := c.signers[from]
	if !ok {
		return nil, chainerrors.NotSent(fmt.Errorf("no signing key for sender %s", from.Hex()))
	}
	call.From = from
	value := call.Value
	if value == nil {
		value = new(big.Int)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := c.wait(ctx); err != nil {
		return nil, chainerrors.NotSent(err)
	}
	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, chainerrors.NotSent(fmt.Errorf("failed to get nonce: %w", err))
	}
	tip, err := c.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, chainerrors.NotSent(fmt.Errorf("failed to suggest gas tip: %w", err))
	}
	price, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, chainerrors.NotSent(fmt.Errorf("failed to suggest gas price: %w", err))
	}
	feeCap := new(big.Int).Mul(price, big.NewInt(2))
	if feeCap.Cmp(tip) < 0 {
		feeCap.Set(tip)
	}

	to := call.To
	gas, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Value: value, Data: call.Data})
	if err != nil {
		return nil, chainerrors.NotSent(revertError(err))
	}
	gas += gas * gasLimitMarginPercent / 100

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      call.Data,
	})
	signed, err := s.opts.Signer(from, tx)
	if err != nil {
		return nil, chainerrors.NotSent(fmt.Errorf("failed to sign transaction: %w", err))
	}
	pending := &models.PendingTx{Hash: signed.Hash(), TxCall: call}
	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		// the node may have accepted it before the reply was lost
		return pending, revertError(err)
	}

	c.Logger.Debug().
		Str("from", from.Hex()).
		Str("to", to.Hex()).
		Uint64("nonce", nonce).
		Uint64("gas", gas).
		Str("txHash", signed.Hash().Hex()).
		Msg("Broadcast transaction")

	return pending, nil
}

// WaitForReceipt polls until the transaction is mined with the configured
// number of confirmations or ctx ends. Polling errors are logged and the
// wait continues; nothing is resubmitted.
func (c *Client) WaitForReceipt(ctx context.Context, tx *models.PendingTx) (*models.Receipt, error) {
	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.pollReceipt(ctx, tx.Hash)
		if err != nil {
			c.Logger.Warn().Err(err).Str("txHash", tx.Hash.Hex()).Msg("Receipt poll failed")
		}
		if receipt != nil {
			head, err := c.BlockNumber(ctx)
			if err != nil {
				c.Logger.Warn().Err(err).Msg("Block number poll failed")
			} else if head+1 >= receipt.BlockNumber.Uint64()+c.Confirmations {
				return c.finish(ctx, tx, receipt)
			}
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for receipt of %s: %w", tx.Hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) pollReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	receipt, err := c.eth.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	return receipt, err
}

func (c *Client) finish(ctx context.Context, tx *models.PendingTx, receipt *types.Receipt) (*models.Receipt, error) {
	out := convertReceipt(receipt)
	if out.Succeeded() {
		return out, nil
	}

	// replay the call at the inclusion block to recover the revert reason
	to := tx.To
	msg := ethereum.CallMsg{From: tx.From, To: &to, Value: tx.Value, Data: tx.Data, Gas: receipt.GasUsed}
	reason := ""
	if err := c.wait(ctx); err == nil {
		if _, err := c.eth.CallContract(ctx, msg, receipt.BlockNumber); err != nil {
			var revert *chainerrors.RevertError
			if errors.As(revertError(err), &revert) {
				reason = revert.Reason
			}
		}
	}
	return out, &chainerrors.RevertError{Reason: reason, TxHash: tx.Hash.Hex()}
}

func (c *Client) Call(ctx context.Context, call models.TxCall) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	to := call.To
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{From: call.From, To: &to, Value: call.Value, Data: call.Data}, nil)
	if err != nil {
		return nil, revertError(err)
	}
	return out, nil
}

func (c *Client) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.eth.BalanceAt(ctx, account, nil)
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	return c.eth.BlockNumber(ctx)
}

// Close closes the node connection
func (c *Client) Close() {
	if c.eth != nil {
		c.eth.Close()
	}
	if c.HTTPClient != nil {
		c.HTTPClient.CloseIdleConnections()
	}
}

func convertReceipt(r *types.Receipt) *models.Receipt {
	out := &models.Receipt{
		TxHash:  r.TxHash,
		Status:  models.ReceiptStatus(r.Status),
		GasUsed: r.GasUsed,
		Logs:    make([]models.Log, 0, len(r.Logs)),
	}
	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.Uint64()
	}
	for _, l := range r.Logs {
		out.Logs = append(out.Logs, models.Log{
			Address: l.Address,
			Topics:  append([]common.Hash(nil), l.Topics...),
			Data:    append([]byte(nil), l.Data...),
			Index:   l.Index,
		})
	}
	return out
}

// revertError turns a node rejection into a RevertError when it carries
// revert data or an "execution reverted" message. Other errors pass through.
func revertError(err error) error {
	var dataErr gethrpc.DataError
	if errors.As(err, &dataErr) {
		if hexData, ok := dataErr.ErrorData().(string); ok {
			if data, decErr := hexutil.Decode(hexData); decErr == nil {
				if reason, unpackErr := abi.UnpackRevert(data); unpackErr == nil {
					return &chainerrors.RevertError{Reason: reason, Err: err}
				}
			}
		}
	}
	msg := err.Error()
	if i := strings.Index(msg, "execution reverted"); i >= 0 {
		reason := strings.TrimSpace(strings.TrimPrefix(msg[i+len("execution reverted"):], ":"))
		return &chainerrors.RevertError{Reason: reason, Err: err}
	}
	return err
}
