package config

import (
	"contract-orchestrator/internal/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("SEPOLIA_URL", "https://sepolia.example.org")
	t.Setenv("SEPOLIA_PRIVATE_KEY", "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	t.Setenv("PRIVATE_KEYS", " a , ,b")
	t.Setenv("WALLET_CONTRACT_ADDRESS", "0x59427DE366B815334d95267cE7968846Aa5Aa200")
	t.Setenv("CONFIRMATIONS", "3")
	t.Setenv("RECEIPT_TIMEOUT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://sepolia.example.org", cfg.Chain.RpcEndpoint)
	assert.Equal(t, []string{"a", "b"}, cfg.Chain.ExtraKeys)
	assert.Equal(t, uint64(3), cfg.Chain.Confirmations)
	assert.Equal(t, 120*time.Second, cfg.Chain.ReceiptTimeout)
	assert.Equal(t, "0x59427DE366B815334d95267cE7968846Aa5Aa200", cfg.Contracts.Addresses[models.Wallet])
	assert.NoError(t, cfg.Validate())
}

func TestRPCURLTakesPrecedence(t *testing.T) {
	t.Setenv("SEPOLIA_URL", "https://sepolia.example.org")
	t.Setenv("RPC_URL", "http://localhost:8545")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8545", cfg.Chain.RpcEndpoint)
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := &Config{
		Chain:       ChainConfig{ChainID: 0},
		Idempotency: IdempotencyConfig{Backend: "etcd"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"RPC_URL", "PRIVATE_KEY", "CHAIN_ID", "CONFIRMATIONS", "etcd"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestProductShares(t *testing.T) {
	t.Setenv("PRODUCT_SHARES", "80, 20")
	cfg, err := Load()
	require.NoError(t, err)
	shares, err := cfg.Contracts.Shares()
	require.NoError(t, err)
	assert.Equal(t, []uint8{80, 20}, shares)

	cfg.Contracts.ProductShares = []string{"80", "abc"}
	_, err = cfg.Contracts.Shares()
	assert.ErrorContains(t, err, "PRODUCT_SHARES")

	cfg.Contracts.ProductShares = nil
	shares, err = cfg.Contracts.Shares()
	require.NoError(t, err)
	assert.Nil(t, shares)
}
