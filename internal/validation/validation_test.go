package validation

import (
	"errors"
	"math/big"
	"testing"
)

func TestValidateAddress(t *testing.T) {
	valid := []string{
		"0x59427DE366B815334d95267cE7968846Aa5Aa200",
		"0x3bb94f092f247a37da1832d802ae2cc2ca8d4526",
	}
	for _, addr := range valid {
		if err := ValidateAddress(addr); err != nil {
			t.Errorf("ValidateAddress(%q) = %v, want nil", addr, err)
		}
	}

	invalid := []string{"", "0x123", "59427DE366B815334d95267cE7968846Aa5Aa200", "0xZZ427DE366B815334d95267cE7968846Aa5Aa200"}
	for _, addr := range invalid {
		if err := ValidateAddress(addr); err == nil {
			t.Errorf("ValidateAddress(%q) = nil, want error", addr)
		}
	}
}

func TestValidateAmount(t *testing.T) {
	if err := ValidateAmount(nil); err == nil {
		t.Error("expected error for nil amount")
	}
	if err := ValidateAmount(big.NewInt(0)); err == nil {
		t.Error("expected error for zero amount")
	}
	if err := ValidateAmount(big.NewInt(1)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateTxHash(t *testing.T) {
	good := "0x" + "ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12"
	if err := ValidateTxHash(good); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateTxHash(good[:40]); err == nil {
		t.Error("expected error for short hash")
	}
}

func TestValidatePrivateKey(t *testing.T) {
	key := "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	if err := ValidatePrivateKey(key); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidatePrivateKey("0x" + key); err != nil {
		t.Errorf("unexpected error with prefix: %v", err)
	}
	if err := ValidatePrivateKey("abc"); err == nil {
		t.Error("expected error for short key")
	}
}

func TestValidateURL(t *testing.T) {
	if err := ValidateURL("https://eth-sepolia.example.com/v2/key"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateURL("ftp://x"); err == nil {
		t.Error("expected error for non-http URL")
	}
}

func TestErrorsWrapErrInvalid(t *testing.T) {
	errs := []error{
		ValidateAddress("0x1"),
		ValidateAmount(big.NewInt(-1)),
		ValidateTxHash(""),
		ValidatePrivateKey("zz"),
		ValidateURL("ftp://x"),
	}
	for _, err := range errs {
		if !errors.Is(err, ErrInvalid) {
			t.Errorf("%v does not wrap ErrInvalid", err)
		}
	}
}
