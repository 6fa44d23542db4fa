package models

import (
	"encoding/json"
	"math/big"
	"testing"
)

func TestAddressKeyIsCaseInsensitive(t *testing.T) {
	upper := MustParseAddress("0x59427DE366B815334d95267cE7968846Aa5Aa200")
	lower := MustParseAddress("0x59427de366b815334d95267ce7968846aa5aa200")

	if !upper.Equal(lower) {
		t.Fatal("addresses differing only in case should be equal")
	}
	if upper.Key() != lower.Key() {
		t.Fatalf("keys differ: %s vs %s", upper.Key(), lower.Key())
	}
	if upper.String() != "0x59427DE366B815334d95267cE7968846Aa5Aa200" {
		t.Fatalf("original casing lost: %s", upper.String())
	}
}

func TestParseAddressRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "0x1234", "hello", "0x59427DE366B815334d95267cE7968846Aa5Aa2000"} {
		if _, err := ParseAddress(s); err == nil {
			t.Errorf("ParseAddress(%q) should fail", s)
		}
	}
}

func TestAddressJSON(t *testing.T) {
	var share RevenueShare
	if err := json.Unmarshal([]byte(`{"payee":"0x3bB94F092f247A37DA1832D802Ae2CC2cA8d4526","percentage":80}`), &share); err != nil {
		t.Fatal(err)
	}
	if share.Percentage != 80 || share.Payee.String() != "0x3bB94F092f247A37DA1832D802Ae2CC2cA8d4526" {
		t.Fatalf("unexpected share %+v", share)
	}
	if err := json.Unmarshal([]byte(`{"payee":"0x12"}`), &share); err == nil {
		t.Fatal("expected error for malformed payee")
	}
}

func TestTokenIDZeroIsNotUnknown(t *testing.T) {
	zero := NewTokenID(big.NewInt(0))
	if !zero.Known() {
		t.Fatal("minted id 0 must be known")
	}
	if UnknownTokenID.Known() {
		t.Fatal("unknown id must not be known")
	}
	if NewTokenID(nil).Known() {
		t.Fatal("nil id must be unknown")
	}

	b, _ := json.Marshal(UnknownTokenID)
	if string(b) != "null" {
		t.Fatalf("unknown id marshalled as %s", b)
	}
	b, _ = json.Marshal(zero)
	if string(b) != `"0"` {
		t.Fatalf("zero id marshalled as %s", b)
	}
}

func TestNewRequestCopiesArgs(t *testing.T) {
	args := []any{"a", "b"}
	req := NewRequest(Wallet, "submitTransaction", args...)
	args[0] = "mutated"
	if req.Args[0] != "a" {
		t.Fatal("request args must not alias caller slice")
	}
	if req.Operation() != "wallet.submitTransaction" {
		t.Fatalf("unexpected operation %s", req.Operation())
	}

	value := big.NewInt(5)
	withValue := req.WithValue(value)
	value.SetInt64(9)
	if withValue.Value.Int64() != 5 {
		t.Fatal("request value must not alias caller big.Int")
	}
	if req.Value != nil {
		t.Fatal("WithValue must not modify the receiver")
	}
}
