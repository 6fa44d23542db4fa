package models

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenID is an NFT id recovered from a receipt. The zero value is
// UnknownTokenID, which is distinct from a minted id of 0.
type TokenID struct {
	value *big.Int
}

var UnknownTokenID = TokenID{}

func NewTokenID(v *big.Int) TokenID {
	if v == nil {
		return UnknownTokenID
	}
	return TokenID{value: new(big.Int).Set(v)}
}

func (t TokenID) Known() bool {
	return t.value != nil
}

// Int returns a copy of the id, or nil when unknown.
func (t TokenID) Int() *big.Int {
	if t.value == nil {
		return nil
	}
	return new(big.Int).Set(t.value)
}

func (t TokenID) String() string {
	if t.value == nil {
		return "unknown"
	}
	return t.value.String()
}

func (t TokenID) MarshalJSON() ([]byte, error) {
	if t.value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(t.value.String())
}

type MintResult struct {
	TxHash  common.Hash `json:"hash"`
	TokenID TokenID     `json:"tokenId"`
}
