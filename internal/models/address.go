package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// Address is an EVM account address. Lookups go through Key, which is
// case-insensitive, while String keeps the casing the caller supplied.
type Address struct {
	original string
	value    common.Address
}

// ParseAddress validates s and returns the parsed address.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if !addressPattern.MatchString(s) {
		return Address{}, fmt.Errorf("invalid address %q", s)
	}
	return Address{original: s, value: common.HexToAddress(s)}, nil
}

// MustParseAddress is ParseAddress for constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromCommon wraps an address decoded from chain data.
func AddressFromCommon(a common.Address) Address {
	return Address{original: a.Hex(), value: a}
}

func (a Address) Common() common.Address {
	return a.value
}

// Key is the canonical lower-case form used for equality and map keys.
func (a Address) Key() string {
	return strings.ToLower(a.value.Hex())
}

// Hex returns the EIP-55 checksummed form.
func (a Address) Hex() string {
	return a.value.Hex()
}

func (a Address) String() string {
	if a.original == "" {
		return a.value.Hex()
	}
	return a.original
}

func (a Address) IsZero() bool {
	return a.value == (common.Address{})
}

func (a Address) Equal(other Address) bool {
	return a.value == other.value
}

func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
