package validation

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// ErrInvalid marks input rejected before any chain call
var ErrInvalid = errors.New("invalid input")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

var (
	addressRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	txHashRegex  = regexp.MustCompile(`^0x[a-fA-F0-9]{64}$`)
	hexKeyRegex  = regexp.MustCompile(`^(0x)?[a-fA-F0-9]{64}$`)
	urlRegex     = regexp.MustCompile(`^https?://[^\s/$.?#].[^\s]*$`)
)

// ValidateAddress validates an EVM address format
func ValidateAddress(address string) error {
	if address == "" {
		return invalid("address cannot be empty")
	}
	if !addressRegex.MatchString(address) {
		return invalid("malformed address %s", address)
	}
	return nil
}

// ValidateAmount validates that a wei amount is positive
func ValidateAmount(amount *big.Int) error {
	if amount == nil {
		return invalid("amount cannot be nil")
	}
	if amount.Sign() <= 0 {
		return invalid("amount must be positive")
	}
	return nil
}

// ValidateTxHash validates transaction hash format
func ValidateTxHash(txHash string) error {
	if txHash == "" {
		return invalid("transaction hash cannot be empty")
	}
	if !txHashRegex.MatchString(txHash) {
		return invalid("malformed transaction hash")
	}
	return nil
}

// ValidatePrivateKey checks a hex encoded secp256k1 key without logging it
func ValidatePrivateKey(key string) error {
	if key == "" {
		return invalid("private key cannot be empty")
	}
	if !hexKeyRegex.MatchString(strings.TrimSpace(key)) {
		return invalid("private key must be 32 hex encoded bytes")
	}
	return nil
}

// ValidateURL validates URL format
func ValidateURL(url string) error {
	if url == "" {
		return invalid("URL cannot be empty")
	}
	if !urlRegex.MatchString(url) {
		return invalid("malformed URL")
	}
	return nil
}
