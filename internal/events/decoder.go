// Package events recovers domain values from receipt logs and decorates
// event emitters.
package events

import (
	"contract-orchestrator/internal/chainerrors"
	"contract-orchestrator/internal/models"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// TransferSignature is keccak256("Transfer(address,address,uint256)")
var TransferSignature = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// tokenIDTopic is the topic holding the indexed tokenId of an ERC-721 Transfer
const tokenIDTopic = 3

// FindLog returns the first log, in emission order, whose first topic is signature.
func FindLog(receipt *models.Receipt, signature common.Hash) (*models.Log, bool) {
	if receipt == nil {
		return nil, false
	}
	for i := range receipt.Logs {
		l := &receipt.Logs[i]
		if len(l.Topics) > 0 && l.Topics[0] == signature {
			return l, true
		}
	}
	return nil, false
}

// DecodeTopic parses Topics[topicIndex] of the first log matching signature
// as a big-endian unsigned integer. Absence is reported with false, never
// with a zero value.
func DecodeTopic(receipt *models.Receipt, signature common.Hash, topicIndex int) (*big.Int, bool) {
	l, ok := FindLog(receipt, signature)
	if !ok || topicIndex < 0 || topicIndex >= len(l.Topics) {
		return nil, false
	}
	return new(big.Int).SetBytes(l.Topics[topicIndex].Bytes()), true
}

// DecodeTokenID recovers the id minted by receipt, or models.UnknownTokenID.
func DecodeTokenID(receipt *models.Receipt) models.TokenID {
	id, ok := DecodeTopic(receipt, TransferSignature, tokenIDTopic)
	if !ok {
		return models.UnknownTokenID
	}
	return models.NewTokenID(id)
}

// UnpackEvent decodes the non-indexed fields of the first eventName log into out.
func UnpackEvent(receipt *models.Receipt, contractABI abi.ABI, eventName string, out any) error {
	event, ok := contractABI.Events[eventName]
	if !ok {
		return fmt.Errorf("event %s not in ABI", eventName)
	}
	l, ok := FindLog(receipt, event.ID)
	if !ok {
		return &chainerrors.Error{Op: "unpack " + eventName, Kind: chainerrors.ErrNotFound, Reason: "no matching log"}
	}
	if err := contractABI.UnpackIntoInterface(out, eventName, l.Data); err != nil {
		return fmt.Errorf("failed to unpack %s: %w", eventName, err)
	}
	return nil
}
