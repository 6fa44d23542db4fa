package api

import (
	"contract-orchestrator/internal/chainerrors"
	"contract-orchestrator/internal/models"
	"contract-orchestrator/internal/units"
	"contract-orchestrator/internal/validation"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// statusFor maps the error taxonomy onto HTTP statuses
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, validation.ErrInvalid):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, chainerrors.ErrInvalidSplit):
		return http.StatusBadRequest, "invalid_split"
	case errors.Is(err, chainerrors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, chainerrors.ErrDuplicateSubmission):
		return http.StatusConflict, "duplicate_submission"
	case errors.Is(err, chainerrors.ErrChainCallFailed):
		return http.StatusUnprocessableEntity, "chain_call_failed"
	case errors.Is(err, chainerrors.ErrChainReadFailed):
		return http.StatusBadGateway, "chain_read_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status, kind := statusFor(err)
	body := gin.H{"success": false, "error": kind, "message": err.Error()}

	var chainErr *chainerrors.Error
	if errors.As(err, &chainErr) {
		if chainErr.Reason != "" {
			body["reason"] = chainErr.Reason
		}
		if chainErr.TxHash != "" {
			body["hash"] = chainErr.TxHash
		}
	}
	c.JSON(status, body)
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{validation.ErrInvalid}, args...)...)
}

func (s *Server) confirmed(c *gin.Context, message string, receipt *models.Receipt, extra gin.H) {
	body := gin.H{"success": true, "message": message}
	if receipt != nil {
		body["hash"] = receipt.TxHash.Hex()
		body["blockNumber"] = receipt.BlockNumber
	}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

func balanceBody(wei *big.Int) gin.H {
	return gin.H{"success": true, "balance": wei.String(), "balanceEth": units.ToEther(wei)}
}

// callOptions reads the optional sender and idempotency key headers. A
// request without a key gets a fresh one, echoed back to the client.
func callOptions(c *gin.Context) (models.CallOptions, error) {
	var opts models.CallOptions
	if sender := c.GetHeader(senderHeader); sender != "" {
		addr, err := models.ParseAddress(sender)
		if err != nil {
			return opts, badRequest("%s header: %v", senderHeader, err)
		}
		opts.Sender = &addr
	}
	opts.IdempotencyKey = c.GetHeader(idempotencyKeyHeader)
	if opts.IdempotencyKey == "" {
		opts.IdempotencyKey = uuid.New().String()
	}
	c.Header(idempotencyKeyHeader, opts.IdempotencyKey)
	return opts, nil
}

// parseEther reads a decimal ether amount that must be positive
func parseEther(field string, n json.Number) (*big.Int, error) {
	wei, err := units.ParseEther(n.String())
	if err != nil {
		return nil, badRequest("%s: %v", field, err)
	}
	if err := validation.ValidateAmount(wei); err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return wei, nil
}

func pathID(c *gin.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, badRequest("%s must be a non-negative integer", name)
	}
	return id, nil
}

func pathAddress(c *gin.Context, name string) (models.Address, error) {
	addr, err := models.ParseAddress(c.Param(name))
	if err != nil {
		return models.Address{}, badRequest("%s: %v", name, err)
	}
	return addr, nil
}

func bind(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return badRequest("%v", err)
	}
	return nil
}
