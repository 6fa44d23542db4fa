package api

import (
	"contract-orchestrator/internal/models"
	"contract-orchestrator/internal/split"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

type releaseRequest struct {
	Shares []models.RevenueShare `json:"shares"`
}

type previewRequest struct {
	Amount json.Number           `json:"amount" binding:"required"`
	Shares []models.RevenueShare `json:"shares"`
}

func (s *Server) paymentsRoutes(r *gin.RouterGroup) {
	r.POST("/deposit", s.paymentsDeposit)
	r.GET("/balance", s.paymentsBalance)
	r.GET("/account-balance/:address", s.accountBalance)
	r.POST("/release", s.paymentsRelease)
	r.POST("/preview", s.paymentsPreview)
}

func (s *Server) paymentsDeposit(c *gin.Context) {
	var req amountRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	amount, err := parseEther("amount", req.Amount)
	if err != nil {
		s.fail(c, err)
		return
	}
	opts, err := callOptions(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	hash, err := s.svc.Payments.Deposit(c.Request.Context(), amount, opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Deposit successful", "hash": hash.Hex()})
}

func (s *Server) paymentsBalance(c *gin.Context) {
	balance, err := s.svc.Payments.Balance(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, balanceBody(balance))
}

func (s *Server) accountBalance(c *gin.Context) {
	addr, err := pathAddress(c, "address")
	if err != nil {
		s.fail(c, err)
		return
	}
	balance, err := s.svc.Payments.AccountBalance(c.Request.Context(), addr)
	if err != nil {
		s.fail(c, err)
		return
	}
	body := balanceBody(balance)
	body["address"] = addr.String()
	body["checksum"] = addr.Hex()
	c.JSON(http.StatusOK, body)
}

func (s *Server) paymentsRelease(c *gin.Context) {
	var req releaseRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	opts, err := callOptions(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	hash, err := s.svc.Payments.Release(c.Request.Context(), req.Shares, opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Payments released", "hash": hash.Hex()})
}

// paymentsPreview shows how an ether amount would divide, without a chain call
func (s *Server) paymentsPreview(c *gin.Context) {
	var req previewRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	total, err := parseEther("amount", req.Amount)
	if err != nil {
		s.fail(c, err)
		return
	}
	allocations, err := split.Allocate(total, req.Shares)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "total": total.String(), "allocations": allocations})
}
