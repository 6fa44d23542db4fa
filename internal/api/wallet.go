package api

import (
	"context"
	"contract-orchestrator/internal/models"
	"contract-orchestrator/internal/wallet"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

type amountRequest struct {
	Amount json.Number `json:"amount" binding:"required"`
}

type submitRequest struct {
	To     models.Address `json:"to"`
	Amount json.Number    `json:"amount" binding:"required"`
}

type transactionIDRequest struct {
	TransactionID *uint64 `json:"transactionId" binding:"required"`
}

func (s *Server) walletRoutes(r *gin.RouterGroup) {
	r.POST("/deposit", s.walletDeposit)
	r.POST("/submit", s.walletSubmit)
	r.POST("/approve", s.walletApprove)
	r.POST("/execute", s.walletExecute)
	r.POST("/release", s.walletRelease)
	r.GET("/transactions", s.walletTransactions)
	r.GET("/transactions/:txId", s.walletTransaction)
	r.GET("/transactions/:txId/approvers", s.walletApprovers)
	r.GET("/balance", s.walletBalance)
}

func (s *Server) walletDeposit(c *gin.Context) {
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
	receipt, err := s.svc.Wallet.Deposit(c.Request.Context(), amount, opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.confirmed(c, "Deposit successful", receipt, nil)
}

func (s *Server) walletSubmit(c *gin.Context) {
	var req submitRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	if req.To.IsZero() {
		s.fail(c, badRequest("to is required"))
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
	id, receipt, err := s.svc.Wallet.Submit(c.Request.Context(), req.To, amount, opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.confirmed(c, "Transaction submitted", receipt, gin.H{"transactionId": id})
}

func (s *Server) walletApprove(c *gin.Context) {
	s.walletTransition(c, "Transaction approved", s.svc.Wallet.Approve)
}

func (s *Server) walletExecute(c *gin.Context) {
	s.walletTransition(c, "Transaction executed", s.svc.Wallet.Execute)
}

func (s *Server) walletTransition(c *gin.Context, message string, step func(context.Context, uint64, models.CallOptions) (*models.Receipt, error)) {
	var req transactionIDRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	opts, err := callOptions(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	receipt, err := step(c.Request.Context(), *req.TransactionID, opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.confirmed(c, message, receipt, gin.H{"transactionId": *req.TransactionID})
}

func (s *Server) walletRelease(c *gin.Context) {
	opts, err := callOptions(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	receipt, err := s.svc.Wallet.ReleasePayments(c.Request.Context(), opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.confirmed(c, "Payments released to all payees", receipt, nil)
}

func (s *Server) walletTransactions(c *gin.Context) {
	txs, err := s.svc.Wallet.GetTransactions(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "transactions": txs})
}

func (s *Server) walletTransaction(c *gin.Context) {
	id, err := pathID(c, "txId")
	if err != nil {
		s.fail(c, err)
		return
	}
	tx, err := s.svc.Wallet.GetTransaction(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "transaction": tx})
}

// walletApprovers lists approvals in contract order, or by time with ?sort=time
func (s *Server) walletApprovers(c *gin.Context) {
	id, err := pathID(c, "txId")
	if err != nil {
		s.fail(c, err)
		return
	}
	approvals, err := s.svc.Wallet.GetApprovers(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if c.Query("sort") == "time" {
		approvals = wallet.SortApprovals(approvals)
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"txId":           id,
		"totalApprovals": len(approvals),
		"approvals":      approvals,
	})
}

func (s *Server) walletBalance(c *gin.Context) {
	balance, err := s.svc.Wallet.Balance(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, balanceBody(balance))
}
