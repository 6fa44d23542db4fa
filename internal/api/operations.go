package api

import (
	"contract-orchestrator/internal/models"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

func (s *Server) listOperations(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultPageSize)
	if err != nil {
		s.fail(c, err)
		return
	}
	if limit <= 0 || limit > maxPageSize {
		s.fail(c, badRequest("limit must be between 1 and %d", maxPageSize))
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		s.fail(c, err)
		return
	}
	if offset < 0 {
		s.fail(c, badRequest("offset must not be negative"))
		return
	}

	contract := models.ContractName(c.Query("contract"))
	if contract != "" && !knownContract(contract) {
		s.fail(c, badRequest("unknown contract %q", contract))
		return
	}

	ops, err := s.svc.Ledger.ListOperations(c.Request.Context(), contract, limit, offset)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "operations": ops, "limit": limit, "offset": offset})
}

func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("%s must be an integer", name)
	}
	return v, nil
}

func knownContract(name models.ContractName) bool {
	for _, c := range models.AllContracts {
		if c == name {
			return true
		}
	}
	return false
}
