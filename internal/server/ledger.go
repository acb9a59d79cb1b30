package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/smallbiznis/pizzaledger/internal/ledger/domain"
	"go.uber.org/zap"
)

const resetConfirmation = "DELETE"

func (s *Server) RecordSale(c *gin.Context) {
	var req ledgerdomain.SaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.MenuItemID = strings.TrimSpace(req.MenuItemID)

	resp, err := s.ledgerSvc.RecordSale(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) RecordExpense(c *gin.Context) {
	var req ledgerdomain.ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ledgerSvc.RecordExpense(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListTransactions(c *gin.Context) {
	var query ledgerdomain.ListTransactionsRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	query.Type = strings.TrimSpace(query.Type)
	query.Category = strings.TrimSpace(query.Category)

	items, pageInfo, err := s.ledgerSvc.ListTransactions(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items, "page_info": pageInfo})
}

func (s *Server) GetTransaction(c *gin.Context) {
	resp, err := s.ledgerSvc.GetTransaction(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateTransaction(c *gin.Context) {
	var req ledgerdomain.ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ledgerSvc.UpdateTransaction(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteTransaction(c *gin.Context) {
	resp, err := s.ledgerSvc.DeleteTransaction(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type resetRequest struct {
	Confirm string `json:"confirm"`
}

func (s *Server) ResetAllData(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Confirm) != resetConfirmation {
		AbortWithError(c, newValidationError("confirm", "invalid_confirm", `confirm must be "DELETE"`))
		return
	}

	if err := s.ledgerSvc.ResetAllData(c.Request.Context()); err != nil {
		AbortWithError(c, err)
		return
	}

	s.log.Warn("ledger data reset", zap.String("client_ip", c.ClientIP()))
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"reset": true}})
}

func (s *Server) CheckIntegrity(c *gin.Context) {
	resp, err := s.ledgerSvc.CheckIntegrity(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
