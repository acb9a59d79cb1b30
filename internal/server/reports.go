package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/pizzaledger/internal/providers/pdf"
	reportingdomain "github.com/smallbiznis/pizzaledger/internal/reporting/domain"
)

func bindPeriod(c *gin.Context) (reportingdomain.PeriodRequest, bool) {
	var query reportingdomain.PeriodRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return query, false
	}
	query.From = strings.TrimSpace(query.From)
	query.To = strings.TrimSpace(query.To)
	return query, true
}

func (s *Server) ProfitAndLoss(c *gin.Context) {
	period, ok := bindPeriod(c)
	if !ok {
		return
	}

	resp, err := s.reportingSvc.ProfitAndLoss(c.Request.Context(), period)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ProfitAndLossPDF(c *gin.Context) {
	period, ok := bindPeriod(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	report, err := s.reportingSvc.ProfitAndLoss(ctx, period)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	now := s.clock.Now()
	reader, err := s.pdfProvider.GenerateProfitAndLoss(ctx, pdf.NewProfitAndLossData(s.cfg.AppName, report, now))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filename := fmt.Sprintf("profit-and-loss-%s.pdf", now.UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", body)
}

func (s *Server) Profitability(c *gin.Context) {
	period, ok := bindPeriod(c)
	if !ok {
		return
	}

	resp, err := s.reportingSvc.Profitability(c.Request.Context(), period)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) InventoryStatus(c *gin.Context) {
	resp, err := s.reportingSvc.InventoryStatus(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
