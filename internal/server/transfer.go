package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxImportBytes = 32 << 20

func (s *Server) Export(c *gin.Context) {
	doc, err := s.transferSvc.Export(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filename := fmt.Sprintf("ledger-export-%s.json", doc.ExportedAt.Format("20060102T150405Z"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.JSON(http.StatusOK, doc)
}

func (s *Server) ExportTransactionsCSV(c *gin.Context) {
	var buf bytes.Buffer
	if err := s.transferSvc.WriteTransactionsCSV(c.Request.Context(), &buf); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="transactions.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (s *Server) ArchiveExport(c *gin.Context) {
	resp, err := s.transferSvc.Archive(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) Import(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			AbortWithError(c, newValidationError("request", "too_large", "import document is too large"))
			return
		}
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.transferSvc.Import(c.Request.Context(), body)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.log.Info("ledger import applied", zap.Any("replaced", resp.Replaced))
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
