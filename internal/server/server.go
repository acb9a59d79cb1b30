package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/pizzaledger/internal/clock"
	"github.com/smallbiznis/pizzaledger/internal/config"
	ledgerdomain "github.com/smallbiznis/pizzaledger/internal/ledger/domain"
	"github.com/smallbiznis/pizzaledger/internal/ledgerstore"
	"github.com/smallbiznis/pizzaledger/internal/observability"
	obsmiddleware "github.com/smallbiznis/pizzaledger/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/pizzaledger/internal/observability/metrics"
	obstracing "github.com/smallbiznis/pizzaledger/internal/observability/tracing"
	"github.com/smallbiznis/pizzaledger/internal/providers/pdf"
	"github.com/smallbiznis/pizzaledger/internal/ratelimit"
	reportingdomain "github.com/smallbiznis/pizzaledger/internal/reporting/domain"
	"github.com/smallbiznis/pizzaledger/internal/transfer"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	clock        clock.Clock
	store        *ledgerstore.Store
	ledgerSvc    ledgerdomain.Service
	reportingSvc reportingdomain.Service
	transferSvc  *transfer.Service
	pdfProvider  pdf.Provider
	guard        *ratelimit.Guard
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	Clock        clock.Clock `optional:"true"`
	Store        *ledgerstore.Store
	LedgerSvc    ledgerdomain.Service
	ReportingSvc reportingdomain.Service
	TransferSvc  *transfer.Service
	PDFProvider  pdf.Provider     `optional:"true"`
	Guard        *ratelimit.Guard `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	pdfProvider := p.PDFProvider
	if pdfProvider == nil {
		pdfProvider = pdf.New()
	}
	return &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("http"),
		clock:        clk,
		store:        p.Store,
		ledgerSvc:    p.LedgerSvc,
		reportingSvc: p.ReportingSvc,
		transferSvc:  p.TransferSvc,
		pdfProvider:  pdfProvider,
		guard:        p.Guard,
	}
}

func (s *Server) RegisterRoutes() {
	s.engine.GET("/health", s.Health)

	api := s.engine.Group("/api", s.MutationRateLimit())

	api.POST("/sales", s.RecordSale)
	api.POST("/expenses", s.RecordExpense)

	api.GET("/transactions", s.ListTransactions)
	api.GET("/transactions/:id", s.GetTransaction)
	api.PATCH("/transactions/:id", s.UpdateTransaction)
	api.DELETE("/transactions/:id", s.DeleteTransaction)

	api.GET("/inventory", s.ListInventory)
	api.POST("/inventory", s.RecordInventoryPurchase)
	api.PUT("/inventory/:id", s.UpdateInventoryItem)
	api.DELETE("/inventory/:id", s.DeleteInventoryItem)

	api.GET("/payroll", s.ListPayroll)
	api.POST("/payroll", s.RecordPayroll)
	api.PUT("/payroll/:id", s.UpdatePayrollEntry)
	api.DELETE("/payroll/:id", s.DeletePayrollEntry)

	api.GET("/menu-items", s.ListMenuItems)
	api.POST("/menu-items", s.CreateMenuItem)
	api.PUT("/menu-items/:id", s.UpdateMenuItem)
	api.DELETE("/menu-items/:id", s.DeleteMenuItem)

	api.GET("/customizations", s.ListCustomizations)
	api.POST("/customizations", s.CreateCustomization)
	api.PUT("/customizations/:id", s.UpdateCustomization)
	api.DELETE("/customizations/:id", s.DeleteCustomization)

	api.POST("/reset", s.BulkOperationLock(), s.ResetAllData)
	api.GET("/integrity", s.CheckIntegrity)

	reports := api.Group("/reports")
	reports.GET("/pnl", s.ProfitAndLoss)
	reports.GET("/pnl.pdf", s.ProfitAndLossPDF)
	reports.GET("/profitability", s.Profitability)
	reports.GET("/inventory", s.InventoryStatus)

	api.GET("/export", s.Export)
	api.GET("/export/transactions.csv", s.ExportTransactionsCSV)
	api.POST("/export/archive", s.ArchiveExport)
	api.POST("/import", s.BulkOperationLock(), s.Import)

	api.GET("/live/:collection", s.StreamLiveCollection)
}

func (s *Server) Health(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "store": "not_connected"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "store": "connected"})
}
