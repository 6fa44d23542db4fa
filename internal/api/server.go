// Package api exposes the contract services over HTTP.
package api

import (
	"context"
	"contract-orchestrator/internal/config"
	"contract-orchestrator/internal/database"
	"contract-orchestrator/internal/health"
	"contract-orchestrator/internal/marketplace"
	"contract-orchestrator/internal/metrics"
	"contract-orchestrator/internal/models"
	"contract-orchestrator/internal/nft"
	"contract-orchestrator/internal/split"
	"contract-orchestrator/internal/wallet"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// OperationLister reads the confirmed operations ledger
type OperationLister interface {
	ListOperations(ctx context.Context, contract models.ContractName, limit, offset int) ([]database.Operation, error)
}

// Services are the handlers' collaborators. Nil services have no routes.
type Services struct {
	Wallet   *wallet.Tracker
	Payments *split.Coordinator
	Products *marketplace.Service
	NFT      *nft.Service
	Ledger   OperationLister
	Health   *health.Checker
}

type Server struct {
	engine  *gin.Engine
	cfg     config.HTTPConfig
	logger  *zerolog.Logger
	metrics *metrics.Metrics
	svc     Services
}

func NewServer(cfg config.HTTPConfig, svc Services, m *metrics.Metrics, gatherer prometheus.Gatherer, logger *zerolog.Logger) *Server {
	engine := gin.New()
	s := &Server{engine: engine, cfg: cfg, logger: logger, metrics: m, svc: svc}

	engine.Use(gin.Recovery(), requestID(), s.accessLog(), s.observe())

	if svc.Health != nil {
		engine.GET("/health", gin.WrapF(svc.Health.LivenessHandler))
		engine.GET("/ready", gin.WrapF(svc.Health.ReadinessHandler))
	}
	if gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	if svc.Wallet != nil {
		s.walletRoutes(engine.Group("/wallet"))
	}
	if svc.Payments != nil {
		s.paymentsRoutes(engine.Group("/payments"))
	}
	if svc.Products != nil {
		s.productRoutes(engine.Group("/product"))
	}
	if svc.NFT != nil {
		s.nftRoutes(engine.Group("/nft"))
	}
	if svc.Ledger != nil {
		engine.GET("/operations", s.listOperations)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.logger.Info().Msg("Shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}
