package main

import (
	"context"
	"contract-orchestrator/internal/api"
	"contract-orchestrator/internal/health"
	"contract-orchestrator/internal/interfaces"
	"contract-orchestrator/internal/logger"
	"contract-orchestrator/internal/marketplace"
	"contract-orchestrator/internal/models"
	"contract-orchestrator/internal/nft"
	"contract-orchestrator/internal/pinning"
	"contract-orchestrator/internal/split"
	"contract-orchestrator/internal/wallet"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var healthInterval time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			a, err := setup(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			svc, err := a.services()
			if err != nil {
				return err
			}
			svc.Health = health.NewChecker(a.cfg.Chain.ChainID, logger.Component("health"))
			svc.Health.Watch(ctx, a.gateway, healthInterval)
			svc.Health.SetReady(true)

			server := api.NewServer(a.cfg.HTTP, svc, a.metrics, a.prom, logger.Component("api"))
			return server.Run(ctx)
		},
	}
	cmd.Flags().DurationVar(&healthInterval, "health-interval", 15*time.Second, "how often the node head block is polled")
	return cmd
}

// services builds a service for every contract with a configured address
func (a *app) services() (api.Services, error) {
	var svc api.Services
	if a.registry.Has(models.Wallet) {
		svc.Wallet = wallet.NewTracker(a.gateway, logger.Component("wallet"))
	}
	if a.registry.Has(models.Payments) {
		svc.Payments = split.NewCoordinator(a.gateway, logger.Component("payments"))
	}
	if a.registry.Has(models.Product) {
		shares, err := a.cfg.Contracts.Shares()
		if err != nil {
			return svc, err
		}
		svc.Products = marketplace.NewService(a.gateway, logger.Component("marketplace"), marketplace.WithShares(shares))
	}
	if a.registry.Has(models.NFT) {
		n, err := a.nftService()
		if err != nil {
			return svc, err
		}
		svc.NFT = n
	}
	if a.ledger != nil {
		svc.Ledger = a.ledger
	}
	return svc, nil
}

func (a *app) nftService() (*nft.Service, error) {
	recipient, err := a.recipient()
	if err != nil {
		return nil, err
	}
	var assets interfaces.AssetStore
	if a.cfg.Pinata.ApiKey != "" {
		pinata, err := pinning.NewPinata(a.cfg.Pinata, logger.Component("pinata"))
		if err != nil {
			return nil, err
		}
		assets = pinata
	} else {
		a.logger.Warn().Msg("PINATA_API_KEY not set, nft create is disabled")
	}
	return nft.NewService(a.gateway, assets, recipient, logger.Component("nft")), nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
