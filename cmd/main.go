package main

import (
	"contract-orchestrator/internal/logger"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "orchestrator",
	Short: "Contract orchestrator for the wallet, payments, product and NFT contracts",
	Long: `orchestrator drives a fixed set of deployed contracts through one signer:
a multi-signature wallet, a revenue-split payments contract, a product
marketplace and an NFT contract.

Configuration comes from the environment or a .env file in the working
directory.`,
	SilenceUsage: true,
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			logger.GetLogger().Error().Interface("panic", r).Msg("Application panicked")
			os.Exit(2)
		}
	}()

	rootCmd.AddCommand(serveCmd(), mintCmd(), ownersCmd(), balanceCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
