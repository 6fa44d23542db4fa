package main

import (
	"contract-orchestrator/internal/logger"
	"contract-orchestrator/internal/models"
	"contract-orchestrator/internal/nft"
	"contract-orchestrator/internal/units"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func mintCmd() *cobra.Command {
	var to, uri, key string
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint one NFT with the given token URI",
		RunE: func(cmd *cobra.Command, _ []string) error {
			recipient, err := models.ParseAddress(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			ctx, stop := signalContext(cmd)
			defer stop()

			a, err := setup(ctx, false)
			if err != nil {
				return err
			}
			defer a.close()
			service, err := a.nftService()
			if err != nil {
				return err
			}

			if key == "" {
				key = uuid.New().String()
			}
			result, err := service.Mint(ctx, recipient, uri, models.CallOptions{IdempotencyKey: key})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tx:       %s\ntoken id: %s\n", result.TxHash.Hex(), result.TokenID)
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "recipient address")
	cmd.Flags().StringVar(&uri, "uri", "", "token metadata URI")
	cmd.Flags().StringVar(&key, "idempotency-key", "", "reuse a key to make a retried mint safe")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("uri")
	return cmd
}

func ownersCmd() *cobra.Command {
	var from, to uint64
	var teamFlags []string
	cmd := &cobra.Command{
		Use:   "owners",
		Short: "Count which team holds each token in a range",
		Example: `  orchestrator owners --from 0 --to 99 \
    --team red=0x3bB94F092f247A37DA1832D802Ae2CC2cA8d4526 \
    --team blue=0x8ba1f109551bD432803012645Ac136ddd64DBA72`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			teams, err := parseTeams(teamFlags)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd)
			defer stop()

			a, err := setup(ctx, false)
			if err != nil {
				return err
			}
			defer a.close()
			service := nft.NewService(a.gateway, nil, models.Address{}, logger.Component("nft"))

			report, err := service.Census(ctx, from, to, teams)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TEAM\tADDRESS\tTOKENS")
			for _, t := range report.Teams {
				fmt.Fprintf(w, "%s\t%s\t%d\n", t.Name, t.Address, len(t.Tokens))
			}
			fmt.Fprintf(w, "unassigned\t\t%d\n", len(report.Unassigned))
			return w.Flush()
		},
	}
	cmd.Flags().Uint64Var(&from, "from", 0, "first token id")
	cmd.Flags().Uint64Var(&to, "to", 0, "last token id, inclusive")
	cmd.Flags().StringArrayVar(&teamFlags, "team", nil, "team as name=address, repeatable")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func parseTeams(flags []string) ([]nft.Team, error) {
	teams := make([]nft.Team, 0, len(flags))
	for _, f := range flags {
		name, addr, ok := strings.Cut(f, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("--team %q: expected name=address", f)
		}
		parsed, err := models.ParseAddress(addr)
		if err != nil {
			return nil, fmt.Errorf("--team %s: %w", name, err)
		}
		teams = append(teams, nft.Team{Name: name, Address: parsed})
	}
	if len(teams) == 0 {
		return nil, errors.New("at least one --team is required")
	}
	return teams, nil
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance [address]",
		Short: "Show the balance of an account, or of the signer and every configured contract",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			a, err := setup(ctx, false)
			if err != nil {
				return err
			}
			defer a.close()

			type row struct {
				label   string
				address models.Address
			}
			var rows []row
			if len(args) == 1 {
				addr, err := models.ParseAddress(args[0])
				if err != nil {
					return err
				}
				rows = append(rows, row{"account", addr})
			} else {
				rows = append(rows, row{"signer", models.AddressFromCommon(a.gateway.Sender())})
				for _, name := range models.AllContracts {
					if c, err := a.registry.Get(name); err == nil {
						rows = append(rows, row{name.String(), models.AddressFromCommon(c.Address)})
					}
				}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tADDRESS\tBALANCE (ETH)")
			for _, r := range rows {
				balance, err := a.gateway.Balance(ctx, r.address.Common())
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.label, r.address.Hex(), units.FormatEther(balance))
			}
			return w.Flush()
		},
	}
}
