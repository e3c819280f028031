package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"quizsync/internal/preflight"
	"quizsync/internal/services"
	"quizsync/internal/services/crm"
	"quizsync/internal/services/sheets"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Verify directories, ledger access, and CRM credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var deps preflight.Deps
			if cfg.Ledger.AccessToken != "" {
				ledger, err := sheets.New(cfg, services.StaticToken(cfg.Ledger.AccessToken))
				if err != nil {
					return err
				}
				deps.Ledger = ledger
			}
			if cfg.CRM.AccessToken != "" {
				directory, err := crm.New(cfg, services.StaticToken(cfg.CRM.AccessToken))
				if err != nil {
					return err
				}
				deps.CRM = directory
			}

			results := preflight.RunAll(cmd.Context(), cfg, deps)

			rows := make([][]string, 0, len(results))
			failed := 0
			for _, result := range results {
				state := "PASS"
				if !result.Passed {
					state = "FAIL"
					failed++
				}
				rows = append(rows, []string{result.Name, state, result.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Check", "Result", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))

			if failed > 0 {
				return fmt.Errorf("%d preflight check(s) failed", failed)
			}
			return nil
		},
	}
}
