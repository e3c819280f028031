package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"quizsync/internal/attempts"
	"quizsync/internal/config"
	"quizsync/internal/extract"
	"quizsync/internal/journal"
	"quizsync/internal/logging"
	"quizsync/internal/pipeline"
	"quizsync/internal/resolve"
	"quizsync/internal/services"
	"quizsync/internal/services/crm"
	"quizsync/internal/services/rewards"
	"quizsync/internal/services/sheets"
	"quizsync/internal/staging"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync <workbook>...",
		Short: "Extract workbooks and sync new records to the ledger and CRM",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Ledger.AccessToken == "" {
				return errors.New("ledger access token missing; set ledger.access_token or SHEETS_ACCESS_TOKEN")
			}
			if cfg.CRM.AccessToken == "" {
				return errors.New("crm access token missing; set crm.access_token or CRM_ACCESS_TOKEN")
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			staging.CleanStale(cfg.Paths.StagingDir, staging.DefaultMaxAge, logger)
			staged, err := staging.Stage(cfg.Paths.StagingDir, args)
			if err != nil {
				return err
			}

			store, err := journal.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			orch, err := buildOrchestrator(cfg, store, logger)
			if err != nil {
				return err
			}

			result, err := orch.Run(cmd.Context(), staged)
			if err != nil {
				return err
			}
			printRunResult(cmd, result)
			return nil
		},
	}
	return cmd
}

func buildOrchestrator(cfg *config.Config, store *journal.Store, slogger *slog.Logger) (*pipeline.Orchestrator, error) {
	extractor, err := extract.New(cfg, slogger)
	if err != nil {
		return nil, err
	}
	ledger, err := sheets.New(cfg, services.StaticToken(cfg.Ledger.AccessToken), sheets.WithLogger(slogger))
	if err != nil {
		return nil, err
	}
	directory, err := crm.New(cfg, services.StaticToken(cfg.CRM.AccessToken), crm.WithLogger(slogger))
	if err != nil {
		return nil, err
	}
	players, err := rewards.New(cfg, rewards.WithLogger(slogger))
	if err != nil {
		return nil, err
	}

	deps := pipeline.Deps{
		Config:    cfg,
		Store:     store,
		Extractor: extractor,
		Ledger:    ledger,
		Resolver:  resolve.New(cfg, directory, slogger),
		Syncer:    attempts.New(cfg, directory, slogger),
		Logger:    slogger,
	}
	if players != nil {
		deps.Players = players
	}
	return pipeline.New(deps)
}

func printRunResult(cmd *cobra.Command, result *pipeline.RunResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s completed\n", result.RunID)
	fmt.Fprintln(out, renderTable(
		[]string{"Stage", "Count"},
		[][]string{
			{"Records extracted", strconv.Itoa(result.Extracted)},
			{"New records", strconv.Itoa(result.Fresh)},
			{"Ledger rows appended", strconv.Itoa(len(result.AppendedRows))},
			{"Dropped (unresolved)", strconv.Itoa(result.ResolveDropped)},
			{"Attempts created", strconv.Itoa(result.Attempts.Created)},
			{"Attempts skipped", strconv.Itoa(result.Attempts.Skipped)},
		},
		[]columnAlignment{alignLeft, alignRight},
	))
}
