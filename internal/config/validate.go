package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLedger(); err != nil {
		return err
	}
	if err := c.validateCRM(); err != nil {
		return err
	}
	if err := c.validateRewards(); err != nil {
		return err
	}
	return c.validateSync()
}

func (c *Config) validateLedger() error {
	if c.Ledger.SpreadsheetID == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/quizsync/config.toml"
		}
		return fmt.Errorf("ledger.spreadsheet_id is required. Set SHEETS_SPREADSHEET_ID env var or edit %s (create with 'quizsync config init')", defaultPath)
	}
	if c.Ledger.SheetName == "" {
		return errors.New("ledger.sheet_name must be set")
	}
	if c.Ledger.RequestTimeout <= 0 {
		return errors.New("ledger.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateCRM() error {
	if strings.TrimSpace(c.CRM.BaseURL) == "" {
		return errors.New("crm.base_url must be set")
	}
	if c.CRM.RequestTimeout <= 0 {
		return errors.New("crm.request_timeout must be positive (seconds)")
	}
	if c.CRM.BatchSize < 1 || c.CRM.BatchSize > 100 {
		return errors.New("crm.batch_size must be between 1 and 100")
	}
	return nil
}

func (c *Config) validateRewards() error {
	if !c.Rewards.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Rewards.BaseURL) == "" {
		return errors.New("rewards.base_url must be set when rewards.enabled is true")
	}
	if strings.TrimSpace(c.Rewards.APIKey) == "" {
		return errors.New("rewards.api_key must be set when rewards.enabled is true")
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.ResolveConcurrency <= 0 {
		return errors.New("sync.resolve_concurrency must be positive")
	}
	if c.Sync.WorkbookVariant == "" {
		return errors.New("sync.workbook_variant must be set")
	}
	return nil
}
