package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLedger()
	c.normalizeCRM()
	c.normalizeRewards()
	c.normalizeSync()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLedger() {
	c.Ledger.BaseURL = strings.TrimRight(strings.TrimSpace(c.Ledger.BaseURL), "/")
	if c.Ledger.BaseURL == "" {
		c.Ledger.BaseURL = defaultLedgerBaseURL
	}
	c.Ledger.SpreadsheetID = strings.TrimSpace(c.Ledger.SpreadsheetID)
	if c.Ledger.SpreadsheetID == "" {
		if value, ok := os.LookupEnv("SHEETS_SPREADSHEET_ID"); ok {
			c.Ledger.SpreadsheetID = strings.TrimSpace(value)
		}
	}
	c.Ledger.SheetName = strings.TrimSpace(c.Ledger.SheetName)
	if c.Ledger.SheetName == "" {
		c.Ledger.SheetName = defaultLedgerSheetName
	}
	c.Ledger.AccessToken = strings.TrimSpace(c.Ledger.AccessToken)
	if c.Ledger.AccessToken == "" {
		if value, ok := os.LookupEnv("SHEETS_ACCESS_TOKEN"); ok {
			c.Ledger.AccessToken = strings.TrimSpace(value)
		}
	}
	if c.Ledger.RequestTimeout <= 0 {
		c.Ledger.RequestTimeout = defaultLedgerTimeout
	}
}

func (c *Config) normalizeCRM() {
	c.CRM.BaseURL = strings.TrimRight(strings.TrimSpace(c.CRM.BaseURL), "/")
	if c.CRM.BaseURL == "" {
		c.CRM.BaseURL = defaultCRMBaseURL
	}
	c.CRM.AccessToken = strings.TrimSpace(c.CRM.AccessToken)
	if c.CRM.AccessToken == "" {
		if value, ok := os.LookupEnv("CRM_ACCESS_TOKEN"); ok {
			c.CRM.AccessToken = strings.TrimSpace(value)
		}
	}
	if c.CRM.RequestTimeout <= 0 {
		c.CRM.RequestTimeout = defaultCRMTimeout
	}
	if c.CRM.BatchSize <= 0 {
		c.CRM.BatchSize = defaultCRMBatchSize
	}
}

func (c *Config) normalizeRewards() {
	c.Rewards.BaseURL = strings.TrimRight(strings.TrimSpace(c.Rewards.BaseURL), "/")
	c.Rewards.APIKey = strings.TrimSpace(c.Rewards.APIKey)
	if c.Rewards.APIKey == "" {
		if value, ok := os.LookupEnv("REWARDS_API_KEY"); ok {
			c.Rewards.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Rewards.RequestTimeout <= 0 {
		c.Rewards.RequestTimeout = defaultRewardsTimeout
	}
}

func (c *Config) normalizeSync() {
	if c.Sync.ResolveConcurrency <= 0 {
		c.Sync.ResolveConcurrency = defaultResolveConcurrency
	}
	c.Sync.WorkbookVariant = strings.ToLower(strings.TrimSpace(c.Sync.WorkbookVariant))
	if c.Sync.WorkbookVariant == "" {
		c.Sync.WorkbookVariant = defaultWorkbookVariant
	}
	c.Sync.SentinelMarker = strings.TrimSpace(c.Sync.SentinelMarker)
	if c.Sync.SentinelMarker == "" {
		c.Sync.SentinelMarker = defaultSentinelMarker
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
