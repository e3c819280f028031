package config

const (
	defaultStagingDir         = "~/.local/share/quizsync/staging"
	defaultDataDir            = "~/.local/share/quizsync/data"
	defaultLogDir             = "~/.local/share/quizsync/logs"
	defaultLedgerBaseURL      = "https://sheets.googleapis.com/v4"
	defaultLedgerSheetName    = "Vevox Data"
	defaultLedgerTimeout      = 30
	defaultCRMBaseURL         = "https://www.zohoapis.com"
	defaultCRMTimeout         = 30
	defaultCRMBatchSize       = 100
	defaultRewardsTimeout     = 10
	defaultResolveConcurrency = 20
	defaultWorkbookVariant    = "standard"
	defaultSentinelMarker     = "1234500"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
		},
		Ledger: Ledger{
			BaseURL:        defaultLedgerBaseURL,
			SheetName:      defaultLedgerSheetName,
			RequestTimeout: defaultLedgerTimeout,
		},
		CRM: CRM{
			BaseURL:        defaultCRMBaseURL,
			RequestTimeout: defaultCRMTimeout,
			BatchSize:      defaultCRMBatchSize,
		},
		Rewards: Rewards{
			RequestTimeout: defaultRewardsTimeout,
		},
		Sync: Sync{
			ResolveConcurrency: defaultResolveConcurrency,
			WorkbookVariant:    defaultWorkbookVariant,
			SentinelMarker:     defaultSentinelMarker,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
