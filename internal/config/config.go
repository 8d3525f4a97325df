package config

import (
	"time"
)

// Validation tags described here: https://pkg.go.dev/github.com/go-playground/validator/v10
type Config struct {
	Blockchain struct {
		EthNodeAddress  string        `env:"ETH_NODE_ADDRESS"    flag:"eth-node-address"    validate:"required,url"`
		EscrowAddress   string        `env:"ESCROW_ADDRESS"      flag:"escrow-address"      validate:"required,eth_addr"   desc:"address of the escrow ledger contract"`
		PollingInterval time.Duration `env:"ETH_POLLING_INTERVAL" flag:"eth-polling-interval" validate:"omitempty"          desc:"interval between polling for new ledger blocks"`
		BatchSize       uint64        `env:"ETH_BATCH_SIZE"      flag:"eth-batch-size"      validate:"omitempty,number"    desc:"maximum number of blocks requested per log range scan"`
		MaxRetries      int           `env:"ETH_MAX_RETRIES"     flag:"eth-max-retries"     validate:"omitempty,number"    desc:"consecutive batch failures before the sync engine gives up"`
	}
	Environment string `env:"ENVIRONMENT" flag:"environment"`
	Escrow      struct {
		FeeRecipient         string        `env:"ESCROW_FEE_RECIPIENT"          flag:"escrow-fee-recipient"          validate:"omitempty,eth_addr" desc:"address credited with the platform fee share"`
		AutoApprovalInterval time.Duration `env:"ESCROW_AUTO_APPROVAL_INTERVAL" flag:"escrow-auto-approval-interval" validate:"omitempty"        desc:"how often submitted milestones are scanned for auto-approval"`
		AutoApprovalWorkers  int           `env:"ESCROW_AUTO_APPROVAL_WORKERS"  flag:"escrow-auto-approval-workers"  validate:"omitempty,number" desc:"bounded concurrency for the auto-approval batch"`
	}
	Log struct {
		Color       bool   `env:"LOG_COLOR"        flag:"log-color"`
		FilePath    string `env:"LOG_FILE_PATH"    flag:"log-file-path"    validate:"omitempty"  desc:"enables file logging and sets the file path"`
		IsProd      bool   `env:"LOG_IS_PROD"      flag:"log-is-prod"      validate:""           desc:"affects the format of the log output"`
		JSON        bool   `env:"LOG_JSON"         flag:"log-json"`
		LevelApp    string `env:"LOG_LEVEL_APP"    flag:"log-level-app"    validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
		LevelEscrow string `env:"LOG_LEVEL_ESCROW" flag:"log-level-escrow" validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
		LevelSync   string `env:"LOG_LEVEL_SYNC"   flag:"log-level-sync"   validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
	}
	Store struct {
		DataDir string `env:"STORE_DATA_DIR" flag:"store-data-dir" validate:"omitempty,dirpath" desc:"directory for the checkpoint and ledger event database"`
	}
	Web struct {
		Address string `env:"WEB_ADDRESS" flag:"web-address" validate:"required,hostname_port" desc:"http server address host:port"`
	}
}

func (cfg *Config) SetDefaults() {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	// Blockchain
	if cfg.Blockchain.PollingInterval == 0 {
		cfg.Blockchain.PollingInterval = 10 * time.Second
	}
	if cfg.Blockchain.BatchSize == 0 {
		cfg.Blockchain.BatchSize = 1000
	}
	if cfg.Blockchain.MaxRetries == 0 {
		cfg.Blockchain.MaxRetries = 5
	}

	// Escrow
	if cfg.Escrow.AutoApprovalInterval == 0 {
		cfg.Escrow.AutoApprovalInterval = time.Minute
	}
	if cfg.Escrow.AutoApprovalWorkers == 0 {
		cfg.Escrow.AutoApprovalWorkers = 4
	}

	// Log
	if cfg.Log.LevelApp == "" {
		cfg.Log.LevelApp = "debug"
	}
	if cfg.Log.LevelEscrow == "" {
		cfg.Log.LevelEscrow = "debug"
	}
	if cfg.Log.LevelSync == "" {
		cfg.Log.LevelSync = "info"
	}

	// Store
	if cfg.Store.DataDir == "" {
		cfg.Store.DataDir = "./data/"
	}

	// Web
	if cfg.Web.Address == "" {
		cfg.Web.Address = "0.0.0.0:8080"
	}
}

// GetSanitized returns a copy of the config with sensitive data removed
// explicitly adding each field here to avoid accidentally leaking sensitive data
func (cfg *Config) GetSanitized() interface{} {
	publicCfg := Config{}

	publicCfg.Environment = cfg.Environment

	publicCfg.Blockchain.EscrowAddress = cfg.Blockchain.EscrowAddress
	publicCfg.Blockchain.PollingInterval = cfg.Blockchain.PollingInterval
	publicCfg.Blockchain.BatchSize = cfg.Blockchain.BatchSize
	publicCfg.Blockchain.MaxRetries = cfg.Blockchain.MaxRetries

	publicCfg.Escrow.FeeRecipient = cfg.Escrow.FeeRecipient
	publicCfg.Escrow.AutoApprovalInterval = cfg.Escrow.AutoApprovalInterval
	publicCfg.Escrow.AutoApprovalWorkers = cfg.Escrow.AutoApprovalWorkers

	publicCfg.Log.Color = cfg.Log.Color
	publicCfg.Log.FilePath = cfg.Log.FilePath
	publicCfg.Log.IsProd = cfg.Log.IsProd
	publicCfg.Log.JSON = cfg.Log.JSON
	publicCfg.Log.LevelApp = cfg.Log.LevelApp
	publicCfg.Log.LevelEscrow = cfg.Log.LevelEscrow
	publicCfg.Log.LevelSync = cfg.Log.LevelSync

	publicCfg.Store.DataDir = cfg.Store.DataDir

	publicCfg.Web.Address = cfg.Web.Address

	return publicCfg
}
