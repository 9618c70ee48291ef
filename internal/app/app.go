// Package app wires configuration, storage and services into the core shared
// by cmd/tally-server and cmd/tally.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/interfaces"
	"github.com/bobmcallan/tally/internal/services/ledger"
	"github.com/bobmcallan/tally/internal/services/reconcile"
	"github.com/bobmcallan/tally/internal/services/transaction"
	"github.com/bobmcallan/tally/internal/storage"
)

// App holds all initialized services and storage.
type App struct {
	Config             *common.Config
	Logger             *common.Logger
	Storage            interfaces.StorageManager
	LedgerService      interfaces.LedgerService
	ReconcileService   interfaces.ReconcileService
	TransactionService interfaces.TransactionService
	StartupTime        time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath picks the config file: the given path, then TALLY_CONFIG,
// then tally.toml beside the binary, then config/tally.toml.
func ResolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("TALLY_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "tally.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/tally.toml" // fallback for development
		}
	}
	return configPath
}

// NewApp loads configuration and initializes storage and services.
// configPath may be empty, in which case ResolveConfigPath decides.
func NewApp(configPath string) (*App, error) {
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	storageManager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return NewAppWithStorage(config, logger, storageManager), nil
}

// NewAppWithStorage wires services over an existing storage manager.
func NewAppWithStorage(config *common.Config, logger *common.Logger, storageManager interfaces.StorageManager) *App {
	startupStart := time.Now()

	ledgerService := ledger.NewService(storageManager, config.Ledger.Location(), logger)
	reconcileService := reconcile.NewService(storageManager, ledgerService, logger)
	transactionService := transaction.NewService(storageManager, ledgerService, reconcileService, logger)

	a := &App{
		Config:             config,
		Logger:             logger,
		Storage:            storageManager,
		LedgerService:      ledgerService,
		ReconcileService:   reconcileService,
		TransactionService: transactionService,
		StartupTime:        startupStart,
	}

	logger.Info().
		Str("backend", storageManager.Backend()).
		Str("timezone", config.Ledger.Location().String()).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")
	return a
}

// Close releases all resources held by the App.
func (a *App) Close() {
	if a.Storage != nil {
		a.Storage.Close()
		a.Storage = nil
	}
}
