package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ziadkadry99/d365-plugin-assistant/internal/advisory"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/audit"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/catalog"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/config"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/db"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/llm"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/logging"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/metadata"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/requirements"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `pluginassist init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogger builds the process logger from the log section of cfg.
func newLogger(cfg *config.Config) *zap.Logger {
	return logging.New(logging.Options{
		Verbose:    verbose,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
}

// createOracles builds the dialogue oracle and, when code_model is set, a
// separate oracle for code generation.
func createOracles(cfg *config.Config) (dialogue llm.Oracle, code llm.Oracle, err error) {
	provider, err := llm.NewProvider(llm.Options{
		Provider:      string(cfg.Provider),
		Model:         cfg.Model,
		AzureEndpoint: cfg.AzureEndpoint,
		RateLimitRPM:  cfg.RateLimitRPM,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	dialogue = llm.NewOracle(provider, cfg.Model)
	code = dialogue
	if cfg.CodeModel != "" && cfg.CodeModel != cfg.Model {
		code = llm.NewOracle(provider, cfg.CodeModel)
	}
	return dialogue, code, nil
}

// newMetadataClient opens the Dataverse metadata client from crm_config.
func newMetadataClient(cfg *config.Config, logger *zap.Logger) (*metadata.Client, error) {
	return metadata.NewClient(cfg.CRMConfig, metadata.WithLogger(logger))
}

// tableLister is satisfied by *catalog.Store.
type tableLister interface {
	Tables() ([]string, error)
}

// cachedTables counts the tables with a cached field file. A listing error is
// logged and counted as zero so startup carries on.
func cachedTables(cat tableLister, logger *zap.Logger) int {
	tables, err := cat.Tables()
	if err != nil {
		logger.Warn("listing cached tables failed", zap.Error(err))
		return 0
	}
	return len(tables)
}

// app bundles what the conversational commands share.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	database *db.DB
	catalog  *catalog.Store
	audit    *audit.Store
	engine   *requirements.Engine
	oracle   llm.Oracle
}

// newApp loads config and opens the database, catalog and engine.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)

	stage, err := advisory.ParseStage(cfg.Stage)
	if err != nil {
		return nil, err
	}

	dialogue, code, err := createOracles(cfg)
	if err != nil {
		return nil, err
	}

	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	cat := catalog.NewStore(cfg.CatalogDir, logger.Named("catalog"))
	trail := audit.NewStore(database)
	engine := requirements.NewEngine(requirements.NewStore(database), cat, dialogue, requirements.Options{
		CodeOracle:      code,
		Stage:           stage,
		ConfirmKeywords: cfg.ConfirmKeywords,
		Audit:           trail,
		Logger:          logger.Named("requirements"),
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		database: database,
		catalog:  cat,
		audit:    trail,
		engine:   engine,
		oracle:   dialogue,
	}, nil
}

func (a *app) Close() {
	a.database.Close()
	a.logger.Sync()
}
