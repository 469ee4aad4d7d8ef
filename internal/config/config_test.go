package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "crm_config.json", cfg.CRMConfig)
	assert.Equal(t, "PostOperation", cfg.Stage)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Contains(t, cfg.ConfirmKeywords, "go ahead")
	assert.NoError(t, cfg.Validate())
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".pluginassist.yml")

	original := DefaultConfig()
	original.Provider = ProviderAnthropic
	original.Model = "claude-sonnet-4-5-20250929"
	original.CatalogDir = "meta"
	original.Solution = "ContosoCore"
	original.Server.Port = 9090

	require.NoError(t, original.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, original.Provider, loaded.Provider)
	assert.Equal(t, original.Model, loaded.Model)
	assert.Equal(t, "meta", loaded.CatalogDir)
	assert.Equal(t, "ContosoCore", loaded.Solution)
	assert.Equal(t, 9090, loaded.Server.Port)
	assert.Equal(t, original.ConfirmKeywords, loaded.ConfirmKeywords)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yml"))
	require.NoError(t, err, "a missing file falls back to defaults")
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yml")
	require.NoError(t, DefaultConfig().Save(path))

	t.Setenv("PLUGINASSIST_PROVIDER", "ollama")
	t.Setenv("PLUGINASSIST_SERVER__PORT", "7070")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, loaded.Provider)
	assert.Equal(t, 7070, loaded.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty provider", func(c *Config) { c.Provider = "" }},
		{"unknown provider", func(c *Config) { c.Provider = "google" }},
		{"empty model", func(c *Config) { c.Model = "" }},
		{"azure without endpoint", func(c *Config) { c.Provider = ProviderAzure }},
		{"negative rpm", func(c *Config) { c.RateLimitRPM = -1 }},
		{"empty catalog dir", func(c *Config) { c.CatalogDir = "" }},
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"bad stage", func(c *Config) { c.Stage = "PostCommit" }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAPIKeyEnvVar(t *testing.T) {
	assert.Equal(t, "OPENAI_API_KEY", APIKeyEnvVar(ProviderOpenAI))
	assert.Equal(t, "AZURE_OPENAI_API_KEY", APIKeyEnvVar(ProviderAzure))
	assert.Equal(t, "ANTHROPIC_API_KEY", APIKeyEnvVar(ProviderAnthropic))
	assert.Equal(t, "", APIKeyEnvVar(ProviderOllama))
}

func TestDefaultModelFallsBack(t *testing.T) {
	assert.Equal(t, "llama3", DefaultModel(ProviderOllama))
	assert.Equal(t, "gpt-4o", DefaultModel("unknown"))
}

func TestDatabasePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "state"
	assert.Equal(t, filepath.Join("state", "sessions.db"), cfg.DatabasePath())
}
