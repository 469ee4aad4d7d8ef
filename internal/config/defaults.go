package config

// defaultModels maps each provider to the chat model used when none is configured.
var defaultModels = map[ProviderType]string{
	ProviderOpenAI:    "gpt-4o",
	ProviderAzure:     "gpt-4o",
	ProviderAnthropic: "claude-sonnet-4-5-20250929",
	ProviderOllama:    "llama3",
}

// DefaultConfirmKeywords are the replies accepted as explicit confirmation
// once every requirement is filled.
var DefaultConfirmKeywords = []string{
	"yes", "y", "confirm", "ok", "correct", "proceed", "go ahead", "generate", "continue",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:        ProviderOpenAI,
		Model:           defaultModels[ProviderOpenAI],
		RateLimitRPM:    60,
		CRMConfig:       "crm_config.json",
		CatalogDir:      "catalog",
		DataDir:         ".pluginassist",
		Stage:           "PostOperation",
		ConfirmKeywords: DefaultConfirmKeywords,
		Server: ServerConfig{
			Port: 8080,
		},
	}
}

// DefaultModel returns the default chat model for provider, falling back
// to the OpenAI default.
func DefaultModel(provider ProviderType) string {
	if m, ok := defaultModels[provider]; ok {
		return m
	}
	return defaultModels[ProviderOpenAI]
}
