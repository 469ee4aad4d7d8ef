package config

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderOpenAI    ProviderType = "openai"
	ProviderAzure     ProviderType = "azure"
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOllama    ProviderType = "ollama"
)

// Config is the top-level assistant configuration, corresponding to .pluginassist.yml.
type Config struct {
	Provider      ProviderType `yaml:"provider" koanf:"provider"`
	Model         string       `yaml:"model" koanf:"model"`
	CodeModel     string       `yaml:"code_model" koanf:"code_model"`
	AzureEndpoint string       `yaml:"azure_endpoint" koanf:"azure_endpoint"`
	RateLimitRPM  int          `yaml:"rate_limit_rpm" koanf:"rate_limit_rpm"`

	// CRMConfig is the JSON connection file for the metadata service
	// (client_id, tenant_id, client_secret, resource).
	CRMConfig  string `yaml:"crm_config" koanf:"crm_config"`
	CatalogDir string `yaml:"catalog_dir" koanf:"catalog_dir"`
	Solution   string `yaml:"solution" koanf:"solution"`
	DataDir    string `yaml:"data_dir" koanf:"data_dir"`

	// Stage is the plug-in execution stage the image advice is written for.
	Stage           string   `yaml:"stage" koanf:"stage"`
	ConfirmKeywords []string `yaml:"confirm_keywords" koanf:"confirm_keywords"`

	Server ServerConfig `yaml:"server" koanf:"server"`
	Log    LogConfig    `yaml:"log" koanf:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int  `yaml:"port" koanf:"port"`
	AllowAll bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// LogConfig holds log file settings. An empty File logs to stderr only.
type LogConfig struct {
	File       string `yaml:"file" koanf:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" koanf:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" koanf:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" koanf:"max_age_days"`
}
