package metadata

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ziadkadry99/d365-plugin-assistant/internal/apperrors"
)

const (
	DefaultAuthorityHost = "https://login.microsoftonline.com"
	DefaultAPIVersion    = "v9.2"
)

// ConnectionConfig holds the app registration used to read Dataverse metadata.
type ConnectionConfig struct {
	ClientID      string `koanf:"client_id"`
	TenantID      string `koanf:"tenant_id"`
	ClientSecret  string `koanf:"client_secret"`
	Resource      string `koanf:"resource"`
	AuthorityHost string `koanf:"authority_host"`
	APIVersion    string `koanf:"api_version"`
}

// LoadConnectionConfig reads the JSON connection file at path. A missing file
// or a missing required key is a ConfigurationError.
func LoadConnectionConfig(path string) (*ConnectionConfig, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewConfigurationError(path, "file not found", nil)
		}
		return nil, apperrors.NewConfigurationError(path, "cannot read file", err)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), json.Parser()); err != nil {
		return nil, apperrors.NewConfigurationError(path, "invalid JSON", err)
	}

	var cfg ConnectionConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, apperrors.NewConfigurationError(path, "cannot decode", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, apperrors.NewConfigurationError(path, err.Error(), nil)
	}
	return &cfg, nil
}

func (c *ConnectionConfig) validate() error {
	var missing []string
	for _, f := range []struct{ key, val string }{
		{"client_id", c.ClientID},
		{"tenant_id", c.TenantID},
		{"client_secret", c.ClientSecret},
		{"resource", c.Resource},
	} {
		if strings.TrimSpace(f.val) == "" {
			missing = append(missing, f.key)
		}
	}
	if len(missing) > 0 {
		return errors.New("missing required keys: " + strings.Join(missing, ", "))
	}
	if c.AuthorityHost == "" {
		c.AuthorityHost = DefaultAuthorityHost
	}
	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}
	c.Resource = strings.TrimRight(c.Resource, "/")
	c.AuthorityHost = strings.TrimRight(c.AuthorityHost, "/")
	return nil
}

// TokenURL is the v2 token endpoint of the configured tenant.
func (c *ConnectionConfig) TokenURL() string {
	return c.AuthorityHost + "/" + c.TenantID + "/oauth2/v2.0/token"
}

// Scope is the client-credentials scope for the environment.
func (c *ConnectionConfig) Scope() string {
	return c.Resource + "/.default"
}

// APIURL is the Web API root of the environment.
func (c *ConnectionConfig) APIURL() string {
	return c.Resource + "/api/data/" + c.APIVersion
}
