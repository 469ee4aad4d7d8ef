package llm

import (
	"fmt"
	"os"
)

// Options selects and configures a provider.
type Options struct {
	Provider      string
	Model         string
	AzureEndpoint string
	// RateLimitRPM wraps the provider in a rate limiter when positive.
	RateLimitRPM int
}

// NewProvider creates a provider from opts. API keys are read from the
// conventional environment variables.
func NewProvider(opts Options) (Provider, error) {
	var p Provider
	switch opts.Provider {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		p = NewOpenAIProvider(apiKey, opts.Model)

	case "azure":
		apiKey := os.Getenv("AZURE_OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("AZURE_OPENAI_API_KEY environment variable is not set")
		}
		if opts.AzureEndpoint == "" {
			return nil, fmt.Errorf("azure endpoint is not configured")
		}
		p = NewAzureProvider(apiKey, opts.AzureEndpoint, opts.Model)

	case "anthropic":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		p = NewAnthropicProvider(apiKey, opts.Model)

	case "ollama":
		host := os.Getenv("OLLAMA_HOST")
		if host == "" {
			host = "http://localhost:11434"
		}
		p = NewOllamaProvider(host, opts.Model)

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", opts.Provider)
	}

	if opts.RateLimitRPM > 0 {
		p = NewRateLimitedProvider(p, opts.RateLimitRPM)
	}
	return p, nil
}
