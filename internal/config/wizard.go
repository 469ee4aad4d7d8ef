package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to pluginassist! Let's configure the assistant.")
	fmt.Println()

	cfg := DefaultConfig()

	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"openai", "azure", "anthropic", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	modelPrompt := promptui.Prompt{
		Label:   "Chat model (or Azure deployment name)",
		Default: DefaultModel(cfg.Provider),
	}
	if cfg.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	if cfg.Provider == ProviderAzure {
		endpointPrompt := promptui.Prompt{
			Label:    "Azure OpenAI endpoint",
			Validate: nonEmpty("endpoint"),
		}
		if cfg.AzureEndpoint, err = endpointPrompt.Run(); err != nil {
			return nil, fmt.Errorf("azure endpoint: %w", err)
		}
	}

	crmPrompt := promptui.Prompt{
		Label:   "Dataverse connection file",
		Default: cfg.CRMConfig,
	}
	if cfg.CRMConfig, err = crmPrompt.Run(); err != nil {
		return nil, fmt.Errorf("crm config path: %w", err)
	}

	solutionPrompt := promptui.Prompt{
		Label: "Solution unique name to build the entity catalog from (blank to skip)",
	}
	if cfg.Solution, err = solutionPrompt.Run(); err != nil {
		return nil, fmt.Errorf("solution: %w", err)
	}
	cfg.Solution = strings.TrimSpace(cfg.Solution)

	stagePrompt := promptui.Select{
		Label:     "Plug-in stage for image advice",
		Items:     []string{"PostOperation", "PreOperation", "PreValidation"},
		CursorPos: 0,
	}
	if _, cfg.Stage, err = stagePrompt.Run(); err != nil {
		return nil, fmt.Errorf("stage selection: %w", err)
	}

	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment (or .env) before chatting.\n", envVar)
	}
	if _, err := os.Stat(cfg.CRMConfig); os.IsNotExist(err) {
		fmt.Printf("Note: %s does not exist yet; `catalog sync` needs it.\n", cfg.CRMConfig)
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func nonEmpty(what string) promptui.ValidateFunc {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}
