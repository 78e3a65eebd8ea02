package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .docchat.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to docchat! Let's configure your project.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. LLM provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"groq", "openai", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	// 2. Model.
	modelPrompt := promptui.Prompt{
		Label:   "Chat model",
		Default: defaultModelFor(cfg.Provider),
	}
	model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("model selection: %w", err)
	}
	cfg.Model = model

	// 3. Embedding provider.
	embeddingPrompt := promptui.Select{
		Label: "Select embedding provider",
		Items: []string{
			"hash   - local, deterministic, no API key",
			"openai - text-embedding-3-small",
			"ollama - nomic-embed-text",
		},
	}
	embeddingIdx, _, err := embeddingPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding selection: %w", err)
	}
	embeddingProviders := []ProviderType{ProviderHash, ProviderOpenAI, ProviderOllama}
	cfg.EmbeddingProvider = embeddingProviders[embeddingIdx]
	preset := GetEmbeddingPreset(cfg.EmbeddingProvider)
	cfg.EmbeddingModel = preset.Model
	cfg.EmbeddingDims = preset.Dims

	// 4. Index backend.
	backendPrompt := promptui.Select{
		Label: "Select index backend",
		Items: []string{"memory", "chromem"},
	}
	_, backendStr, err := backendPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("backend selection: %w", err)
	}
	cfg.Index.Backend = IndexBackend(backendStr)

	// 5. Extra exclude patterns.
	excludePrompt := promptui.Prompt{
		Label:   "Extra exclude patterns (comma-separated, leave blank for defaults)",
		Default: "",
	}
	excludeStr, err := excludePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("exclude patterns: %w", err)
	}
	if excludeStr != "" {
		cfg.Exclude = append(cfg.Exclude, splitAndTrim(excludeStr)...)
	}

	// Check for API keys.
	for _, envVar := range []string{APIKeyEnvVar(cfg.Provider), APIKeyEnvVar(cfg.EmbeddingProvider)} {
		if envVar != "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment before running docchat serve.\n", envVar)
		}
	}

	configPath := ".docchat.yml"
	if err := cfg.Save(configPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	return cfg, nil
}

func defaultModelFor(p ProviderType) string {
	switch p {
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderOllama:
		return "llama3"
	default:
		return "llama3-8b-8192"
	}
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
