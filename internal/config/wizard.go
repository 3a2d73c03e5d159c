package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// DefaultPath is the config file name used when none is given.
const DefaultPath = ".shopagent.yml"

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to shopagent! Let's configure your assistant.")
	fmt.Println()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"google", "openai", "anthropic", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	provider := ProviderType(providerStr)

	// 2. Quality tier.
	qualityPrompt := promptui.Select{
		Label: "Select quality tier",
		Items: []string{
			"lite   - fast & cheap",
			"normal - balanced",
			"max    - highest quality",
		},
	}
	qualityIdx, _, err := qualityPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("quality selection: %w", err)
	}
	tiers := []QualityTier{QualityLite, QualityNormal, QualityMax}
	quality := tiers[qualityIdx]

	preset := GetPreset(provider, quality)

	// 3. Listen port.
	portPrompt := promptui.Prompt{
		Label:   "Server port",
		Default: "10000",
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("port must be between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	port, _ := strconv.Atoi(portStr)

	// 4. Web search fallback.
	webPrompt := promptui.Select{
		Label: "Enable web search fallback (needs SERPER_API_KEY)",
		Items: []string{"yes", "no"},
	}
	webIdx, _, err := webPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("web search selection: %w", err)
	}

	cfg := DefaultConfig()
	cfg.Provider = provider
	cfg.Model = preset.Model
	cfg.EmbeddingProvider = embeddingProviderFor(provider)
	cfg.EmbeddingModel = preset.EmbeddingModel
	cfg.Quality = quality
	cfg.Port = port
	cfg.EnableWebSearch = webIdx == 0

	for _, envVar := range []string{APIKeyEnvVar(provider), APIKeyEnvVar(cfg.EmbeddingProvider)} {
		if envVar != "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment (or .env) before running shopagent serve.\n", envVar)
		}
	}
	if cfg.EnableWebSearch && os.Getenv(SerperAPIKeyEnvVar) == "" {
		fmt.Printf("Note: Set %s to enable live web search results.\n", SerperAPIKeyEnvVar)
	}

	if path == "" {
		path = DefaultPath
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

// embeddingProviderFor returns the default embedding provider for a given
// LLM provider. Anthropic has no embedding API, so OpenAI is used.
func embeddingProviderFor(p ProviderType) ProviderType {
	if p == ProviderAnthropic {
		return ProviderOpenAI
	}
	return p
}
