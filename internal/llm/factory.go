package llm

import (
	"fmt"
	"net/http"
	"os"
	"time"
)

type options struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes a provider.
type Option func(*options)

// WithBaseURL points the provider at a different API root.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithHTTPClient replaces the provider's HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func applyOptions(opts []Option) options {
	o := options{httpClient: &http.Client{Timeout: 2 * time.Minute}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewProvider creates a new LLM provider based on the given provider type and model.
// Supported provider types: "anthropic", "openai", "google", "ollama".
// API keys are read from the conventional environment variables.
func NewProvider(providerType, model string, opts ...Option) (Provider, error) {
	switch providerType {
	case "anthropic":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		return NewAnthropicProvider(apiKey, model, opts...), nil

	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return NewOpenAIProvider(apiKey, model, opts...), nil

	case "google":
		apiKey := os.Getenv("GOOGLE_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY environment variable is not set")
		}
		return NewGoogleProvider(apiKey, model, opts...), nil

	case "ollama":
		return NewOllamaProvider(os.Getenv("OLLAMA_HOST"), model, opts...), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}
