package llm

import (
	"context"
	"fmt"
	"net/http"
)

const defaultOllamaHost = "http://localhost:11434"

// OllamaProvider implements Provider using the Ollama chat API.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaProvider creates a new Ollama provider. An empty baseURL uses the
// local default.
func NewOllamaProvider(baseURL, model string, opts ...Option) *OllamaProvider {
	o := applyOptions(opts)
	return &OllamaProvider{
		baseURL: orDefault(baseURL, defaultOllamaHost),
		model:   model,
		client:  o.httpClient,
	}
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

type ollamaChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  struct {
		Temperature float64 `json:"temperature,omitempty"`
		NumPredict  int     `json:"num_predict,omitempty"`
	} `json:"options"`
	Format string `json:"format,omitempty"`
}

type ollamaChatResponse struct {
	Message         Message `json:"message"`
	Model           string  `json:"model"`
	DoneReason      string  `json:"done_reason"`
	PromptEvalCount int     `json:"prompt_eval_count"`
	EvalCount       int     `json:"eval_count"`
	Error           string  `json:"error,omitempty"`
}

func (p *OllamaProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	apiReq := ollamaChatRequest{
		Model:    orDefault(req.Model, p.model),
		Messages: req.Messages,
	}
	apiReq.Options.Temperature = req.Temperature
	apiReq.Options.NumPredict = req.MaxTokens
	if req.JSONMode {
		apiReq.Format = "json"
	}

	var apiResp ollamaChatResponse
	status, raw, err := postJSON(ctx, p.client, p.baseURL+"/api/chat", nil, apiReq, &apiResp)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d: %s", status, string(raw))
	}

	return &CompletionResponse{
		Content:      apiResp.Message.Content,
		InputTokens:  apiResp.PromptEvalCount,
		OutputTokens: apiResp.EvalCount,
		Model:        apiResp.Model,
		FinishReason: apiResp.DoneReason,
	}, nil
}
