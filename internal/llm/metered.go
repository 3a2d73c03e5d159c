package llm

import "context"

// UsageFunc receives token usage for every successful completion.
type UsageFunc func(model string, inputTokens, outputTokens int)

// MeteredProvider reports token usage of each completion to a callback.
// Providers that do not report usage get an EstimateTokens approximation.
type MeteredProvider struct {
	provider Provider
	onUsage  UsageFunc
}

// NewMeteredProvider wraps provider. A nil onUsage disables reporting.
func NewMeteredProvider(provider Provider, onUsage UsageFunc) Provider {
	return &MeteredProvider{provider: provider, onUsage: onUsage}
}

func (m *MeteredProvider) Name() string {
	return m.provider.Name()
}

func (m *MeteredProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	resp, err := m.provider.Complete(ctx, req)
	if err != nil || m.onUsage == nil {
		return resp, err
	}

	in, out := resp.InputTokens, resp.OutputTokens
	if in == 0 {
		for _, msg := range req.Messages {
			in += EstimateTokens(msg.Content)
		}
	}
	if out == 0 {
		out = EstimateTokens(resp.Content)
	}
	model := resp.Model
	if model == "" {
		model = req.Model
	}
	m.onUsage(model, in, out)
	return resp, nil
}
