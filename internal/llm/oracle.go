package llm

import (
	"context"
	"fmt"
	"strings"
)

// Oracle is the narrow view of a language model the dialogue engine needs:
// a system prompt plus the conversation so far in, one reply out.
type Oracle interface {
	Complete(ctx context.Context, system string, turns []Message) (string, error)
}

// ProviderOracle adapts a Provider to the Oracle interface.
type ProviderOracle struct {
	provider    Provider
	model       string
	maxTokens   int
	temperature float64
}

// NewOracle returns an Oracle backed by provider. An empty model defers to
// the provider's configured default.
func NewOracle(provider Provider, model string) *ProviderOracle {
	return &ProviderOracle{
		provider:    provider,
		model:       model,
		maxTokens:   2048,
		temperature: 0.2,
	}
}

func (o *ProviderOracle) Complete(ctx context.Context, system string, turns []Message) (string, error) {
	messages := make([]Message, 0, len(turns)+1)
	if system != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: system})
	}
	messages = append(messages, turns...)

	resp, err := o.provider.Complete(ctx, CompletionRequest{
		Model:       o.model,
		Messages:    messages,
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
	})
	if err != nil {
		return "", err
	}

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return "", fmt.Errorf("%s returned an empty completion", o.provider.Name())
	}
	return content, nil
}

// OracleFunc lets an ordinary function serve as an Oracle.
type OracleFunc func(ctx context.Context, system string, turns []Message) (string, error)

func (f OracleFunc) Complete(ctx context.Context, system string, turns []Message) (string, error) {
	return f(ctx, system, turns)
}
