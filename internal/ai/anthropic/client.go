// Package anthropic provides an ai.Generator backed by the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

const (
	// Provider is the configuration name of this backend.
	Provider         = "anthropic"
	defaultModel     = "claude-haiku-4-5-20251001"
	defaultMaxTokens = 512
)

type messages interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Generator sends single-turn prompts to Claude.
type Generator struct {
	messages  messages
	modelName string
	maxTokens int64
}

// NewGenerator creates a Generator authenticated with apiKey.
func NewGenerator(apiKey, model string) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, eris.New("anthropic api key is required")
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	client := sdk.NewClient(option.WithAPIKey(apiKey), option.WithMaxRetries(0))

	return &Generator{
		messages:  &client.Messages,
		modelName: model,
		maxTokens: defaultMaxTokens,
	}, nil
}

// GenerateContent returns the concatenated text blocks of the reply.
func (g *Generator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.messages == nil {
		return "", eris.New("anthropic generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", eris.New("prompt must not be empty")
	}

	msg, err := g.messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(g.modelName),
		MaxTokens: g.maxTokens,
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt))},
	})
	if err != nil {
		return "", eris.Wrap(err, "anthropic: create message")
	}

	parts := make([]string, 0, len(msg.Content))
	for _, block := range msg.Content {
		if block.Type != "text" {
			continue
		}
		if text := strings.TrimSpace(block.Text); text != "" {
			parts = append(parts, text)
		}
	}

	output := strings.Join(parts, "\n")
	if output == "" {
		return "", eris.New("anthropic api returned empty response")
	}

	return output, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}
