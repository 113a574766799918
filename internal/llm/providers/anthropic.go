// Package providers holds direct-client Generator implementations for
// deployments that want a single provider without registering a full
// genkit plugin. They speak the plain llm.Request/llm.Response
// contract: no streaming, no tool-call accumulation. Those stay
// genkit-plugin concerns.
package providers

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/aegis-run/orchestrator/internal/llm"
)

// AnthropicGenerator calls the Anthropic Messages API directly.
type AnthropicGenerator struct {
	client    anthropic.Client
	modelName string
}

// NewAnthropicGenerator builds a client authenticated with apiKey,
// defaulting generations to modelName when a Request leaves Model
// empty.
func NewAnthropicGenerator(apiKey, modelName string) *AnthropicGenerator {
	return &AnthropicGenerator{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		modelName: modelName,
	}
}

func (g *AnthropicGenerator) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	model := req.Model
	if model == "" {
		model = g.modelName
	}

	var systemBlocks []anthropic.TextBlockParam
	var messages []anthropic.MessageParam
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: m.Content})
		case "model":
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 4096,
		Messages:  messages,
	}
	if len(systemBlocks) > 0 {
		params.System = systemBlocks
	}

	message, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return llm.Response{}, fmt.Errorf("llm: anthropic generate: %w", err)
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return llm.Response{Text: text}, nil
}
