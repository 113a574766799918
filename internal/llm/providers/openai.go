package providers

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/aegis-run/orchestrator/internal/llm"
)

// OpenAIGenerator calls the OpenAI (or OpenAI-compatible) Chat
// Completions API directly.
type OpenAIGenerator struct {
	client    openai.Client
	modelName string
}

// NewOpenAIGenerator builds a client pointed at baseURL (empty uses
// the OpenAI default) authenticated with apiKey.
func NewOpenAIGenerator(apiKey, baseURL, modelName string) *OpenAIGenerator {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIGenerator{
		client:    openai.NewClient(opts...),
		modelName: modelName,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	model := req.Model
	if model == "" {
		model = g.modelName
	}

	var messages []openai.ChatCompletionMessageParamUnion
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(m.Content))
		case "model":
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: messages,
	}

	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.Response{}, fmt.Errorf("llm: openai generate: %w", err)
	}

	var text string
	if len(completion.Choices) > 0 {
		text = completion.Choices[0].Message.Content
	}
	return llm.Response{Text: text}, nil
}
