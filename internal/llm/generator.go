// Package llm defines the generate contract: a narrow interface an
// execengine.Runtime can call to get model output without caring which
// provider served the request. GenkitGenerator goes through genkit;
// internal/llm/providers holds thinner direct-client adapters for
// deployments that skip genkit's plugin registration entirely, and
// those adapters are the only generators cmd/aegisd builds.
package llm

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Message is one turn of a generation request. Role is "system",
// "user", or "model".
type Message struct {
	Role    string
	Content string
}

// Request is a provider-agnostic generate call: a model name (plugin
// namespaced, e.g. "anthropic/claude-sonnet-4-20250514") and the
// message history to send it.
type Request struct {
	Model    string
	Messages []Message
}

// Response is a provider-agnostic generate result.
type Response struct {
	Text string
}

// Generator is the seam internal/execengine.InProcessRuntime drives
// instead of spawning a container, and the contract every provider
// implementation below satisfies.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// GenkitGenerator drives generation through a configured genkit.Genkit
// app with provider plugins already registered on it: build
// ai.GenerateOption values from the request and call genkit.Generate.
type GenkitGenerator struct {
	App          *genkit.Genkit
	DefaultModel string
}

func NewGenkitGenerator(app *genkit.Genkit, defaultModel string) *GenkitGenerator {
	return &GenkitGenerator{App: app, DefaultModel: defaultModel}
}

func (g *GenkitGenerator) Generate(ctx context.Context, req Request) (Response, error) {
	model := req.Model
	if model == "" {
		model = g.DefaultModel
	}
	if model == "" {
		return Response{}, fmt.Errorf("llm: genkit generator: no model configured")
	}

	opts := []ai.GenerateOption{ai.WithModelName(model)}
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			opts = append(opts, ai.WithSystem(m.Content))
		default:
			opts = append(opts, ai.WithPrompt(m.Content))
		}
	}

	resp, err := genkit.Generate(ctx, g.App, opts...)
	if err != nil {
		return Response{}, fmt.Errorf("llm: genkit generate: %w", err)
	}
	return Response{Text: resp.Text()}, nil
}
