package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/vocalia/anamnesis/ai"
)

// Explainer implements ai.Explainer using OpenAI-compatible chat APIs.
type Explainer struct {
	client  llms.Model
	timeout time.Duration
	logger  *slog.Logger
}

// newExplainer is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newExplainer(config *ai.Config) (*Explainer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken("none"),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &Explainer{
		client:  client,
		timeout: config.Timeout,
		logger:  slog.Default().With("component", "openai-explainer"),
	}, nil
}

// NewExplainer creates a new explainer using the provided configuration.
//
// Returns ai.Explainer interface to enforce abstraction.
func NewExplainer(config *ai.Config) (ai.Explainer, error) {
	return newExplainer(config)
}

// Explain summarizes why the passages answer the query.
func (e *Explainer) Explain(ctx context.Context, query string, passages []string) (string, error) {
	if len(passages) == 0 {
		return "", nil
	}

	ctx, cancel := deadline(ctx, e.timeout)
	defer cancel()

	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nPassages:\n", strings.TrimSpace(query))
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, strings.TrimSpace(p))
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(explanationPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(b.String()),
			},
		},
	}

	response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.2))
	if err != nil {
		e.logger.Error("failed to generate explanation", "err", err)
		return "", wrapTimeout(err)
	}

	if len(response.Choices) < 1 {
		e.logger.Debug("no choices returned from model")
		return "", nil
	}

	return strings.TrimSpace(response.Choices[0].Content), nil
}
