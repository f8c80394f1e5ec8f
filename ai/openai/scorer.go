// Copyright 2026 Vocalia Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/vocalia/anamnesis/ai"
)

// RelevanceScorer implements ai.RelevanceScorer using OpenAI-compatible chat APIs.
// It asks the chat model to grade each passage against the query and parses
// the scores from a JSON response.
type RelevanceScorer struct {
	client  llms.Model
	timeout time.Duration
	logger  *slog.Logger
}

// scoredPassage is an internal type used for JSON unmarshaling.
// It matches the structure expected from the LLM.
type scoredPassage struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// grading is the wrapper structure for the LLM's JSON response.
type grading struct {
	Scores []scoredPassage `json:"scores"`
}

// newRelevanceScorer is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newRelevanceScorer(config *ai.Config) (*RelevanceScorer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken("none"),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &RelevanceScorer{
		client:  client,
		timeout: config.Timeout,
		logger:  slog.Default().With("component", "openai-scorer"),
	}, nil
}

// NewRelevanceScorer creates a new relevance scorer using the provided configuration.
//
// Returns ai.RelevanceScorer interface to enforce abstraction.
func NewRelevanceScorer(config *ai.Config) (ai.RelevanceScorer, error) {
	return newRelevanceScorer(config)
}

// ScorePairs grades each passage against the query with the chat model.
// The returned slice is aligned with texts; passages the model omits keep
// a score of zero.
func (s *RelevanceScorer) ScorePairs(ctx context.Context, query string, texts []string) ([]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := deadline(ctx, s.timeout)
	defer cancel()

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(scoringPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(buildScoringInput(query, texts)),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result grading
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := s.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			s.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, wrapTimeout(err)
		}

		if len(response.Choices) < 1 {
			s.logger.Debug("no choices returned from model")
			return make([]float32, len(texts)), nil
		}

		responseText := stripCodeFences(response.Choices[0].Content)
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			s.logger.Warn("error parsing scorer response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		s.logger.Error("failed to parse scorer response after retries", "err", lastErr)
		return nil, lastErr
	}

	scores := make([]float32, len(texts))
	for _, sp := range result.Scores {
		if sp.Index < 0 || sp.Index >= len(texts) {
			continue
		}
		scores[sp.Index] = clamp01(float32(sp.Score))
	}

	s.logger.Debug("scored passages", "count", len(texts), "returned", len(result.Scores))
	return scores, nil
}

// buildScoringInput formats the query and numbered passages for the model.
func buildScoringInput(query string, texts []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nPassages:\n", scrubString(query))
	for i, text := range texts {
		fmt.Fprintf(&b, "[%d] %s\n", i, strings.TrimSpace(text))
	}
	return b.String()
}

// stripCodeFences removes markdown code fences the model sometimes adds.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
