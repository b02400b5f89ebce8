// Package agents holds the specialist generators behind the
// conversation flow: the lead agent talks, the frontend agent builds
// page sections, the backend agent writes the API, and the test agent
// reviews the result. All of them share one text-generation backend.
package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"

	"github.com/siteforgelabs/siteforged/internal/config"
	"github.com/siteforgelabs/siteforged/internal/logging"
)

// ErrMissingCredential is returned when generation is attempted
// without an API key for the upstream provider.
var ErrMissingCredential = errors.New("agents: no generation credential provided")

// Generator produces text from a system prompt, a user prompt, and
// optional retrieved context, using the caller's credential.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt, contextText, credential string) (string, error)
}

// LLMGenerator calls an OpenAI-compatible chat completion endpoint.
// A client is built per call because the credential is per user.
type LLMGenerator struct {
	cfg    config.GenerationConfig
	logger *logging.Logger
}

// NewLLMGenerator returns a generator for the configured endpoint.
func NewLLMGenerator(cfg config.GenerationConfig, logger *logging.Logger) *LLMGenerator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LLMGenerator{cfg: cfg, logger: logger.Named("generator")}
}

// Generate implements Generator.
func (g *LLMGenerator) Generate(ctx context.Context, systemPrompt, userPrompt, contextText, credential string) (string, error) {
	if credential == "" {
		return "", ErrMissingCredential
	}

	llm, err := openai.New(
		openai.WithToken(credential),
		openai.WithBaseURL(g.cfg.BaseURL),
		openai.WithModel(g.cfg.Model),
	)
	if err != nil {
		return "", fmt.Errorf("creating completion client: %w", err)
	}

	resp, err := llm.GenerateContent(ctx, buildMessages(systemPrompt, userPrompt, contextText),
		llms.WithTemperature(g.cfg.Temperature),
		llms.WithMaxTokens(g.cfg.MaxTokens),
	)
	if err != nil {
		g.logger.Warn(ctx, "completion request failed",
			zap.String("model", g.cfg.Model), zap.Error(err))
		return "", fmt.Errorf("generating completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("agents: completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// buildMessages assembles the chat turn: the system prompt, retrieved
// project context as a second system message when present, then the
// user prompt.
func buildMessages(systemPrompt, userPrompt, contextText string) []llms.MessageContent {
	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt),
	}
	if contextText != "" {
		messages = append(messages, llms.TextParts(schema.ChatMessageTypeSystem,
			"Context from the ongoing project:\n"+contextText))
	}
	return append(messages, llms.TextParts(schema.ChatMessageTypeHuman, userPrompt))
}
