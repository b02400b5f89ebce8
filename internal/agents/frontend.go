package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/siteforgelabs/siteforged/internal/extraction"
	"github.com/siteforgelabs/siteforged/internal/logging"
	"github.com/siteforgelabs/siteforged/internal/section"
)

// SectionResult is the outcome of a frontend build.
type SectionResult struct {
	// Response is the raw generated text, kept for conversation logs.
	Response string

	// Code holds the extracted code blocks by language.
	Code map[extraction.Kind]string

	// Markup is the extracted HTML for the section, "" if none was
	// recoverable from the response.
	Markup string
}

// FrontendAgent generates individual page sections.
type FrontendAgent struct {
	gen    Generator
	logger *logging.Logger
}

// NewFrontendAgent returns a frontend agent backed by gen.
func NewFrontendAgent(gen Generator, logger *logging.Logger) *FrontendAgent {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FrontendAgent{gen: gen, logger: logger.Named("frontend")}
}

// GenerateSection builds one section from the user's requirements.
// existingCode carries previously built sections so styling stays
// consistent across the page; historyContext carries retrieved
// conversation context.
func (a *FrontendAgent) GenerateSection(ctx context.Context, name section.Name, requirements, existingCode, historyContext, credential string) (SectionResult, error) {
	prompt := buildSectionPrompt(name, requirements, existingCode)

	resp, err := a.gen.Generate(ctx, frontendSystemPrompt, prompt, historyContext, credential)
	if err != nil {
		return SectionResult{}, fmt.Errorf("generating %s section: %w", name, err)
	}

	blocks := extraction.Extract(resp)
	markup := blocks[extraction.HTML]
	if markup == "" {
		a.logger.Warn(ctx, "no markup recovered from section response",
			zap.String("section", string(name)),
			zap.Int("response_len", len(resp)))
	} else {
		a.logger.Debug(ctx, "section generated",
			zap.String("section", string(name)),
			zap.Int("markup_len", len(markup)))
	}

	return SectionResult{Response: resp, Code: blocks, Markup: markup}, nil
}
