package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/siteforgelabs/siteforged/internal/extraction"
	"github.com/siteforgelabs/siteforged/internal/logging"
)

// BackendAgent generates the server-side API for a finished site.
type BackendAgent struct {
	gen    Generator
	logger *logging.Logger
}

// NewBackendAgent returns a backend agent backed by gen.
func NewBackendAgent(gen Generator, logger *logging.Logger) *BackendAgent {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &BackendAgent{gen: gen, logger: logger.Named("backend")}
}

// GenerateAPI produces a runnable Flask application covering the
// endpoints the generated frontend needs. The returned code is
// unwrapped from any markdown fencing.
func (a *BackendAgent) GenerateAPI(ctx context.Context, frontendRequirements, historyContext, credential string) (string, error) {
	resp, err := a.gen.Generate(ctx, backendSystemPrompt, buildAPIPrompt(frontendRequirements), historyContext, credential)
	if err != nil {
		return "", fmt.Errorf("generating backend API: %w", err)
	}

	code := extraction.ExtractSource(resp)
	a.logger.Debug(ctx, "backend API generated", zap.Int("code_len", len(code)))
	return code, nil
}
