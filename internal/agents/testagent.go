package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/siteforgelabs/siteforged/internal/logging"
)

// TestAgent reviews generated code and reports on its quality.
type TestAgent struct {
	gen    Generator
	logger *logging.Logger
}

// NewTestAgent returns a test agent backed by gen.
func NewTestAgent(gen Generator, logger *logging.Logger) *TestAgent {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &TestAgent{gen: gen, logger: logger.Named("tests")}
}

// TestFrontend evaluates the assembled site against the user's
// requirements and returns a structured test report.
func (a *TestAgent) TestFrontend(ctx context.Context, htmlCode, requirements, credential string) (string, error) {
	report, err := a.gen.Generate(ctx, testSystemPrompt, buildTestPrompt(htmlCode, requirements), "", credential)
	if err != nil {
		return "", fmt.Errorf("running frontend tests: %w", err)
	}

	a.logger.Debug(ctx, "test report produced", zap.Int("report_len", len(report)))
	return report, nil
}
