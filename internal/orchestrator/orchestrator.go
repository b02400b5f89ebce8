// Package orchestrator coordinates the conversation flow, the
// specialist agents, and per-session build artifacts.
//
// Each session owns a stage machine and a section store. User messages
// run through the machine; when it hands off to the frontend agent the
// orchestrator builds the section, advances the conversation, and, once
// the footer lands, generates the backend API and test report.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/siteforgelabs/siteforged/internal/agents"
	"github.com/siteforgelabs/siteforged/internal/logging"
	"github.com/siteforgelabs/siteforged/internal/section"
	"github.com/siteforgelabs/siteforged/internal/stage"
	"github.com/siteforgelabs/siteforged/internal/telemetry"
)

var tracer = otel.Tracer("siteforged.orchestrator")

var (
	// ErrNoSession is returned when an operation targets a session
	// that was never started.
	ErrNoSession = errors.New("orchestrator: no such session")

	// ErrNoSections is returned when a download is requested before
	// any section has been built.
	ErrNoSections = errors.New("orchestrator: no sections built yet")
)

// backendRequirementsLimit caps how much of the assembled frontend is
// embedded in the backend generation prompt.
const backendRequirementsLimit = 1500

// minBackendArtifact is the threshold below which generated backend
// code is considered too small to ship in the download package.
const minBackendArtifact = 100

// SectionBuilder builds one page section. *agents.FrontendAgent
// implements this.
type SectionBuilder interface {
	GenerateSection(ctx context.Context, name section.Name, requirements, existingCode, historyContext, credential string) (agents.SectionResult, error)
}

// APIGenerator produces backend code. *agents.BackendAgent implements
// this.
type APIGenerator interface {
	GenerateAPI(ctx context.Context, frontendRequirements, historyContext, credential string) (string, error)
}

// FrontendTester reviews the assembled site. *agents.TestAgent
// implements this.
type FrontendTester interface {
	TestFrontend(ctx context.Context, htmlCode, requirements, credential string) (string, error)
}

// ContextStore persists and retrieves conversation history.
type ContextStore interface {
	Append(ctx context.Context, sessionID, agent, stageName, userMessage, agentResponse string) error
	Retrieve(ctx context.Context, sessionID, query string, topK int) (string, error)
	Clear(ctx context.Context, sessionID string) error
}

// Orchestrator owns all live sessions.
type Orchestrator struct {
	generator agents.Generator
	frontend  SectionBuilder
	backend   APIGenerator
	tester    FrontendTester
	store     ContextStore
	metrics   *telemetry.Metrics
	logger    *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

// New wires an orchestrator. metrics may be nil.
func New(generator agents.Generator, frontend SectionBuilder, backend APIGenerator, tester FrontendTester, store ContextStore, metrics *telemetry.Metrics, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		generator: generator,
		frontend:  frontend,
		backend:   backend,
		tester:    tester,
		store:     store,
		metrics:   metrics,
		logger:    logger.Named("orchestrator"),
		sessions:  make(map[string]*session),
	}
}

// SessionID derives the session identifier for a user.
func SessionID(username string) string {
	return username + "_session"
}

// Reply is the outcome of one processed message.
type Reply struct {
	// Message is the conversational reply to show the user. After a
	// section build it is the prompt for the next step.
	Message string `json:"message"`

	// Agent handled the turn: "lead" for conversation, "frontend"
	// when a section was built.
	Agent stage.Agent `json:"agent"`

	// Stage is the flow stage the message landed in.
	Stage stage.Stage `json:"stage"`

	// Section names the section built this turn, "" if none.
	Section section.Name `json:"section,omitempty"`

	// Preview is the assembled document, "" until a section exists.
	Preview string `json:"preview,omitempty"`

	// Completed lists built sections in assembly order.
	Completed []section.Name `json:"completed"`

	// BackendBuilt reports whether backend artifacts exist.
	BackendBuilt bool `json:"backend_built"`
}

// ProcessMessage runs one user message through the session's flow.
// credential is the generation API key resolved for the caller.
func (o *Orchestrator) ProcessMessage(ctx context.Context, sessionID, message, credential string) (Reply, error) {
	ctx, span := tracer.Start(ctx, "orchestrator.ProcessMessage")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	s := o.getOrCreate(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()

	historyContext, err := o.store.Retrieve(ctx, sessionID, message, 0)
	if err != nil {
		o.logger.Warn(ctx, "context retrieval failed",
			zap.String("session_id", sessionID), zap.Error(err))
		historyContext = ""
	}

	res := s.machine.Process(ctx, message, historyContext, credential)
	reply := Reply{
		Message: res.Response,
		Agent:   res.NextAgent,
		Stage:   res.Stage,
	}
	o.appendHistory(ctx, sessionID, string(stage.AgentLead), string(res.Stage), message, res.Response)

	if res.NextAgent == stage.AgentFrontend {
		name := stage.SectionFor(res.Stage)
		reply.Section = name

		o.buildSection(ctx, s, sessionID, name, res.Stage, message, historyContext, credential)

		// Advance the flow past the build so the user gets the next
		// prompt instead of the internal handoff line.
		adv := s.machine.Process(ctx, fmt.Sprintf("Section %s complete", name), historyContext, credential)
		reply.Message = adv.Response

		if name == section.Footer {
			o.autoBuild(ctx, s, sessionID, historyContext, credential)
		}
	}

	if o.metrics != nil {
		o.metrics.MessagesProcessed.WithLabelValues(string(res.Stage), string(res.NextAgent)).Inc()
	}

	reply.Completed = s.sections.Completed()
	reply.BackendBuilt = s.backendCode != ""
	if s.sections.Len() > 0 {
		reply.Preview = s.sections.Assemble()
	}
	return reply, nil
}

// buildSection generates one section and stores its markup. Failures
// leave the section store untouched.
func (o *Orchestrator) buildSection(ctx context.Context, s *session, sessionID string, name section.Name, st stage.Stage, requirements, historyContext, credential string) {
	existing := existingMarkup(s.sections)

	res, err := o.frontend.GenerateSection(ctx, name, requirements, existing, historyContext, credential)
	switch {
	case err != nil:
		o.logger.Error(ctx, "section build failed",
			zap.String("session_id", sessionID),
			zap.String("section", string(name)),
			zap.Error(err))
		o.countBuild(name, "failed")
		o.countGenerationFailure("frontend")
	case res.Markup == "":
		o.logger.Warn(ctx, "section build produced no markup",
			zap.String("session_id", sessionID),
			zap.String("section", string(name)))
		o.countBuild(name, "failed")
	default:
		s.sections.Set(name, res.Markup)
		o.countBuild(name, "ok")
		o.appendHistory(ctx, sessionID, string(stage.AgentFrontend), string(st), requirements, res.Response)
		o.logger.Info(ctx, "section built",
			zap.String("session_id", sessionID),
			zap.String("section", string(name)),
			zap.Int("markup_len", len(res.Markup)))
	}
}

// appendHistory persists one interaction; storage failures degrade to
// a warning so the conversation keeps flowing.
func (o *Orchestrator) appendHistory(ctx context.Context, sessionID, agent, stageName, userMessage, response string) {
	if err := o.store.Append(ctx, sessionID, agent, stageName, userMessage, response); err != nil {
		o.logger.Warn(ctx, "failed to persist exchange",
			zap.String("session_id", sessionID),
			zap.String("agent", agent),
			zap.Error(err))
	}
}

// autoBuild generates the backend API and test report once the footer
// completes. Generation failures keep any prior artifact; empty output
// is stored verbatim with a warning.
func (o *Orchestrator) autoBuild(ctx context.Context, s *session, sessionID, historyContext, credential string) {
	combined := s.sections.Assemble()
	requirements := combined
	if len(requirements) > backendRequirementsLimit {
		requirements = requirements[:backendRequirementsLimit]
	}

	code, err := o.backend.GenerateAPI(ctx, requirements, historyContext, credential)
	if err != nil {
		o.logger.Error(ctx, "backend generation failed",
			zap.String("session_id", sessionID), zap.Error(err))
		o.countGenerationFailure("backend")
	} else {
		if code == "" {
			o.logger.Warn(ctx, "backend generation returned empty code",
				zap.String("session_id", sessionID))
		}
		s.backendCode = code
		o.appendHistory(ctx, sessionID, "backend", string(s.machine.CurrentStage()),
			"Generate the backend API for the assembled site", code)
	}

	report, err := o.tester.TestFrontend(ctx, combined, o.requirementsSummary(s), credential)
	if err != nil {
		o.logger.Error(ctx, "test generation failed",
			zap.String("session_id", sessionID), zap.Error(err))
		o.countGenerationFailure("tests")
	} else {
		if report == "" {
			o.logger.Warn(ctx, "test generation returned empty report",
				zap.String("session_id", sessionID))
		}
		s.testReport = report
		o.appendHistory(ctx, sessionID, "test", string(s.machine.CurrentStage()),
			"Review the assembled frontend", report)
	}
}

// requirementsSummary condenses gathered info into the test prompt.
func (o *Orchestrator) requirementsSummary(s *session) string {
	info := s.machine.GatheredInfo()
	parts := make([]string, 0, len(info))
	for _, key := range []string{"type", "details", "header_instructions", "hero_instructions", "features_instructions", "footer_instructions"} {
		if v, ok := info[key]; ok {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "\n")
}

// existingMarkup concatenates built sections in assembly order for
// style consistency in follow-up builds.
func existingMarkup(store *section.Store) string {
	var sb strings.Builder
	for _, name := range store.Completed() {
		sb.WriteString(store.Get(name))
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

// Preview returns the assembled document for a session, or "" when
// the session does not exist or has no built sections yet.
func (o *Orchestrator) Preview(sessionID string) string {
	o.mu.RLock()
	s, ok := o.sessions[sessionID]
	o.mu.RUnlock()
	if !ok {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sections.Len() == 0 {
		return ""
	}
	return s.sections.Assemble()
}

// Status summarizes a session's progress.
type Status struct {
	Exists       bool           `json:"exists"`
	Stage        stage.Stage    `json:"stage,omitempty"`
	WaitingFor   section.Name   `json:"waiting_for,omitempty"`
	Completed    []section.Name `json:"completed"`
	BackendBuilt bool           `json:"backend_built"`
	TestsRun     bool           `json:"tests_run"`
	CreatedAt    time.Time      `json:"created_at,omitzero"`
	LastActive   time.Time      `json:"last_active,omitzero"`
}

// Status reports where a session stands.
func (o *Orchestrator) Status(sessionID string) Status {
	o.mu.RLock()
	s, ok := o.sessions[sessionID]
	o.mu.RUnlock()
	if !ok {
		return Status{Completed: []section.Name{}}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Exists:       true,
		Stage:        s.machine.CurrentStage(),
		WaitingFor:   s.machine.WaitingFor(),
		Completed:    s.sections.Completed(),
		BackendBuilt: s.backendCode != "",
		TestsRun:     s.testReport != "",
		CreatedAt:    s.createdAt,
		LastActive:   s.lastActive,
	}
}

// Reset discards a session's conversation state, sections, artifacts,
// and stored history. Resetting an unknown session only clears stored
// history.
func (o *Orchestrator) Reset(ctx context.Context, sessionID string) error {
	o.mu.Lock()
	if _, ok := o.sessions[sessionID]; ok {
		o.sessions[sessionID] = o.newSession()
	}
	o.mu.Unlock()

	if err := o.store.Clear(ctx, sessionID); err != nil {
		return fmt.Errorf("clearing stored history: %w", err)
	}
	o.logger.Info(ctx, "session reset", zap.String("session_id", sessionID))
	return nil
}

func (o *Orchestrator) newSession() *session {
	return &session{
		machine:    stage.NewMachine(o.generator, o.logger),
		sections:   section.NewStore(),
		createdAt:  time.Now(),
		lastActive: time.Now(),
	}
}

func (o *Orchestrator) getOrCreate(sessionID string) *session {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[sessionID]
	if !ok {
		s = o.newSession()
		o.sessions[sessionID] = s
		if o.metrics != nil {
			o.metrics.ActiveSessions.Set(float64(len(o.sessions)))
		}
	}
	return s
}

func (o *Orchestrator) countBuild(name section.Name, status string) {
	if o.metrics != nil {
		o.metrics.SectionBuilds.WithLabelValues(string(name), status).Inc()
	}
}

func (o *Orchestrator) countGenerationFailure(agent string) {
	if o.metrics != nil {
		o.metrics.GenerationFailures.WithLabelValues(agent).Inc()
	}
}

// session is the per-conversation state. Its mutex serializes all
// message processing for the session.
type session struct {
	mu          sync.Mutex
	machine     *stage.Machine
	sections    *section.Store
	backendCode string
	testReport  string
	createdAt   time.Time
	lastActive  time.Time
}
