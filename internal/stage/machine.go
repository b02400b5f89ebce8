package stage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/siteforgelabs/siteforged/internal/logging"
	"github.com/siteforgelabs/siteforged/internal/section"
)

// TextGenerator produces conversational text from prompts. The lead
// agent satisfies this; tests substitute a fake.
type TextGenerator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt, contextText, credential string) (string, error)
}

// Result is the outcome of processing one user message.
type Result struct {
	// Response is the conversational reply shown to the user.
	Response string

	// NextAgent names who acts next: the lead agent keeps talking, the
	// frontend agent builds the section the machine just committed to.
	NextAgent Agent

	// Stage is the machine's stage after the transition.
	Stage Stage
}

// historyWindow bounds the recent-conversation context passed to the
// generator, counted in user/assistant exchanges.
const historyWindow = 2

type exchange struct {
	user      string
	assistant string
}

// Machine is the per-session conversation state machine. It is not
// safe for concurrent use; the orchestrator serializes per session.
type Machine struct {
	current   Stage
	waiting   section.Name
	gathered  map[string]string
	history   []exchange
	generator TextGenerator
	logger    *logging.Logger
}

// NewMachine returns a machine at the initial stage.
func NewMachine(generator TextGenerator, logger *logging.Logger) *Machine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Machine{
		current:   StageInitial,
		gathered:  make(map[string]string),
		generator: generator,
		logger:    logger.Named("stage"),
	}
}

// CurrentStage returns the machine's current stage.
func (m *Machine) CurrentStage() Stage { return m.current }

// WaitingFor returns the section the machine is waiting on, or "" when
// not in a waiting stage.
func (m *Machine) WaitingFor() section.Name { return m.waiting }

// GatheredInfo returns a copy of the requirements collected so far.
func (m *Machine) GatheredInfo() map[string]string {
	out := make(map[string]string, len(m.gathered))
	for k, v := range m.gathered {
		out[k] = v
	}
	return out
}

type trigger int

const (
	// triggerAny matches every message.
	triggerAny trigger = iota

	// triggerOtherwise matches every message; by convention it is the
	// last rule for a stage and catches what earlier rules did not.
	triggerOtherwise

	triggerWebsiteIntent
	triggerHelpRequest
	triggerFooterFinish
	triggerMoreFeatures
	triggerRegenHeader
	triggerRegenHero
	triggerRegenFeatures
	triggerRegenFooter
)

func (t trigger) matches(lower string) bool {
	switch t {
	case triggerAny, triggerOtherwise:
		return true
	case triggerWebsiteIntent:
		return containsAny(lower, websiteIntentKeywords)
	case triggerHelpRequest:
		return containsAny(lower, helpRequestKeywords)
	case triggerFooterFinish:
		return containsAny(lower, footerFinishKeywords)
	case triggerMoreFeatures:
		return containsAny(lower, moreFeaturesKeywords)
	case triggerRegenHeader:
		return containsAny(lower, regenerateKeywords) && strings.Contains(lower, "header")
	case triggerRegenHero:
		return containsAny(lower, regenerateKeywords) && strings.Contains(lower, "hero")
	case triggerRegenFeatures:
		return containsAny(lower, regenerateKeywords) && strings.Contains(lower, "feature")
	case triggerRegenFooter:
		return containsAny(lower, regenerateKeywords) && strings.Contains(lower, "footer")
	}
	return false
}

type responder func(ctx context.Context, m *Machine, message, historyContext, credential string) string

type rule struct {
	from    Stage
	trig    trigger
	to      Stage
	agent   Agent
	infoKey string       // gathered-info key to record the message under, "" for none
	waiting section.Name // section awaited after the transition, "" clears
	respond responder
}

// transitions is the full flow. Rules for the same stage are evaluated
// top to bottom; the first match wins.
var transitions = []rule{
	{from: StageInitial, trig: triggerWebsiteIntent, to: StageGatheringDetails, agent: AgentLead,
		infoKey: "type", respond: contextual(gatheringDetailsContext)},
	{from: StageInitial, trig: triggerOtherwise, to: StageInitial, agent: AgentLead,
		respond: contextual(initialGreetingContext)},

	{from: StageGatheringDetails, trig: triggerAny, to: StageWaitingHeader, agent: AgentLead,
		infoKey: "details", waiting: section.Header, respond: contextual(askHeaderContext)},

	{from: StageWaitingHeader, trig: triggerAny, to: StageHeader, agent: AgentFrontend,
		infoKey: "header_instructions", respond: building(section.Header)},
	{from: StageHeader, trig: triggerAny, to: StageWaitingHero, agent: AgentLead,
		waiting: section.Hero, respond: contextual(askHeroContext)},

	{from: StageWaitingHero, trig: triggerHelpRequest, to: StageWaitingHero, agent: AgentLead,
		waiting: section.Hero, respond: contextual(heroSuggestionsContext)},
	{from: StageWaitingHero, trig: triggerOtherwise, to: StageHero, agent: AgentFrontend,
		infoKey: "hero_instructions", respond: building(section.Hero)},
	{from: StageHero, trig: triggerAny, to: StageWaitingFeatures, agent: AgentLead,
		waiting: section.Features, respond: contextual(askFeaturesContext)},

	{from: StageWaitingFeatures, trig: triggerHelpRequest, to: StageWaitingFeatures, agent: AgentLead,
		waiting: section.Features, respond: contextual(featureSuggestionsContext)},
	{from: StageWaitingFeatures, trig: triggerOtherwise, to: StageFeatures, agent: AgentFrontend,
		infoKey: "features_instructions", respond: building(section.Features)},
	{from: StageFeatures, trig: triggerFooterFinish, to: StageWaitingFooter, agent: AgentLead,
		waiting: section.Footer, respond: contextual(askFooterContext)},
	{from: StageFeatures, trig: triggerMoreFeatures, to: StageWaitingFeatures, agent: AgentLead,
		waiting: section.Features, respond: contextual(moreFeaturesContext)},
	{from: StageFeatures, trig: triggerOtherwise, to: StageFeatures, agent: AgentLead,
		respond: contextual(readyForFooterContext)},

	{from: StageWaitingFooter, trig: triggerAny, to: StageFooter, agent: AgentFrontend,
		infoKey: "footer_instructions", respond: building(section.Footer)},
	{from: StageFooter, trig: triggerAny, to: StageComplete, agent: AgentLead,
		respond: fixed(completionMessage)},

	{from: StageComplete, trig: triggerRegenHeader, to: StageWaitingHeader, agent: AgentLead,
		waiting: section.Header, respond: fixed(regenPrompt(section.Header))},
	{from: StageComplete, trig: triggerRegenHero, to: StageWaitingHero, agent: AgentLead,
		waiting: section.Hero, respond: fixed(regenPrompt(section.Hero))},
	{from: StageComplete, trig: triggerRegenFeatures, to: StageWaitingFeatures, agent: AgentLead,
		waiting: section.Features, respond: fixed(regenPrompt(section.Features))},
	{from: StageComplete, trig: triggerRegenFooter, to: StageWaitingFooter, agent: AgentLead,
		waiting: section.Footer, respond: fixed(regenPrompt(section.Footer))},
	{from: StageComplete, trig: triggerOtherwise, to: StageComplete, agent: AgentLead,
		respond: fixed(completeIdleMessage)},
}

// Process advances the machine with one user message and returns the
// reply plus routing for the next step. historyContext carries
// retrieved long-range context; credential is the generation API key.
func (m *Machine) Process(ctx context.Context, message, historyContext, credential string) Result {
	lower := strings.ToLower(message)
	for _, r := range transitions {
		if r.from != m.current || !r.trig.matches(lower) {
			continue
		}
		if r.infoKey != "" {
			m.gathered[r.infoKey] = message
		}
		m.current = r.to
		m.waiting = r.waiting
		return Result{
			Response:  r.respond(ctx, m, message, historyContext, credential),
			NextAgent: r.agent,
			Stage:     m.current,
		}
	}

	// No rule matched: the stage is corrupt. Report what we are waiting
	// for without advancing or mutating state.
	m.logger.Warn(ctx, "message received in unknown stage",
		zap.String("stage", string(m.current)))
	waiting := "your input"
	if m.waiting != "" {
		waiting = string(m.waiting) + " section details"
	}
	return Result{
		Response:  fmt.Sprintf("I'm currently waiting for: %s. What would you like to do?", waiting),
		NextAgent: AgentLead,
		Stage:     m.current,
	}
}

// contextual wraps a per-stage context builder into a responder that
// generates a conversational reply, falling back to canned guidance
// when generation fails.
func contextual(stageContext func(m *Machine, message string) string) responder {
	return func(ctx context.Context, m *Machine, message, historyContext, credential string) string {
		return m.generateResponse(ctx, message, stageContext(m, message), historyContext, credential)
	}
}

// building produces the deterministic handoff line for a section build.
// No text generation happens here; the frontend agent does the work.
func building(n section.Name) responder {
	label := string(n)
	if n == section.Hero || n == section.Features {
		label += " section"
	}
	return func(_ context.Context, _ *Machine, message, _, _ string) string {
		return fmt.Sprintf("Building %s: %s", label, message)
	}
}

func fixed(text string) responder {
	return func(context.Context, *Machine, string, string, string) string {
		return text
	}
}

func (m *Machine) generateResponse(ctx context.Context, message, stageContext, historyContext, credential string) string {
	prompt := m.buildPrompt(message, stageContext)
	contextText := historyContext
	if recent := m.recentHistory(); recent != "" {
		if contextText != "" {
			contextText += "\n\n"
		}
		contextText += recent
	}

	resp, err := m.generator.Generate(ctx, leadSystemPrompt, prompt, contextText, credential)
	if err != nil {
		m.logger.Warn(ctx, "lead response generation failed",
			zap.String("stage", string(m.current)), zap.Error(err))
		resp = fallbackText(m.current)
	}
	m.remember(message, resp)
	return resp
}

func (m *Machine) buildPrompt(message, stageContext string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Current Stage**: %s\n", m.current)
	fmt.Fprintf(&sb, "**Gathered Info**: %s\n", m.gatheredSummary())
	fmt.Fprintf(&sb, "**Stage Context**: %s\n", stageContext)
	fmt.Fprintf(&sb, "**User Message**: %s\n", message)
	sb.WriteString(`
Generate a helpful, conversational response that:
1. Acknowledges what the user said
2. Provides relevant suggestions or examples based on their website type
3. Guides them on what to do next
4. Keeps it friendly and encouraging (2-3 sentences max)`)
	return sb.String()
}

func (m *Machine) gatheredSummary() string {
	if len(m.gathered) == 0 {
		return "(none yet)"
	}
	keys := make([]string, 0, len(m.gathered))
	for k := range m.gathered {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+m.gathered[k])
	}
	return strings.Join(parts, "; ")
}

func (m *Machine) remember(user, assistant string) {
	m.history = append(m.history, exchange{user: user, assistant: assistant})
	if len(m.history) > historyWindow {
		m.history = m.history[len(m.history)-historyWindow:]
	}
}

func (m *Machine) recentHistory() string {
	if len(m.history) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Recent conversation:")
	for _, ex := range m.history {
		fmt.Fprintf(&sb, "\nUser: %s\nAssistant: %s", ex.user, ex.assistant)
	}
	return sb.String()
}
