// Package stage implements the guided conversation flow that walks a
// user through building a website section by section.
//
// The flow is a finite-state machine. Each user message is matched
// against an ordered transition table; the first matching rule for the
// current stage wins. Rules record gathered requirements, move the
// machine forward, and decide whether the next piece of work belongs to
// the lead agent (conversation) or the frontend agent (section build).
package stage

import "github.com/siteforgelabs/siteforged/internal/section"

// Stage is a named point in the guided conversation flow.
type Stage string

const (
	// StageInitial waits for the user to describe what they want to build.
	StageInitial Stage = "initial"

	// StageGatheringDetails collects the site name and color scheme.
	StageGatheringDetails Stage = "gathering_details"

	StageWaitingHeader   Stage = "waiting_header"
	StageHeader          Stage = "header"
	StageWaitingHero     Stage = "waiting_hero"
	StageHero            Stage = "hero"
	StageWaitingFeatures Stage = "waiting_features"
	StageFeatures        Stage = "features"
	StageWaitingFooter   Stage = "waiting_footer"
	StageFooter          Stage = "footer"

	// StageComplete is terminal but accepts regenerate commands that
	// re-enter any waiting stage.
	StageComplete Stage = "complete"
)

// AllStages returns every stage in flow order.
func AllStages() []Stage {
	return []Stage{
		StageInitial,
		StageGatheringDetails,
		StageWaitingHeader,
		StageHeader,
		StageWaitingHero,
		StageHero,
		StageWaitingFeatures,
		StageFeatures,
		StageWaitingFooter,
		StageFooter,
		StageComplete,
	}
}

// Known reports whether s is one of the enumerated stages.
func Known(s Stage) bool {
	for _, stage := range AllStages() {
		if s == stage {
			return true
		}
	}
	return false
}

// SectionFor maps a build stage to the section it produces. Unknown
// stages default to the header section.
func SectionFor(s Stage) section.Name {
	switch s {
	case StageHeader:
		return section.Header
	case StageHero:
		return section.Hero
	case StageFeatures:
		return section.Features
	case StageFooter:
		return section.Footer
	}
	return section.Header
}

// Agent identifies which collaborator handles the next step.
type Agent string

const (
	AgentLead     Agent = "lead"
	AgentFrontend Agent = "frontend"
)
