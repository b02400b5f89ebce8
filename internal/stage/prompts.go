package stage

import (
	"fmt"

	"github.com/siteforgelabs/siteforged/internal/section"
)

// leadSystemPrompt frames every generated conversational reply.
const leadSystemPrompt = `You are a friendly website building assistant guiding a user through
creating their website one section at a time. You coordinate the build
but never write code yourself. Be warm, concrete, and brief.`

const completionMessage = `**Your website is complete!**

All four sections are built, the backend API is being generated, and automated tests are running against the result.

Click **Download** to get your full project: the assembled website, a backend API, test results, and setup instructions.`

const completeIdleMessage = `Your website is ready! You can download it now, or start a new project with Reset.

If any section isn't quite right, say "regenerate" plus the section name, for example "regenerate features".`

func regenPrompt(n section.Name) string {
	return fmt.Sprintf("Let's rebuild the %s! Describe how you want it:", n)
}

// Stage context builders. Each returns the situational instruction the
// generator sees for one transition; the user's raw message is passed
// separately.

func initialGreetingContext(*Machine, string) string {
	return "The user has not described a website yet. Greet them and ask what kind of website they want to build, offering a few examples (ecommerce, portfolio, blog, landing page)."
}

func gatheringDetailsContext(m *Machine, _ string) string {
	return fmt.Sprintf("The user wants to build: %s. Ask for the website's name and preferred color scheme.", m.gathered["type"])
}

func askHeaderContext(m *Machine, _ string) string {
	return fmt.Sprintf("Details gathered for a %s website. Ask the user to describe the header: logo text, navigation links, and style.", m.gathered["type"])
}

func askHeroContext(m *Machine, _ string) string {
	return fmt.Sprintf("The header is being built for their %s website. Ask for the hero section: headline, subtitle, and call-to-action button.", m.gathered["type"])
}

func heroSuggestionsContext(m *Machine, _ string) string {
	return fmt.Sprintf("The user asked for hero section ideas for their %s website. Suggest two or three concrete headline and call-to-action combinations, then ask which they prefer.", m.gathered["type"])
}

func askFeaturesContext(m *Machine, _ string) string {
	return fmt.Sprintf("The hero is being built for their %s website. Ask which features or services the site should showcase.", m.gathered["type"])
}

func featureSuggestionsContext(m *Machine, _ string) string {
	return fmt.Sprintf("The user asked for feature ideas for their %s website. Suggest a few fitting features, then ask which to include.", m.gathered["type"])
}

func moreFeaturesContext(*Machine, string) string {
	return "The user wants to add more features. Ask what additional features to include."
}

func readyForFooterContext(*Machine, string) string {
	return "The features section is done. Tell the user the footer is next (contact info, social links, sitemap) and ask them to describe it, or to say 'finish' to use a standard one."
}

func askFooterContext(*Machine, string) string {
	return "Ask the user what the footer should include: contact details, social media links, copyright line."
}

// fallbackText is the canned reply used when generation fails. Keyed by
// the stage the machine has already advanced to.
func fallbackText(s Stage) string {
	switch s {
	case StageInitial:
		return "What kind of website would you like to build? For example: an online shop, a portfolio, a blog, or a landing page."
	case StageGatheringDetails:
		return "Great choice! What should the website be called, and do you have a color scheme in mind?"
	case StageWaitingHeader:
		return "Let's start with the header. Describe the logo text, navigation links, and style you'd like."
	case StageWaitingHero:
		return "Time for the hero section. What headline, subtitle, and call-to-action should it show?"
	case StageWaitingFeatures:
		return "Which features or services should your site showcase? I can suggest some if you're not sure."
	case StageFeatures:
		return "Ready for the footer? It usually holds contact info, social links, and a copyright line. Describe yours, or say 'finish' for a standard one."
	case StageWaitingFooter:
		return "Last step: what should the footer include? Contact details, social links, anything else?"
	}
	return "Let's keep going. Tell me more about what you'd like."
}
