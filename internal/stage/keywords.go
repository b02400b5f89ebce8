package stage

import "strings"

// Keyword vocabularies for transition triggers. Matching is
// case-insensitive substring matching; callers pass lowercased input.

var websiteIntentKeywords = []string{
	"website", "ecommerce", "portfolio", "blog", "landing", "business",
	"shop", "site", "page", "build", "create", "make",
}

var helpRequestKeywords = []string{
	"suggest", "help", "idea", "what should", "dont know", "don't know",
}

var footerFinishKeywords = []string{
	"footer", "finish", "done", "complete",
}

var moreFeaturesKeywords = []string{
	"more features", "another feature", "add feature",
}

var regenerateKeywords = []string{
	"regenerate", "rebuild", "fix",
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
