// Package extraction pulls code blocks out of generated text.
//
// Generators are asked for bare code but frequently wrap it in
// markdown fences or prepend prose. The extractor recovers the usable
// code per language and tolerates missing or untagged fences.
package extraction

import "strings"

// Kind labels an extracted code block by language.
type Kind string

const (
	HTML   Kind = "html"
	CSS    Kind = "css"
	JS     Kind = "js"
	Python Kind = "python"
)

// htmlMarkers are tag fragments that identify an unfenced response as
// raw HTML.
var htmlMarkers = []string{"<style>", "<script>", "<section", "<header", "<footer"}

// Extract returns the code blocks found in text, keyed by language.
// Kinds with no block are absent from the map.
//
// HTML recovery is layered: a tagged fence wins; otherwise the first
// untagged fence is used if its contents look like markup; otherwise a
// fenceless response containing HTML tags is taken whole.
func Extract(text string) map[Kind]string {
	blocks := make(map[Kind]string)

	switch {
	case strings.Contains(text, "```html"):
		if html, ok := fenced(text, "html"); ok {
			blocks[HTML] = html
		}
	case strings.Contains(text, "```"):
		if body, ok := firstFence(text); ok && strings.Contains(body, "<") && strings.Contains(body, ">") {
			blocks[HTML] = body
		}
	case containsAny(text, htmlMarkers):
		blocks[HTML] = strings.TrimSpace(text)
	}

	if css, ok := fenced(text, "css"); ok {
		blocks[CSS] = css
	}
	if js, ok := fenced(text, "javascript"); ok {
		blocks[JS] = js
	} else if js, ok := fenced(text, "js"); ok {
		blocks[JS] = js
	}
	if py, ok := fenced(text, "python"); ok {
		blocks[Python] = py
	}

	return blocks
}

// ExtractSource unwraps a single source file from text. A python fence
// wins, then any fence, then the trimmed text as-is. Used for backend
// code where the whole response is expected to be one file.
func ExtractSource(text string) string {
	if py, ok := fenced(text, "python"); ok {
		return py
	}
	if body, ok := firstFence(text); ok {
		return body
	}
	return strings.TrimSpace(text)
}

// fenced returns the contents of the first ```<lang> fence in text.
func fenced(text, lang string) (string, bool) {
	marker := "```" + lang
	start := strings.Index(text, marker)
	if start < 0 {
		return "", false
	}
	start += len(marker)
	end := strings.Index(text[start:], "```")
	if end <= 0 {
		return "", false
	}
	return strings.TrimSpace(text[start : start+end]), true
}

// firstFence returns the contents of the first untagged ``` fence.
// Fences tagged with a language are matched too; the tag line is kept,
// so callers should prefer fenced for known languages.
func firstFence(text string) (string, bool) {
	start := strings.Index(text, "```")
	if start < 0 {
		return "", false
	}
	start += 3
	if start < len(text) && text[start] == '\n' {
		start++
	}
	end := strings.Index(text[start:], "```")
	if end <= 0 {
		return "", false
	}
	return strings.TrimSpace(text[start : start+end]), true
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
