package section

import "fmt"

// Store maps section names to generated markup for one session.
//
// Store is not safe for concurrent use; the orchestrator serializes
// access per session.
type Store struct {
	sections map[Name]string
}

// NewStore returns an empty section store.
func NewStore() *Store {
	return &Store{sections: make(map[Name]string)}
}

// Set stores markup for a section, replacing any prior content for
// that section only.
func (s *Store) Set(n Name, markup string) {
	s.sections[n] = markup
}

// Get returns the stored markup for a section, or "" if absent.
func (s *Store) Get(n Name) string {
	return s.sections[n]
}

// Len returns the number of sections with stored markup.
func (s *Store) Len() int {
	return len(s.sections)
}

// Completed returns the names of stored sections in assembly order.
func (s *Store) Completed() []Name {
	names := make([]Name, 0, len(s.sections))
	for _, n := range Order() {
		if _, ok := s.sections[n]; ok {
			names = append(names, n)
		}
	}
	return names
}

// Snapshot returns a copy of the current section contents.
func (s *Store) Snapshot() map[Name]string {
	out := make(map[Name]string, len(s.sections))
	for n, markup := range s.sections {
		out[n] = markup
	}
	return out
}

// documentShell wraps the four section slots with a reset stylesheet
// and base typography. Slots are filled in assembly order.
const documentShell = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Siteforged Website</title>
    <style>
        *, *::before, *::after {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }

        :root {
            --font-base: -apple-system, BlinkMacSystemFont, 'Segoe UI', 'Roboto', 'Helvetica Neue', sans-serif;
            --transition-smooth: cubic-bezier(0.4, 0, 0.2, 1);
        }

        html {
            scroll-behavior: smooth;
            -webkit-font-smoothing: antialiased;
        }

        body {
            font-family: var(--font-base);
            line-height: 1.6;
            overflow-x: hidden;
        }

        img {
            max-width: 100%%;
            height: auto;
            display: block;
        }

        a {
            text-decoration: none;
            color: inherit;
        }

        button {
            font-family: inherit;
            border: none;
            cursor: pointer;
        }
    </style>
</head>
<body>
    %s
    %s
    %s
    %s
</body>
</html>`

// Assemble injects each stored section into its fixed slot of the
// document shell. Missing sections render as empty strings, so the
// assembled document is well-formed even mid-build.
func (s *Store) Assemble() string {
	return fmt.Sprintf(documentShell,
		s.sections[Header],
		s.sections[Hero],
		s.sections[Features],
		s.sections[Footer],
	)
}
