package orchestrator

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"time"
)

const backendRequirementsTxt = `flask
flask-cors
`

const backendEnvExample = `# Backend configuration
FLASK_ENV=development
PORT=5000
`

// BuildDownloadPackage assembles the project zip for a session:
// the website, backend API (when substantial), test results, and a
// README. Returns ErrNoSession for unknown sessions and ErrNoSections
// before any section is built.
func (o *Orchestrator) BuildDownloadPackage(sessionID string) ([]byte, error) {
	o.mu.RLock()
	s, ok := o.sessions[sessionID]
	o.mu.RUnlock()
	if !ok {
		return nil, ErrNoSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sections.Len() == 0 {
		return nil, ErrNoSections
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	files := []struct {
		name    string
		content string
	}{
		{"frontend/index.html", s.sections.Assemble()},
	}

	includeBackend := len(s.backendCode) > minBackendArtifact
	if includeBackend {
		files = append(files,
			struct{ name, content string }{"backend/app.py", s.backendCode},
			struct{ name, content string }{"backend/requirements.txt", backendRequirementsTxt},
			struct{ name, content string }{"backend/.env.example", backendEnvExample},
		)
	}
	if s.testReport != "" {
		files = append(files, struct{ name, content string }{"TEST_RESULTS.md", s.testReport})
	}
	files = append(files, struct{ name, content string }{"README.md", o.buildReadme(s, includeBackend)})

	for _, f := range files {
		fw, err := w.Create(f.name)
		if err != nil {
			return nil, fmt.Errorf("adding %s to package: %w", f.name, err)
		}
		if _, err := fw.Write([]byte(f.content)); err != nil {
			return nil, fmt.Errorf("writing %s: %w", f.name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing package: %w", err)
	}
	return buf.Bytes(), nil
}

func (o *Orchestrator) buildReadme(s *session, includeBackend bool) string {
	var sb strings.Builder
	sb.WriteString("# Your Generated Website\n\n")
	fmt.Fprintf(&sb, "Generated on %s.\n\n", time.Now().UTC().Format("2006-01-02"))

	sb.WriteString("## Contents\n\n")
	sb.WriteString("- `frontend/index.html` - the complete website")
	for _, name := range s.sections.Completed() {
		fmt.Fprintf(&sb, "\n  - %s section", name)
	}
	sb.WriteString("\n")
	if includeBackend {
		sb.WriteString("- `backend/app.py` - Flask API (health check, contact form, newsletter)\n")
		sb.WriteString("- `backend/requirements.txt` - Python dependencies\n")
		sb.WriteString("- `backend/.env.example` - environment template\n")
	}
	if s.testReport != "" {
		sb.WriteString("- `TEST_RESULTS.md` - automated quality report\n")
	}

	sb.WriteString("\n## Running the site\n\n")
	sb.WriteString("Open `frontend/index.html` in any browser.\n")
	if includeBackend {
		sb.WriteString("\n## Running the backend\n\n")
		sb.WriteString("```\ncd backend\npip install -r requirements.txt\npython app.py\n```\n")
		sb.WriteString("\nThe API listens on http://localhost:5000.\n")
	}
	return sb.String()
}
