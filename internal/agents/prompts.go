package agents

import (
	"fmt"
	"strings"

	"github.com/siteforgelabs/siteforged/internal/section"
)

const frontendSystemPrompt = `You are an elite frontend designer creating premium, Framer-quality websites.

DESIGN STANDARDS:
- Rich, deep colors: #0A0A0A (black), #FAFAFA (white)
- Sophisticated gradients: linear-gradient(135deg, #667eea 0%, #764ba2 100%)
- Glass morphism: background: rgba(255,255,255,0.1); backdrop-filter: blur(10px);
- Subtle shadows: 0 8px 32px rgba(0,0,0,0.12)
- Smooth transitions: transition: all 0.4s cubic-bezier(0.4, 0, 0.2, 1);
- Hover lifts: transform: translateY(-4px) with stronger shadow
- Scroll-triggered fade-in and slide-up animations

CSS FOUNDATIONS:
:root {
  --primary: #667eea;
  --secondary: #764ba2;
  --dark: #0A0A0A;
  --light: #FAFAFA;
  --shadow: 0 10px 30px rgba(0,0,0,0.1);
  --radius: 16px;
  --transition: cubic-bezier(0.4, 0, 0.2, 1);
}
@keyframes fadeInUp {
  from { opacity: 0; transform: translateY(30px); }
  to { opacity: 1; transform: translateY(0); }
}

QUALITY CHECKLIST:
- Responsive breakpoints: 480px, 768px, 1024px, 1440px
- Semantic HTML5, ARIA labels, proper contrast
- Modern fonts: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto
- Consistent 8px spacing grid
- Interactive states: hover, active, focus

OUTPUT STRUCTURE:
Generate ONLY the section code with:
1. Inline <style> with all CSS
2. Semantic HTML5
3. <script> for interactions if needed
4. NO explanations, NO markdown wrappers
5. Production-ready, copy-paste code`

const backendSystemPrompt = `You are a backend engineer generating production-ready Flask APIs.

Every API you write:
1. Imports everything it needs
2. Enables CORS
3. Validates input and returns clear JSON errors (400, 404, 500)
4. Returns JSON from every endpoint
5. Ends with an if __name__ == '__main__' block running on 0.0.0.0:5000

GENERATE ONLY CODE, NO EXPLANATIONS, NO MARKDOWN, JUST RUNNABLE PYTHON.`

const testSystemPrompt = `You are a test engineer responsible for quality assurance of generated websites.

CHECK THE FRONTEND FOR:
- Buttons, forms, and navigation that work
- Responsive layout at mobile, tablet, and desktop widths
- Accessible markup (ARIA labels, contrast, keyboard navigation)
- Smooth animations without console errors

CHECK THE BACKEND FOR:
- Endpoints that respond correctly with proper error codes
- CORS configuration and input validation
- No obvious security issues

OUTPUT FORMAT:

TEST RESULTS:
===========

PASSED:
- list of passing checks

FAILED:
- list of failures with details

WARNINGS:
- potential issues or improvements

RECOMMENDATIONS:
- suggested fixes and enhancements`

// sectionGuides carry the per-section design reference embedded in the
// build prompt. Each shows the expected structure with concrete CSS.
var sectionGuides = map[section.Name]string{
	section.Header: `HEADER DESIGN GUIDE:

<style>
header {
  position: fixed;
  top: 0;
  width: 100%;
  z-index: 1000;
  background: rgba(255,255,255,0.8);
  backdrop-filter: blur(20px);
  transition: all 0.3s cubic-bezier(0.4,0,0.2,1);
}
header.scrolled { box-shadow: 0 4px 20px rgba(0,0,0,0.08); }
nav { display: flex; justify-content: space-between; align-items: center; padding: 1.5rem 5%; }
.logo { font-size: 1.5rem; font-weight: 700; }
.nav-links { display: flex; gap: 2rem; list-style: none; }
.nav-links a::after {
  content: ''; position: absolute; bottom: -5px; left: 0;
  width: 0; height: 2px; background: currentColor; transition: width 0.3s;
}
.nav-links a:hover::after { width: 100%; }
@media (max-width: 768px) { .nav-links { display: none; } }
</style>`,

	section.Hero: `HERO SECTION DESIGN GUIDE:

<style>
.hero {
  min-height: 100vh;
  display: grid;
  place-items: center;
  background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
  position: relative;
  overflow: hidden;
  color: white;
  text-align: center;
  padding: 2rem;
}
.hero h1 {
  font-size: clamp(2.5rem, 8vw, 5rem);
  font-weight: 700;
  line-height: 1.1;
  animation: fadeInUp 1s ease-out;
}
.hero-btn {
  display: inline-block;
  padding: 1rem 2.5rem;
  background: white;
  color: #667eea;
  border-radius: 50px;
  font-weight: 600;
  transition: all 0.4s cubic-bezier(0.4,0,0.2,1);
  box-shadow: 0 10px 30px rgba(0,0,0,0.2);
}
.hero-btn:hover { transform: translateY(-3px) scale(1.05); }
</style>`,

	section.Features: `FEATURES SECTION DESIGN GUIDE:

<style>
.features { padding: 6rem 5%; background: #FAFAFA; }
.features-grid {
  display: grid;
  grid-template-columns: repeat(auto-fit, minmax(300px, 1fr));
  gap: 2rem;
}
.feature-card {
  background: white;
  padding: 2.5rem;
  border-radius: 20px;
  box-shadow: 0 4px 20px rgba(0,0,0,0.05);
  transition: all 0.4s cubic-bezier(0.4,0,0.2,1);
}
.feature-card:hover {
  transform: translateY(-8px);
  box-shadow: 0 20px 40px rgba(0,0,0,0.12);
}
.feature-icon {
  width: 60px; height: 60px; border-radius: 16px;
  background: linear-gradient(135deg, #667eea, #764ba2);
  display: grid; place-items: center; color: white;
}
</style>
<script>
const observer = new IntersectionObserver(entries => {
  entries.forEach((entry, index) => {
    if (entry.isIntersecting) {
      setTimeout(() => entry.target.classList.add('animate-in'), index * 100);
    }
  });
}, { threshold: 0.1 });
document.querySelectorAll('.feature-card').forEach(card => observer.observe(card));
</script>`,

	section.Footer: `FOOTER DESIGN GUIDE:

<style>
footer { background: #0A0A0A; color: #FAFAFA; padding: 4rem 5% 2rem; }
.footer-container {
  max-width: 1200px;
  margin: 0 auto;
  display: grid;
  grid-template-columns: repeat(auto-fit, minmax(250px, 1fr));
  gap: 3rem;
}
.footer-links a { color: #999; transition: color 0.3s; }
.footer-links a:hover { color: #667eea; }
.social-icon {
  width: 40px; height: 40px; border-radius: 50%;
  background: rgba(255,255,255,0.1);
  display: grid; place-items: center; transition: all 0.3s;
}
.social-icon:hover { background: #667eea; transform: translateY(-3px); }
.footer-bottom {
  text-align: center; padding-top: 2rem;
  border-top: 1px solid rgba(255,255,255,0.1); color: #666;
}
</style>`,
}

func buildSectionPrompt(name section.Name, requirements, existingCode string) string {
	guide, ok := sectionGuides[name]
	if !ok {
		guide = "Create a stunning, professional section."
	}

	consistency := ""
	if existingCode != "" {
		consistency = "Existing sections to maintain consistency:\n" + existingCode + "\n\n"
	}

	return fmt.Sprintf(`Create a PREMIUM %s section:

USER REQUIREMENTS:
%s

DESIGN REFERENCE & CODE EXAMPLES:
%s

%sCRITICAL REQUIREMENTS:
1. Use the design patterns from the guide above
2. Include smooth animations and transitions
3. Add hover effects and micro-interactions
4. Make it fully responsive (mobile-first)
5. Use modern CSS (Grid, Flexbox, custom properties, clamp())
6. Include necessary JavaScript for interactions

OUTPUT FORMAT:
- Generate ONLY the section HTML with inline <style> and <script>
- NO full page structure, NO explanations
- Production-ready code that can be inserted directly`,
		strings.ToUpper(string(name)), requirements, guide, consistency)
}

func buildAPIPrompt(frontendRequirements string) string {
	return fmt.Sprintf(`Generate a complete Flask backend API for this website:

%s

REQUIRED ENDPOINTS:
- GET /api/health - Health check
- POST /api/contact - Contact form handler
- POST /api/subscribe - Newsletter subscription
- Add any other relevant endpoints based on the website type

Generate COMPLETE, PRODUCTION-READY Flask code that:
1. Includes ALL imports
2. Has CORS enabled
3. Validates all inputs
4. Handles errors properly
5. Returns JSON responses
6. Can run immediately with: python app.py

OUTPUT ONLY THE PYTHON CODE, NO EXPLANATIONS.`, frontendRequirements)
}

func buildTestPrompt(htmlCode, requirements string) string {
	return fmt.Sprintf(`Test this frontend code:

%s

Requirements to validate:
%s

Provide detailed test results.`, htmlCode, requirements)
}
