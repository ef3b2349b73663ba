// Package severity applies heuristic overrides to LLM-assigned comment
// severities: exploitable vulnerabilities are escalated to blocker,
// security smells and security-category comments are pinned to warning,
// and comments that are purely about style are capped at nitpick.
package severity

import (
	"regexp"
	"strings"

	"github.com/miracodeai/mira/internal/diffreview/domain"
)

// exploitableKeywords name vulnerability classes serious enough to force
// domain.SeverityBlocker regardless of what the LLM assigned.
var exploitableKeywords = []string{
	"sql injection",
	"xss",
	"cross-site scripting",
	"command injection",
	"shell injection",
	"path traversal",
	"directory traversal",
	"remote code execution",
	"arbitrary code",
	"eval(",
	"exec(",
	"deserialization",
	"buffer overflow",
}

// exploitableWordPatterns catches short acronyms that need word-boundary
// matching to avoid false positives against ordinary prose.
var exploitableWordPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\brce\b`),
	regexp.MustCompile(`\bcsrf\b`),
	regexp.MustCompile(`\bssrf\b`),
}

// securitySmellKeywords mark bad security practice that isn't directly
// exploitable; these pin the comment at domain.SeverityWarning.
var securitySmellKeywords = []string{
	"hardcoded",
	"default key",
	"default password",
	"default secret",
	"insecure default",
	"missing error handling",
	"missing validation",
	"insecure",
	"vulnerability",
}

// styleKeywords mark comments about formatting/naming rather than behavior.
var styleKeywords = []string{
	"naming convention",
	"variable name",
	"formatting",
	"whitespace",
	"indentation",
	"line length",
	"import order",
	"unused import",
	"trailing whitespace",
	"blank line",
}

// substantiveKeywords disqualify a comment from being "style only" even if
// it also mentions a style keyword.
var substantiveKeywords = []string{"bug", "error", "crash", "security", "vulnerability"}

// Classify applies the heuristic overrides to comment's severity, returning
// a copy. The LLM-assigned severity is trusted except where these rules
// detect a stronger or weaker signal in the comment's own text.
func Classify(comment domain.ReviewComment) domain.ReviewComment {
	text := strings.ToLower(comment.Title + " " + comment.Body)
	isSecurityCategory := comment.Category == "security"

	if isExploitable(text) {
		if comment.Severity < domain.SeverityBlocker {
			return comment.WithSeverity(domain.SeverityBlocker)
		}
		return comment
	}

	if isSecurityCategory || containsAny(text, securitySmellKeywords) {
		if comment.Severity != domain.SeverityWarning {
			return comment.WithSeverity(domain.SeverityWarning)
		}
		return comment
	}

	if (comment.Category == "style" || isStyleOnly(text)) && comment.Severity > domain.SeverityNitpick {
		return comment.WithSeverity(domain.SeverityNitpick)
	}

	return comment
}

func isExploitable(text string) bool {
	if containsAny(text, exploitableKeywords) {
		return true
	}
	for _, p := range exploitableWordPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func isStyleOnly(text string) bool {
	return containsAny(text, styleKeywords) && !containsAny(text, substantiveKeywords)
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
