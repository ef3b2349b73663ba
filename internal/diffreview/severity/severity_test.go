package severity

import (
	"testing"

	"github.com/miracodeai/mira/internal/diffreview/domain"
)

func TestClassify_EscalatesExploitableToBlocker(t *testing.T) {
	c := domain.ReviewComment{Title: "SQL injection in query builder", Severity: domain.SeveritySuggestion}
	got := Classify(c)
	if got.Severity != domain.SeverityBlocker {
		t.Errorf("expected blocker, got %v", got.Severity)
	}
}

func TestClassify_MatchesWordBoundaryAcronyms(t *testing.T) {
	c := domain.ReviewComment{Body: "This endpoint is vulnerable to CSRF.", Severity: domain.SeverityNitpick}
	got := Classify(c)
	if got.Severity != domain.SeverityBlocker {
		t.Errorf("expected blocker for csrf, got %v", got.Severity)
	}
}

func TestClassify_DoesNotFalsePositiveOnSubstring(t *testing.T) {
	// "force" contains no acronym as a whole word; rce requires word boundary.
	c := domain.ReviewComment{Body: "please enforce this constraint", Severity: domain.SeveritySuggestion}
	got := Classify(c)
	if got.Severity != domain.SeveritySuggestion {
		t.Errorf("expected unchanged severity, got %v", got.Severity)
	}
}

func TestClassify_SecuritySmellCapsAtWarning(t *testing.T) {
	c := domain.ReviewComment{Body: "This uses a hardcoded API key.", Severity: domain.SeverityNitpick}
	got := Classify(c)
	if got.Severity != domain.SeverityWarning {
		t.Errorf("expected warning, got %v", got.Severity)
	}
}

func TestClassify_SecurityCategoryForcedToWarning(t *testing.T) {
	c := domain.ReviewComment{Category: "security", Body: "generic note", Severity: domain.SeverityBlocker}
	got := Classify(c)
	if got.Severity != domain.SeverityWarning {
		t.Errorf("expected security category forced to warning, got %v", got.Severity)
	}
}

func TestClassify_StyleOnlyCappedAtNitpick(t *testing.T) {
	c := domain.ReviewComment{Body: "trailing whitespace on this line", Severity: domain.SeverityWarning}
	got := Classify(c)
	if got.Severity != domain.SeverityNitpick {
		t.Errorf("expected nitpick, got %v", got.Severity)
	}
}

func TestClassify_StyleKeywordWithBugNotDowngraded(t *testing.T) {
	c := domain.ReviewComment{Body: "inconsistent whitespace causes a bug in the parser", Severity: domain.SeverityWarning}
	got := Classify(c)
	if got.Severity != domain.SeverityWarning {
		t.Errorf("expected warning preserved when substantive keyword present, got %v", got.Severity)
	}
}

func TestClassify_UnrelatedCommentUnchanged(t *testing.T) {
	c := domain.ReviewComment{Body: "consider renaming this for clarity", Severity: domain.SeveritySuggestion}
	got := Classify(c)
	if got.Severity != domain.SeveritySuggestion {
		t.Errorf("expected unchanged severity, got %v", got.Severity)
	}
}
