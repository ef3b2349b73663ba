package noise

import (
	"testing"

	"github.com/miracodeai/mira/internal/config"
	"github.com/miracodeai/mira/internal/diffreview/domain"
)

func baseConfig() config.FilterConfig {
	cfg := config.DefaultFilterConfig()
	cfg.ConfidenceThreshold = 0.5
	cfg.MinSeverity = "nitpick"
	cfg.MaxComments = 10
	return cfg
}

func TestFilter_DropsBelowConfidenceThreshold(t *testing.T) {
	comments := []domain.ReviewComment{
		{Path: "a.py", Line: 1, Confidence: 0.3, Severity: domain.SeverityWarning},
		{Path: "b.py", Line: 1, Confidence: 0.9, Severity: domain.SeverityWarning},
	}
	result := Filter(comments, baseConfig())
	if len(result) != 1 || result[0].Path != "b.py" {
		t.Errorf("expected only high-confidence comment kept, got %+v", result)
	}
}

func TestFilter_DropsBelowMinSeverity(t *testing.T) {
	cfg := baseConfig()
	cfg.MinSeverity = "warning"
	comments := []domain.ReviewComment{
		{Path: "a.py", Line: 1, Confidence: 0.9, Severity: domain.SeverityNitpick},
		{Path: "b.py", Line: 1, Confidence: 0.9, Severity: domain.SeverityWarning},
	}
	result := Filter(comments, cfg)
	if len(result) != 1 || result[0].Path != "b.py" {
		t.Errorf("expected only warning-or-above kept, got %+v", result)
	}
}

func TestFilter_SortsBySeverityThenConfidence(t *testing.T) {
	comments := []domain.ReviewComment{
		{Path: "a.py", Line: 1, Confidence: 0.6, Severity: domain.SeverityNitpick, Title: "a"},
		{Path: "b.py", Line: 1, Confidence: 0.9, Severity: domain.SeverityBlocker, Title: "b"},
		{Path: "c.py", Line: 1, Confidence: 0.95, Severity: domain.SeverityWarning, Title: "c"},
	}
	result := Filter(comments, baseConfig())
	if result[0].Path != "b.py" || result[1].Path != "c.py" || result[2].Path != "a.py" {
		t.Errorf("expected severity-desc order, got %+v", result)
	}
}

func TestFilter_DeduplicatesSameLine(t *testing.T) {
	comments := []domain.ReviewComment{
		{Path: "a.py", Line: 10, Confidence: 0.9, Severity: domain.SeverityBlocker, Title: "Null deref"},
		{Path: "a.py", Line: 10, Confidence: 0.8, Severity: domain.SeverityWarning, Title: "Unrelated title words"},
	}
	result := Filter(comments, baseConfig())
	if len(result) != 1 {
		t.Fatalf("expected same-line comments deduplicated, got %+v", result)
	}
	if result[0].Title != "Null deref" {
		t.Errorf("expected highest-quality (sorted first) comment kept, got %q", result[0].Title)
	}
}

func TestFilter_DeduplicatesOverlappingLinesWithSimilarTitle(t *testing.T) {
	comments := []domain.ReviewComment{
		{Path: "a.py", Line: 10, EndLine: 15, Confidence: 0.9, Severity: domain.SeverityWarning, Title: "missing null check here"},
		{Path: "a.py", Line: 12, EndLine: 18, Confidence: 0.8, Severity: domain.SeverityWarning, Title: "missing null check there"},
	}
	result := Filter(comments, baseConfig())
	if len(result) != 1 {
		t.Errorf("expected overlapping similar-title comments deduplicated, got %+v", result)
	}
}

func TestFilter_KeepsNonOverlappingDissimilarComments(t *testing.T) {
	comments := []domain.ReviewComment{
		{Path: "a.py", Line: 10, Confidence: 0.9, Severity: domain.SeverityWarning, Title: "missing null check"},
		{Path: "a.py", Line: 50, Confidence: 0.9, Severity: domain.SeverityWarning, Title: "unused variable declared"},
	}
	result := Filter(comments, baseConfig())
	if len(result) != 2 {
		t.Errorf("expected distinct comments both kept, got %+v", result)
	}
}

func TestFilter_CapsAtMaxComments(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxComments = 1
	comments := []domain.ReviewComment{
		{Path: "a.py", Line: 1, Confidence: 0.9, Severity: domain.SeverityWarning, Title: "one"},
		{Path: "b.py", Line: 1, Confidence: 0.9, Severity: domain.SeverityBlocker, Title: "two"},
	}
	result := Filter(comments, cfg)
	if len(result) != 1 {
		t.Fatalf("expected cap to 1, got %d", len(result))
	}
	if result[0].Title != "two" {
		t.Errorf("expected highest severity kept under cap, got %q", result[0].Title)
	}
}

func TestFilter_EmptyInput(t *testing.T) {
	result := Filter(nil, baseConfig())
	if len(result) != 0 {
		t.Errorf("expected empty result, got %d", len(result))
	}
}
