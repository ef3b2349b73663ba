// Package noise filters the final comment set down to the signal a
// reviewer actually wants: confidence and severity thresholds, duplicate
// removal by overlapping-line/title similarity, and a hard comment cap.
package noise

import (
	"sort"
	"strings"

	"github.com/miracodeai/mira/internal/config"
	"github.com/miracodeai/mira/internal/diffreview/domain"
)

const duplicateTitleThreshold = 0.6
const overlapTitleThreshold = 0.2

// Filter applies the full noise-filtering pipeline: drop below the
// confidence threshold, drop below the minimum severity, sort by severity
// then confidence (both descending), deduplicate (first occurrence —
// highest quality — wins), and cap at MaxComments.
func Filter(comments []domain.ReviewComment, cfg config.FilterConfig) []domain.ReviewComment {
	minSeverity := domain.SeverityFromString(cfg.MinSeverity)

	var result []domain.ReviewComment
	for _, c := range comments {
		if c.Confidence >= cfg.ConfidenceThreshold && c.Severity >= minSeverity {
			result = append(result, c)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Severity != result[j].Severity {
			return result[i].Severity > result[j].Severity
		}
		return result[i].Confidence > result[j].Confidence
	})

	result = deduplicate(result)

	if cfg.MaxComments > 0 && len(result) > cfg.MaxComments {
		result = result[:cfg.MaxComments]
	}
	return result
}

func deduplicate(comments []domain.ReviewComment) []domain.ReviewComment {
	if len(comments) == 0 {
		return nil
	}

	kept := make([]domain.ReviewComment, 0, len(comments))
	for _, c := range comments {
		duplicate := false
		for _, existing := range kept {
			if isDuplicate(c, existing, duplicateTitleThreshold) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, c)
		}
	}
	return kept
}

// isDuplicate determines if two comments are duplicates via a composite
// check: identical line range is always a duplicate; overlapping lines
// with moderate title similarity (>= 0.2) is a duplicate; otherwise
// near-identical titles in the same file (>= titleThreshold) are.
func isDuplicate(a, b domain.ReviewComment, titleThreshold float64) bool {
	if a.Path != b.Path {
		return false
	}

	endA, endB := effectiveEndLine(a), effectiveEndLine(b)
	if a.Line == b.Line && endA == endB {
		return true
	}

	titleSim := jaccardSimilarity(a.Title, b.Title)

	if linesOverlap(a, b) && titleSim >= overlapTitleThreshold {
		return true
	}

	return titleSim >= titleThreshold
}

func linesOverlap(a, b domain.ReviewComment) bool {
	if a.Path != b.Path {
		return false
	}
	endA, endB := effectiveEndLine(a), effectiveEndLine(b)
	return a.Line <= endB && b.Line <= endA
}

func effectiveEndLine(c domain.ReviewComment) int {
	if c.EndLine != 0 {
		return c.EndLine
	}
	return c.Line
}

func jaccardSimilarity(a, b string) float64 {
	wordsA := wordSet(a)
	wordsB := wordSet(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0.0
	}

	intersection := 0
	for w := range wordsA {
		if wordsB[w] {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
