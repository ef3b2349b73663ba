// Package walkthrough renders a domain.WalkthroughResult into the single
// Markdown document posted (and later updated in place) as the bot's PR
// walkthrough comment.
package walkthrough

import (
	"fmt"
	"sort"
	"strings"

	"github.com/miracodeai/mira/internal/diffreview/domain"
)

// ReviewStats is the severity-keyed count the review-status table renders;
// built by domain.BuildReviewStats. ExistingCount, when > 0, adds a row
// for issues carried over from a prior run rather than newly found —
// an addition over the ported Python source.
type ReviewStats struct {
	BySeverity    map[domain.Severity]int
	ExistingCount int
}

// Render assembles result into Markdown. botName is substituted into the
// help-footer's "@<bot> help" hint.
func Render(result domain.WalkthroughResult, botName string, stats *ReviewStats) string {
	var parts []string
	parts = append(parts, domain.WalkthroughMarker, "## Mira PR Walkthrough", "", result.Summary)

	if result.Effort != nil {
		e := result.Effort
		parts = append(parts, "", fmt.Sprintf("**Estimated effort:** %d (%s) · ⏱️ ~%d min", e.Level, e.Label, e.Minutes))
	}

	if len(result.FileChanges) > 0 {
		parts = append(parts, "", "### Changes")
		parts = append(parts, renderChangesTable(result.FileChanges)...)
	}

	if stats != nil && (len(stats.BySeverity) > 0 || stats.ExistingCount > 0) {
		parts = append(parts, renderReviewStatusTable(*stats)...)
	}

	if result.SequenceDiagram != "" {
		parts = append(parts, "", "### Sequence Diagram", "", "```mermaid", result.SequenceDiagram, "```")
	}

	parts = append(parts, "", "---", fmt.Sprintf("> Comment `@%s help` to get the list of available commands and usage tips.", botName))

	return strings.Join(parts, "\n")
}

func renderChangesTable(entries []domain.WalkthroughFileEntry) []string {
	hasGroups := false
	for _, fc := range entries {
		if fc.Group != "" {
			hasGroups = true
			break
		}
	}

	if !hasGroups {
		lines := []string{"", "| File | Change | Description |", "|------|--------|-------------|"}
		for _, fc := range entries {
			lines = append(lines, fileRow(fc))
		}
		return lines
	}

	var order []string
	groups := make(map[string][]domain.WalkthroughFileEntry)
	for _, fc := range entries {
		label := fc.Group
		if label == "" {
			label = "Other"
		}
		if _, seen := groups[label]; !seen {
			order = append(order, label)
		}
		groups[label] = append(groups[label], fc)
	}

	var lines []string
	for _, label := range order {
		lines = append(lines, "", fmt.Sprintf("**%s**", label), "", "| File | Change | Description |", "|------|--------|-------------|")
		for _, fc := range groups[label] {
			lines = append(lines, fileRow(fc))
		}
	}
	return lines
}

func fileRow(fc domain.WalkthroughFileEntry) string {
	change := capitalize(string(fc.ChangeType))
	return fmt.Sprintf("| `%s` | %s | %s |", fc.Path, change, fc.Description)
}

func renderReviewStatusTable(stats ReviewStats) []string {
	total := stats.ExistingCount
	for _, n := range stats.BySeverity {
		total += n
	}
	suffix := "s"
	if total == 1 {
		suffix = ""
	}

	lines := []string{"", "### Review Status", "", fmt.Sprintf("Found **%d** issue%s:", total, suffix), "", "| Severity | Count |", "|----------|-------|"}

	severities := make([]domain.Severity, 0, len(stats.BySeverity))
	for s := range stats.BySeverity {
		severities = append(severities, s)
	}
	sort.Slice(severities, func(i, j int) bool { return severities[i] > severities[j] })
	for _, s := range severities {
		lines = append(lines, fmt.Sprintf("| %s %s | %d |", s.Emoji(), capitalize(s.String()), stats.BySeverity[s]))
	}
	if stats.ExistingCount > 0 {
		lines = append(lines, fmt.Sprintf("| Existing | %d |", stats.ExistingCount))
	}
	return lines
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
