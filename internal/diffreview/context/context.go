// Package context merges adjacent diff hunks under a configurable context
// window and renders file diffs into the markdown strings the prompt
// builder embeds in LLM messages.
package context

import (
	"fmt"
	"sort"
	"strings"

	"github.com/miracodeai/mira/internal/diffreview/domain"
)

// ExpandContext merges adjacent/overlapping hunks in each file. Hunks
// whose expanded ranges (padded by contextLines) overlap are merged into
// a single hunk; files with fewer than two hunks pass through unchanged.
func ExpandContext(files []domain.FileDiff, contextLines int) []domain.FileDiff {
	result := make([]domain.FileDiff, 0, len(files))

	for _, f := range files {
		if len(f.Hunks) <= 1 {
			result = append(result, f)
			continue
		}

		sorted := append([]domain.HunkInfo(nil), f.Hunks...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].TargetStart < sorted[j].TargetStart
		})

		merged := []domain.HunkInfo{sorted[0]}
		for _, hunk := range sorted[1:] {
			prev := merged[len(merged)-1]
			prevEnd := prev.TargetStart + prev.TargetLength + contextLines
			hunkStart := hunk.TargetStart - contextLines

			if hunkStart <= prevEnd {
				newEnd := max(prev.TargetStart+prev.TargetLength, hunk.TargetStart+hunk.TargetLength)
				merged[len(merged)-1] = domain.HunkInfo{
					SourceStart:  prev.SourceStart,
					SourceLength: prev.SourceLength + hunk.SourceLength,
					TargetStart:  prev.TargetStart,
					TargetLength: newEnd - prev.TargetStart,
					Content:      prev.Content + "\n" + hunk.Content,
				}
			} else {
				merged = append(merged, hunk)
			}
		}

		result = append(result, f.WithHunks(merged))
	}

	return result
}

// ExtractHunkLines returns the raw content of all hunks for a file as a
// single string, used to validate that an LLM-quoted existing_code
// snippet actually appears in the diff.
func ExtractHunkLines(f domain.FileDiff) string {
	parts := make([]string, len(f.Hunks))
	for i, h := range f.Hunks {
		parts[i] = h.Content
	}
	return strings.Join(parts, "\n")
}

// BuildFileContextString formats a file diff as a markdown section for
// inclusion in an LLM review prompt.
func BuildFileContextString(f domain.FileDiff) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "### `%s` (%s)\n", f.Path, f.ChangeType)
	if f.OldPath != "" {
		fmt.Fprintf(&sb, "Renamed from `%s`\n", f.OldPath)
	}
	fmt.Fprintf(&sb, "+%d / -%d lines\n\n", f.AddedLines, f.DeletedLines)

	for _, h := range f.Hunks {
		sb.WriteString("```")
		sb.WriteString(f.Language)
		sb.WriteString("\n")
		sb.WriteString(strings.TrimRight(h.Content, "\n"))
		sb.WriteString("\n```\n\n")
	}

	return sb.String()
}
