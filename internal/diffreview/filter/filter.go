// Package filter drops files that should not be sent to the LLM for review:
// binaries, lock files, generated code, and (optionally) deletions, then
// priority-sorts and caps the remainder.
package filter

import (
	"path"
	"sort"
	"strings"

	"github.com/miracodeai/mira/internal/config"
	"github.com/miracodeai/mira/internal/diffreview/domain"
)

// generatedMarkers are case-insensitive substrings that, when found in the
// first few lines of a file's first hunk, mark it as machine-generated.
var generatedMarkers = []string{
	"do not edit",
	"auto-generated",
	"autogenerated",
	"@generated",
	"code generated by",
}

const generatedScanLines = 5

// FilterFiles applies the file-filter policy in order: drop binaries, drop
// excluded-glob matches, drop deletions (if configured), drop generated
// files, priority-sort the remainder, and cap at MaxFiles.
func FilterFiles(files []domain.FileDiff, cfg config.FilterConfig) []domain.FileDiff {
	var kept []domain.FileDiff

	for _, f := range files {
		if f.IsBinary {
			continue
		}
		if matchesAnyExclude(f.Path, cfg.ExcludePatterns) {
			continue
		}
		if cfg.ExcludeDeleted && f.ChangeType == domain.FileDeleted {
			continue
		}
		if isGenerated(f) {
			continue
		}
		kept = append(kept, f)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		pi, pj := priority(kept[i].ChangeType), priority(kept[j].ChangeType)
		if pi != pj {
			return pi > pj
		}
		return kept[i].TotalChanges() > kept[j].TotalChanges()
	})

	if cfg.MaxFiles > 0 && len(kept) > cfg.MaxFiles {
		kept = kept[:cfg.MaxFiles]
	}

	return kept
}

// priority ranks change types for sorting: modified > added > renamed > deleted.
func priority(ct domain.FileChangeType) int {
	switch ct {
	case domain.FileModified:
		return 3
	case domain.FileAdded:
		return 2
	case domain.FileRenamed:
		return 1
	default:
		return 0
	}
}

func matchesAnyExclude(filePath string, patterns []string) bool {
	base := path.Base(filePath)
	for _, p := range patterns {
		if ok, _ := path.Match(p, filePath); ok {
			return true
		}
		if ok, _ := path.Match(p, base); ok {
			return true
		}
	}
	return false
}

func isGenerated(f domain.FileDiff) bool {
	if len(f.Hunks) == 0 {
		return false
	}
	lines := strings.Split(f.Hunks[0].Content, "\n")
	limit := generatedScanLines
	if limit > len(lines) {
		limit = len(lines)
	}
	for _, line := range lines[:limit] {
		lower := strings.ToLower(line)
		for _, marker := range generatedMarkers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}
	return false
}
