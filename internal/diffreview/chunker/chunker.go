// Package chunker packs filtered file diffs into review chunks that each
// fit within an LLM's context window, using greedy first-fit-decreasing:
// files are sorted by estimated token size (largest first) and placed in
// the first chunk with room; oversized single files get their own chunk
// with trailing hunks dropped.
package chunker

import (
	"sort"

	"github.com/miracodeai/mira/internal/diffreview/domain"
)

// promptOverhead is reserved for the system prompt and the model's response,
// leaving the remainder as the budget chunks are packed against.
const promptOverhead = 2000

// pathTokenOverhead approximates the tokens a file's path and surrounding
// markdown fencing cost beyond its hunk content.
const pathTokenOverhead = 20

// TokenCounter estimates the token cost of a string. Implementations may be
// a cheap heuristic or a real tokenizer; the chunker is agnostic.
type TokenCounter interface {
	CountTokens(text string) int
}

// CharRatioCounter estimates tokens as roughly one token per four characters.
// This is the fallback counter, used when no model-specific tokenizer is
// available.
type CharRatioCounter struct{}

// CountTokens implements TokenCounter.
func (CharRatioCounter) CountTokens(text string) int {
	return len(text) / 4
}

// ChunkFiles splits files into chunks that each fit within maxTokens. counter
// may be nil, in which case CharRatioCounter is used.
func ChunkFiles(files []domain.FileDiff, maxTokens int, counter TokenCounter) []domain.ReviewChunk {
	if len(files) == 0 {
		return nil
	}
	if counter == nil {
		counter = CharRatioCounter{}
	}

	available := maxTokens - promptOverhead

	type estimate struct {
		file  domain.FileDiff
		total int
	}

	estimates := make([]estimate, len(files))
	for i, f := range files {
		estimates[i] = estimate{file: f, total: fileTokenEstimate(f, counter)}
	}

	sort.SliceStable(estimates, func(i, j int) bool {
		return estimates[i].total > estimates[j].total
	})

	var chunks []domain.ReviewChunk

	for _, e := range estimates {
		if e.total > available {
			truncated := truncateFile(e.file, available, counter)
			chunks = append(chunks, domain.ReviewChunk{
				Files:         []domain.FileDiff{truncated},
				TokenEstimate: available,
			})
			continue
		}

		placed := false
		for i := range chunks {
			if chunks[i].TokenEstimate+e.total <= available {
				chunks[i].Files = append(chunks[i].Files, e.file)
				chunks[i].TokenEstimate += e.total
				placed = true
				break
			}
		}
		if !placed {
			chunks = append(chunks, domain.ReviewChunk{
				Files:         []domain.FileDiff{e.file},
				TokenEstimate: e.total,
			})
		}
	}

	return chunks
}

func fileTokenEstimate(f domain.FileDiff, counter TokenCounter) int {
	total := len(f.Path)/4 + pathTokenOverhead
	for _, h := range f.Hunks {
		total += counter.CountTokens(h.Content)
	}
	return total
}

// truncateFile drops trailing hunks until the file fits within maxTokens,
// always keeping at least the first hunk.
func truncateFile(f domain.FileDiff, maxTokens int, counter TokenCounter) domain.FileDiff {
	var kept []domain.HunkInfo
	used := pathTokenOverhead

	for _, h := range f.Hunks {
		hunkTokens := counter.CountTokens(h.Content)
		if used+hunkTokens > maxTokens {
			break
		}
		kept = append(kept, h)
		used += hunkTokens
	}

	if len(kept) == 0 && len(f.Hunks) > 0 {
		kept = []domain.HunkInfo{f.Hunks[0]}
	}

	return f.WithHunks(kept)
}
