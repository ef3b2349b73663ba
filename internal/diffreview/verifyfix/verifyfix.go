// Package verifyfix re-checks previously flagged review threads against
// the current state of each file, asking the LLM whether the concern
// still applies and resolving the ones it doesn't.
package verifyfix

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/miracodeai/mira/internal/config"
	"github.com/miracodeai/mira/internal/diffreview/domain"
	"github.com/miracodeai/mira/internal/diffreview/llm"
	"github.com/miracodeai/mira/internal/diffreview/prompt"
)

// FileFetcher retrieves the current content of path at whatever ref the
// caller has bound (the PR head branch). Engine wiring adapts the
// provider's GetFileContent to this interface.
type FileFetcher interface {
	FetchFileContent(ctx context.Context, path string) (string, error)
}

// Verifier runs the verify-fixes state machine against a set of
// unresolved threads.
type Verifier struct {
	client llm.Client
	cfg    config.VerifyFixConfig
}

// NewVerifier constructs a Verifier.
func NewVerifier(client llm.Client, cfg config.VerifyFixConfig) *Verifier {
	return &Verifier{client: client, cfg: cfg}
}

// Run fetches current file content for every path referenced by threads,
// asks the LLM which threads are fixed, and returns one ThreadDecision per
// input thread. Per spec's failure semantics, a fetch or LLM failure is
// logged and swallowed: threads whose file could not be fetched, or any
// failure of the LLM call itself, are returned as unresolved (Fixed=false)
// rather than propagated as an error.
func (v *Verifier) Run(ctx context.Context, threads []domain.UnresolvedThread, fetcher FileFetcher) []domain.ThreadDecision {
	if !v.cfg.Enabled || len(threads) == 0 {
		return nil
	}

	byPath := groupByPath(threads)
	groups := v.buildGroups(ctx, byPath, fetcher)

	decisions := make([]domain.ThreadDecision, 0, len(threads))
	for _, t := range threads {
		decisions = append(decisions, domain.ThreadDecision{
			ThreadID: t.ThreadID,
			Path:     t.Path,
			Line:     t.Line,
			Body:     t.Body,
			Fixed:    false,
		})
	}
	if len(groups) == 0 {
		return decisions
	}

	messages := prompt.BuildVerifyFixes(groups)
	raw, err := v.client.Complete(ctx, messages, true, 0.0)
	if err != nil {
		slog.Warn("verify-fixes LLM call failed, treating all threads as unresolved", "error", err)
		return decisions
	}

	fixed := ParseFixedIDs(raw)
	for i := range decisions {
		if fixed[decisions[i].ThreadID] {
			decisions[i].Fixed = true
		}
	}
	return decisions
}

func groupByPath(threads []domain.UnresolvedThread) map[string][]domain.UnresolvedThread {
	byPath := make(map[string][]domain.UnresolvedThread)
	for _, t := range threads {
		byPath[t.Path] = append(byPath[t.Path], t)
	}
	return byPath
}

// buildGroups fetches file content for every distinct path with bounded
// concurrency, skipping (and logging) paths whose fetch fails, and renders
// each file's content per the full-file/windowed rule.
func (v *Verifier) buildGroups(ctx context.Context, byPath map[string][]domain.UnresolvedThread, fetcher FileFetcher) []prompt.VerifyFixGroup {
	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	contents := make([]string, len(paths))
	fetched := make([]bool, len(paths))
	limit := v.cfg.MaxConcurrentFetches
	if limit <= 0 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			content, err := fetcher.FetchFileContent(gctx, p)
			if err != nil {
				slog.Warn("verify-fixes: failed to fetch file content, skipping", "path", p, "error", err)
				return nil
			}
			contents[i] = content
			fetched[i] = true
			return nil
		})
	}
	_ = g.Wait()

	groups := make([]prompt.VerifyFixGroup, 0, len(paths))
	for i, p := range paths {
		if !fetched[i] {
			continue
		}
		threads := byPath[p]
		groups = append(groups, prompt.VerifyFixGroup{
			Path:    p,
			Content: renderFileContent(contents[i], threads, v.cfg),
			Threads: threads,
		})
	}
	return groups
}

// renderFileContent applies the full-file/windowed rule: files at or under
// MaxFullFileLines are numbered in full; larger files with every thread's
// line known are windowed to ±LargeFileContextLines around each thread
// line, with overlapping windows merged; otherwise it falls back to the
// full numbered file.
func renderFileContent(content string, threads []domain.UnresolvedThread, cfg config.VerifyFixConfig) string {
	lines := strings.Split(content, "\n")
	if len(lines) <= cfg.MaxFullFileLines {
		return numberLines(lines, 1, len(lines))
	}

	allLinesKnown := true
	for _, t := range threads {
		if t.Line <= 0 {
			allLinesKnown = false
			break
		}
	}
	if !allLinesKnown {
		return numberLines(lines, 1, len(lines))
	}

	windows := mergeWindows(threads, len(lines), cfg.LargeFileContextLines)
	parts := make([]string, len(windows))
	for i, w := range windows {
		parts[i] = numberLines(lines, w.start, w.end)
	}
	return strings.Join(parts, "\n...\n")
}

type lineWindow struct {
	start, end int
}

func mergeWindows(threads []domain.UnresolvedThread, totalLines, contextLines int) []lineWindow {
	windows := make([]lineWindow, 0, len(threads))
	for _, t := range threads {
		start := max(1, t.Line-contextLines)
		end := min(totalLines, t.Line+contextLines)
		windows = append(windows, lineWindow{start: start, end: end})
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i].start < windows[j].start })

	merged := []lineWindow{windows[0]}
	for _, w := range windows[1:] {
		last := &merged[len(merged)-1]
		if w.start <= last.end+1 {
			last.end = max(last.end, w.end)
		} else {
			merged = append(merged, w)
		}
	}
	return merged
}

// numberLines renders lines[startNum-1:...] with a right-aligned line
// number gutter starting at startNum.
func numberLines(allLines []string, startNum, endNum int) string {
	width := len(fmt.Sprintf("%d", endNum))
	var sb strings.Builder
	for i := startNum; i <= endNum; i++ {
		fmt.Fprintf(&sb, "%*d| %s\n", width, i, allLines[i-1])
	}
	return strings.TrimRight(sb.String(), "\n")
}
