// Package engine orchestrates the full PR review pipeline: parse, filter,
// walkthrough, context expansion, chunking, per-chunk LLM review, severity
// classification, and noise filtering, optionally wrapped with verify-fixes
// and provider posting when driving a live PR instead of a bare diff.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/miracodeai/mira/internal/config"
	"github.com/miracodeai/mira/internal/diffreview/chunker"
	reviewcontext "github.com/miracodeai/mira/internal/diffreview/context"
	"github.com/miracodeai/mira/internal/diffreview/domain"
	"github.com/miracodeai/mira/internal/diffreview/filter"
	"github.com/miracodeai/mira/internal/diffreview/llm"
	"github.com/miracodeai/mira/internal/diffreview/llmresponse"
	"github.com/miracodeai/mira/internal/diffreview/noise"
	"github.com/miracodeai/mira/internal/diffreview/parser"
	"github.com/miracodeai/mira/internal/diffreview/prompt"
	"github.com/miracodeai/mira/internal/diffreview/provider"
	"github.com/miracodeai/mira/internal/diffreview/severity"
	"github.com/miracodeai/mira/internal/diffreview/verifyfix"
	"github.com/miracodeai/mira/internal/diffreview/walkthrough"
	"github.com/miracodeai/mira/internal/metrics"
)

// Engine orchestrates the pipeline. Provider is optional: when nil, only
// ReviewDiff is usable and ReviewPR returns an error.
type Engine struct {
	filterCfg        config.FilterConfig
	reviewCfg        config.ReviewConfig
	maxContextTokens int

	llmClient llm.Client
	prompt    *prompt.Builder
	counter   chunker.TokenCounter
	verifier  *verifyfix.Verifier
	provider  provider.Provider

	botName string
	dryRun  bool
}

// New constructs an Engine. provider may be nil for diff-only use.
func New(
	filterCfg config.FilterConfig,
	reviewCfg config.ReviewConfig,
	maxContextTokens int,
	llmClient llm.Client,
	promptBuilder *prompt.Builder,
	counter chunker.TokenCounter,
	verifier *verifyfix.Verifier,
	prov provider.Provider,
	botName string,
	dryRun bool,
) *Engine {
	return &Engine{
		filterCfg:        filterCfg,
		reviewCfg:        reviewCfg,
		maxContextTokens: maxContextTokens,
		llmClient:        llmClient,
		prompt:           promptBuilder,
		counter:          counter,
		verifier:         verifier,
		provider:         prov,
		botName:          botName,
		dryRun:           dryRun,
	}
}

// ReviewDiff reviews a bare diff with no PR context and no provider calls.
func (e *Engine) ReviewDiff(ctx context.Context, diffText string) (*domain.ReviewResult, error) {
	return e.reviewDiffInternal(ctx, diffText, "", "", nil)
}

// providerFileFetcher adapts provider.Provider.GetFileContent, bound to a
// PR and ref, to verifyfix.FileFetcher.
type providerFileFetcher struct {
	prov provider.Provider
	pr   *domain.PRInfo
	ref  string
}

func (f providerFileFetcher) FetchFileContent(ctx context.Context, path string) (string, error) {
	return f.prov.GetFileContent(ctx, f.pr, path, f.ref)
}

// ReviewPR fetches PR metadata and diff, runs verify-fixes against any
// unresolved bot threads, reviews the diff, and posts the walkthrough and
// review comments back to the provider. Requires a non-nil provider.
func (e *Engine) ReviewPR(ctx context.Context, prURL string) (*domain.ReviewResult, error) {
	if e.provider == nil {
		return nil, fmt.Errorf("engine: a provider is required for PR review")
	}

	prInfo, err := e.provider.GetPRInfo(ctx, prURL)
	if err != nil {
		return nil, fmt.Errorf("engine: fetch pr info: %w", err)
	}

	existingComments, threadDecisions := e.runVerifyFixes(ctx, prInfo)

	diffText, err := e.provider.GetPRDiff(ctx, prInfo)
	if err != nil {
		return nil, fmt.Errorf("engine: fetch pr diff: %w", err)
	}

	result, err := e.reviewDiffInternal(ctx, diffText, prInfo.Title, prInfo.Description, existingComments)
	if err != nil {
		return nil, err
	}
	result.ThreadDecisions = threadDecisions

	e.postWalkthrough(ctx, prInfo, result)

	if len(result.Comments) > 0 && !e.dryRun {
		if err := e.provider.PostReview(ctx, prInfo, result); err != nil {
			slog.Warn("failed to post review", "error", err)
		}
	}

	return result, nil
}

// runVerifyFixes is a best-effort pre-step layered onto the base review
// flow: it fetches unresolved bot threads, asks the verifier which are
// fixed, resolves the fixed ones on the provider (skipped in dry-run),
// and returns the still-open threads for re-injection into the review
// prompt plus the full set of per-thread decisions for reporting.
func (e *Engine) runVerifyFixes(ctx context.Context, prInfo *domain.PRInfo) ([]domain.UnresolvedThread, []domain.ThreadDecision) {
	if e.verifier == nil {
		return nil, nil
	}

	threads, err := e.provider.GetUnresolvedBotThreads(ctx, prInfo, e.botName)
	if err != nil {
		slog.Warn("verify-fixes: failed to fetch unresolved threads, skipping", "error", err)
		return nil, nil
	}
	if len(threads) == 0 {
		return nil, nil
	}

	fetcher := providerFileFetcher{prov: e.provider, pr: prInfo, ref: prInfo.HeadBranch}
	decisions := e.verifier.Run(ctx, threads, fetcher)

	var fixedIDs []string
	byID := make(map[string]domain.UnresolvedThread, len(threads))
	for _, t := range threads {
		byID[t.ThreadID] = t
	}

	var existing []domain.UnresolvedThread
	for _, d := range decisions {
		if d.Fixed {
			fixedIDs = append(fixedIDs, d.ThreadID)
		} else if t, ok := byID[d.ThreadID]; ok {
			existing = append(existing, t)
		}
	}

	metrics.VerifyFixResolved.WithLabelValues("fixed").Add(float64(len(fixedIDs)))
	metrics.VerifyFixResolved.WithLabelValues("still_open").Add(float64(len(existing)))

	if len(fixedIDs) > 0 && !e.dryRun {
		if _, err := e.provider.ResolveThreads(ctx, prInfo, fixedIDs); err != nil {
			slog.Warn("verify-fixes: failed to resolve fixed threads", "error", err)
		}
	}

	return existing, decisions
}

func (e *Engine) postWalkthrough(ctx context.Context, prInfo *domain.PRInfo, result *domain.ReviewResult) {
	if result.Walkthrough == nil || e.dryRun {
		return
	}

	stats := &walkthrough.ReviewStats{BySeverity: domain.BuildReviewStats(result.Comments)}
	for _, d := range result.ThreadDecisions {
		if !d.Fixed {
			stats.ExistingCount++
		}
	}
	markdown := walkthrough.Render(*result.Walkthrough, e.botName, stats)

	existingID, found, err := e.provider.FindBotComment(ctx, prInfo, domain.WalkthroughMarker)
	if err != nil {
		slog.Warn("failed to search for existing walkthrough comment", "error", err)
		return
	}

	if found {
		if err := e.provider.UpdateComment(ctx, prInfo, existingID, markdown); err != nil {
			slog.Warn("failed to update walkthrough comment", "error", err)
		}
		return
	}
	if err := e.provider.PostComment(ctx, prInfo, markdown); err != nil {
		slog.Warn("failed to post walkthrough comment", "error", err)
	}
}

// reviewDiffInternal runs the core pipeline shared by ReviewDiff and
// ReviewPR: truncate, parse, filter, walkthrough, expand, chunk, review
// per chunk, classify severity, and filter noise.
func (e *Engine) reviewDiffInternal(
	ctx context.Context,
	diffText, prTitle, prDescription string,
	existingComments []domain.UnresolvedThread,
) (*domain.ReviewResult, error) {
	diffText = truncateDiff(diffText, e.reviewCfg.MaxDiffSize)

	patch, err := parser.Parse(diffText)
	if err != nil {
		return nil, fmt.Errorf("engine: parse diff: %w", err)
	}
	if len(patch.Files) == 0 {
		return &domain.ReviewResult{Summary: "No files to review."}, nil
	}

	filtered := filter.FilterFiles(patch.Files, e.filterCfg)
	if len(filtered) == 0 {
		return &domain.ReviewResult{
			Summary:       "All files were filtered out.",
			SkippedReason: "All files matched exclusion rules",
		}, nil
	}

	walkthroughResult := e.buildWalkthrough(ctx, filtered, prTitle, prDescription)

	expanded := reviewcontext.ExpandContext(filtered, e.reviewCfg.ContextLines)
	chunks := chunker.ChunkFiles(expanded, e.maxContextTokens, e.counter)
	metrics.ChunksPerReview.WithLabelValues().Observe(float64(len(chunks)))

	validPaths := make(map[string]bool, len(filtered))
	for _, f := range filtered {
		validPaths[f.Path] = true
	}

	var allComments []domain.ReviewComment
	var summaries []string
	carriedExisting := append([]domain.UnresolvedThread(nil), existingComments...)

	for i, chunk := range chunks {
		slog.Info("reviewing chunk", "index", i+1, "total", len(chunks), "files", len(chunk.Files))

		messages, err := e.prompt.BuildReview(
			chunk.Files,
			e.filterCfg.ConfidenceThreshold,
			e.filterCfg.MaxComments,
			e.reviewCfg.FocusOnlyOnProblems,
			prTitle, prDescription,
			carriedExisting,
		)
		if err != nil {
			return nil, fmt.Errorf("engine: build review prompt: %w", err)
		}

		raw, err := e.llmClient.Complete(ctx, messages, true, 0.2)
		if err != nil {
			return nil, fmt.Errorf("engine: review chunk %d/%d: %w", i+1, len(chunks), err)
		}

		parsed, err := llmresponse.Parse(raw)
		if err != nil {
			var parseErr *llmresponse.ResponseParseError
			if errors.As(err, &parseErr) {
				slog.Warn("chunk failed to parse, skipping", "index", i+1, "total", len(chunks), "error", err)
				continue
			}
			return nil, fmt.Errorf("engine: parse chunk %d/%d response: %w", i+1, len(chunks), err)
		}

		comments := llmresponse.ConvertToReviewComments(parsed, validPaths, chunk.Files)
		allComments = append(allComments, comments...)
		if parsed.Summary != "" {
			summaries = append(summaries, parsed.Summary)
		}

		for _, c := range comments {
			carriedExisting = append(carriedExisting, domain.UnresolvedThread{
				Path: c.Path,
				Line: c.Line,
				Body: c.Title + ": " + c.Body,
			})
		}
	}

	for i := range allComments {
		allComments[i] = severity.Classify(allComments[i])
	}

	finalComments := noise.Filter(allComments, e.filterCfg)
	if dropped := len(allComments) - len(finalComments); dropped > 0 {
		metrics.NoiseFilterDropped.WithLabelValues("combined").Add(float64(dropped))
	}

	summary := ""
	if e.reviewCfg.IncludeSummary {
		if len(summaries) > 0 {
			summary = strings.Join(summaries, " ")
		} else {
			summary = "No issues found."
		}
	}

	promptTokens, completionTokens, totalTokens := e.llmClient.Usage()

	return &domain.ReviewResult{
		Comments:      finalComments,
		Summary:       summary,
		ReviewedFiles: len(filtered),
		TokenUsage: domain.TokenUsage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      totalTokens,
		},
		Walkthrough: walkthroughResult,
	}, nil
}

// buildWalkthrough is best-effort: a failure here is logged and the review
// proceeds without a walkthrough, matching the Python source's broad
// except-and-continue around this step.
func (e *Engine) buildWalkthrough(ctx context.Context, files []domain.FileDiff, prTitle, prDescription string) *domain.WalkthroughResult {
	if !e.reviewCfg.Walkthrough {
		return nil
	}

	messages, err := e.prompt.BuildWalkthrough(files, prTitle, prDescription, e.reviewCfg.WalkthroughSequenceDiagram)
	if err != nil {
		slog.Warn("walkthrough generation failed, skipping", "error", err)
		return nil
	}

	raw, err := e.llmClient.Complete(ctx, messages, true, 0.2)
	if err != nil {
		slog.Warn("walkthrough generation failed, skipping", "error", err)
		return nil
	}

	parsed, err := llmresponse.ParseWalkthrough(raw)
	if err != nil {
		slog.Warn("walkthrough generation failed, skipping", "error", err)
		return nil
	}

	result := llmresponse.ConvertToWalkthroughResult(parsed)
	return &result
}

// truncateDiff enforces maxSize by cutting at the last "\ndiff --git "
// file boundary within the first maxSize bytes, so no file is left
// half-included; when no such boundary exists it cuts at maxSize itself.
func truncateDiff(diffText string, maxSize int) string {
	if maxSize <= 0 || len(diffText) <= maxSize {
		return diffText
	}
	slog.Warn("diff size exceeds max_diff_size, truncating", "size", len(diffText), "max_diff_size", maxSize)
	truncated := diffText[:maxSize]
	if idx := strings.LastIndex(truncated, "\ndiff --git "); idx > 0 {
		return truncated[:idx]
	}
	return truncated
}
