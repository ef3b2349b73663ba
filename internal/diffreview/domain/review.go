package domain

// ReviewComment is a single review comment to post, created by the
// response parser and mutated only via a copy-with-severity update
// performed by the severity classifier; otherwise immutable.
type ReviewComment struct {
	Path        string
	Line        int
	EndLine     int // 0 means unset
	Severity    Severity
	Category    string
	Title       string
	Body        string
	Confidence  float64
	Suggestion  string
	AgentPrompt string
}

// WithSeverity returns a copy of c with Severity replaced. The severity
// classifier uses this instead of mutating c in place, per the
// "copy-with-severity" pattern the engine relies on for comment immutability.
func (c ReviewComment) WithSeverity(s Severity) ReviewComment {
	c.Severity = s
	return c
}

// HasEndLine reports whether a valid end line (> Line) is set.
func (c ReviewComment) HasEndLine() bool {
	return c.EndLine > c.Line
}

// UnresolvedThread is an unresolved review thread authored by the bot,
// fetched from the provider and consumed by the verify-fixes subsystem.
// Identity is by ThreadID.
type UnresolvedThread struct {
	ThreadID   string
	Path       string
	Line       int // 0 means unknown/outdated
	Body       string
	IsOutdated bool
}

// ThreadDecision is the per-thread resolution decision produced by
// verify-fixes for dry-run reporting; one per input thread.
type ThreadDecision struct {
	ThreadID string
	Path     string
	Line     int
	Body     string
	Fixed    bool
}

// WalkthroughEffort is the review-effort estimate for a PR.
type WalkthroughEffort struct {
	Level   int
	Label   string
	Minutes int
}

// WalkthroughFileEntry is a single file entry in the walkthrough's changes table.
type WalkthroughFileEntry struct {
	Path        string
	ChangeType  FileChangeType
	Description string
	Group       string
}

// WalkthroughResult is the assembled output of walkthrough generation.
type WalkthroughResult struct {
	Summary         string
	FileChanges     []WalkthroughFileEntry
	Effort          *WalkthroughEffort
	SequenceDiagram string
}

// ReviewResult is the complete, final output of the pipeline.
type ReviewResult struct {
	Comments        []ReviewComment
	Summary         string
	ReviewedFiles   int
	SkippedReason   string
	TokenUsage      TokenUsage
	Walkthrough     *WalkthroughResult
	ThreadDecisions []ThreadDecision
}

// TokenUsage accumulates prompt/completion token counts across every
// LLM client Complete call in a pipeline run.
type TokenUsage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

// PRInfo is metadata about a pull request, returned by Provider.GetPRInfo.
type PRInfo struct {
	Title       string
	Description string
	BaseBranch  string
	HeadBranch  string
	URL         string
	Number      int
	Owner       string
	Repo        string
}

// BuildReviewStats counts review comments grouped by severity, only
// including severities with at least one comment — consumed by the
// walkthrough assembler's review-status table.
func BuildReviewStats(comments []ReviewComment) map[Severity]int {
	counts := make(map[Severity]int)
	for _, c := range comments {
		counts[c.Severity]++
	}
	return counts
}

// WalkthroughMarker is the hidden HTML-comment marker identifying the
// walkthrough comment across runs, matching §6.4's persisted-artifact contract.
const WalkthroughMarker = "<!-- mira-walkthrough -->"
