package config

// FilterConfig controls which files are reviewed and how noisy comments
// are thinned out after the LLM responds. See SPEC_FULL.md §6.3.
type FilterConfig struct {
	ConfidenceThreshold float64  `yaml:"confidence_threshold"`
	MaxComments         int      `yaml:"max_comments"`
	MinSeverity         string   `yaml:"min_severity"`
	ExcludePatterns     []string `yaml:"exclude_patterns"`
	ExcludeDeleted      bool     `yaml:"exclude_deleted"`
	MaxFiles            int      `yaml:"max_files"`
}

// ReviewConfig controls the shape of the review pipeline itself.
type ReviewConfig struct {
	ContextLines              int  `yaml:"context_lines"`
	MaxDiffSize               int  `yaml:"max_diff_size"`
	IncludeSummary            bool `yaml:"include_summary"`
	FocusOnlyOnProblems       bool `yaml:"focus_only_on_problems"`
	Walkthrough               bool `yaml:"walkthrough"`
	WalkthroughSequenceDiagram bool `yaml:"walkthrough_sequence_diagram"`
}

// VerifyFixConfig controls how the verify-fixes subsystem re-checks
// previously flagged threads against current file content.
type VerifyFixConfig struct {
	Enabled             bool `yaml:"enabled"`
	MaxFullFileLines    int  `yaml:"max_full_file_lines"`
	LargeFileContextLines int `yaml:"large_file_context_lines"`
	MaxConcurrentFetches int `yaml:"max_concurrent_fetches"`
}

// DefaultVerifyFixConfig returns the documented default VerifyFixConfig.
// A file at or under MaxFullFileLines is sent in full; larger files are
// windowed to LargeFileContextLines of context around each flagged line.
func DefaultVerifyFixConfig() VerifyFixConfig {
	return VerifyFixConfig{
		Enabled:               true,
		MaxFullFileLines:      500,
		LargeFileContextLines: 50,
		MaxConcurrentFetches:  5,
	}
}

// WebhookConfig controls the webhook payload parser's L2 LLM fallback,
// used when gjson probing can't identify the PR from the raw payload shape.
type WebhookConfig struct {
	MaxRetries int `yaml:"max_retries"`
}

// DefaultWebhookConfig returns the documented default WebhookConfig.
func DefaultWebhookConfig() WebhookConfig {
	return WebhookConfig{MaxRetries: 2}
}

// DefaultExcludePatterns is the built-in glob list covering lock files,
// minified assets, binary media, and archives, matching the defaults
// documented in SPEC_FULL.md §6.3.
var DefaultExcludePatterns = []string{
	"*.lock", "*.lockb", "package-lock.json", "yarn.lock", "pnpm-lock.yaml",
	"Pipfile.lock", "poetry.lock", "go.sum",
	"*.min.js", "*.min.css", "*.map",
	"*.svg", "*.png", "*.jpg", "*.jpeg", "*.gif", "*.ico",
	"*.woff", "*.woff2", "*.ttf", "*.eot",
	"*.pdf", "*.zip", "*.tar.gz",
}

// DefaultFilterConfig returns the documented default FilterConfig.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		ConfidenceThreshold: 0.7,
		MaxComments:         5,
		MinSeverity:         "nitpick",
		ExcludePatterns:     append([]string(nil), DefaultExcludePatterns...),
		ExcludeDeleted:      true,
		MaxFiles:            50,
	}
}

// DefaultReviewConfig returns the documented default ReviewConfig.
func DefaultReviewConfig() ReviewConfig {
	return ReviewConfig{
		ContextLines:               3,
		MaxDiffSize:                50_000,
		IncludeSummary:             true,
		FocusOnlyOnProblems:        false,
		Walkthrough:                true,
		WalkthroughSequenceDiagram: true,
	}
}
