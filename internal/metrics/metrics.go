package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PullRequestTotal counts the total number of PRs processed, labeled by status.
	PullRequestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_pull_requests_total",
		Help: "The total number of processed pull requests",
	}, []string{"status"}) // status: success, failed

	// WebhookRequests counts incoming webhooks, labeled by status.
	WebhookRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_webhook_requests_total",
		Help: "The total number of received webhook requests",
	}, []string{"status"}) // status: accepted, dropped, invalid, ignored

	// ProcessingDuration measures the time taken to process a PR (end-to-end).
	ProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agent_processing_duration_seconds",
		Help:    "Time taken to process a pull request",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"}) // result: success, failed

	// MCPToolCalls counts MCP tool executions
	MCPToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_mcp_tool_calls_total",
		Help: "The total number of MCP tool calls",
	}, []string{"server", "tool", "status"}) // status: success, error

	// CommentPostFailures counts failed comment posts
	CommentPostFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pr_review_comment_failures_total",
		Help: "Total number of failed comment posts to Bitbucket",
	}, []string{"reason"})

	// PayloadParseFailures counts failed payload parsing attempts
	PayloadParseFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_payload_parse_failures_total",
		Help: "Total number of webhook payloads that failed to parse",
	}, []string{"failure_type"}) // failure_type: gjson, llm, both

	// NoiseFilterDropped counts review comments removed by the noise filter.
	NoiseFilterDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_noise_filter_dropped_total",
		Help: "Total number of review comments dropped by the noise filter",
	}, []string{"reason"}) // reason: combined (all noise-filter drops together)

	// VerifyFixResolved counts previously-flagged threads the verify-fixes
	// subsystem determined were fixed and resolved.
	VerifyFixResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_verify_fix_resolved_total",
		Help: "Total number of unresolved bot threads resolved by verify-fixes",
	}, []string{"status"}) // status: fixed, still_open

	// ChunksPerReview records how many chunks a single diff review was split into.
	ChunksPerReview = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "review_chunks_per_review",
		Help:    "Number of chunks a diff was split into for review",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
	}, []string{})
)
