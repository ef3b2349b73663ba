// Package provider defines the abstract git-hosting provider contract the
// engine drives, plus a process-wide registry mapping a provider
// identifier to its constructor — replacing dynamic dispatch on a
// provider-type string with a closed set of registered variants.
package provider

import (
	"context"
	"strings"

	"github.com/miracodeai/mira/internal/diffreview/domain"
)

// Provider abstracts a git-hosting platform (Bitbucket, GitHub, ...) well
// enough for the engine to drive a review without knowing which one it's
// talking to.
type Provider interface {
	GetPRInfo(ctx context.Context, prURL string) (*domain.PRInfo, error)
	GetPRDiff(ctx context.Context, pr *domain.PRInfo) (string, error)
	GetFileContent(ctx context.Context, pr *domain.PRInfo, path, ref string) (string, error)
	GetUnresolvedBotThreads(ctx context.Context, pr *domain.PRInfo, botLogin string) ([]domain.UnresolvedThread, error)
	ResolveThreads(ctx context.Context, pr *domain.PRInfo, threadIDs []string) (int, error)
	PostReview(ctx context.Context, pr *domain.PRInfo, result *domain.ReviewResult) error
	PostComment(ctx context.Context, pr *domain.PRInfo, body string) error
	FindBotComment(ctx context.Context, pr *domain.PRInfo, marker string) (string, bool, error)
	UpdateComment(ctx context.Context, pr *domain.PRInfo, commentID, body string) error
}

// NormalizeLogin canonicalizes a provider username for bot-authorship
// comparison: case-folded, with a trailing "[bot]" suffix stripped.
func NormalizeLogin(login string) string {
	normalized := strings.ToLower(strings.TrimSpace(login))
	normalized = strings.TrimSuffix(normalized, "[bot]")
	return normalized
}
