// Package bitbucket implements the diffreview provider.Provider contract
// atop the existing MCP client, translating each abstract operation into a
// bitbucket_* MCP tool call.
package bitbucket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/miracodeai/mira/internal/config"
	"github.com/miracodeai/mira/internal/diffreview/domain"
	"github.com/miracodeai/mira/internal/diffreview/provider"
)

// ToolCaller is the subset of *client.MCPClient this provider depends on.
type ToolCaller interface {
	CallTool(ctx context.Context, serverName, toolName string, args map[string]interface{}) (any, error)
}

// Provider implements provider.Provider atop a Bitbucket MCP server.
type Provider struct {
	caller            ToolCaller
	botLogin          string
	maxConcurrentPost int
}

// New constructs a Bitbucket Provider. maxConcurrentPost bounds parallel
// inline-comment posting in PostReview; a value <= 0 defaults to 5.
func New(caller ToolCaller, botLogin string, maxConcurrentPost int) *Provider {
	if maxConcurrentPost <= 0 {
		maxConcurrentPost = 5
	}
	return &Provider{caller: caller, botLogin: botLogin, maxConcurrentPost: maxConcurrentPost}
}

var prURLPattern = regexp.MustCompile(`/projects/([^/]+)/repos/([^/]+)/pull-requests/(\d+)`)

// prIdentity is the (projectKey, repoSlug, pullRequestId) triple every
// Bitbucket Server REST/MCP call is keyed by.
type prIdentity struct {
	projectKey    string
	repoSlug      string
	pullRequestID int
}

func identityOf(pr *domain.PRInfo) prIdentity {
	return prIdentity{projectKey: pr.Owner, repoSlug: pr.Repo, pullRequestID: pr.Number}
}

func (id prIdentity) args(extra map[string]interface{}) map[string]interface{} {
	args := map[string]interface{}{
		"projectKey":    id.projectKey,
		"repoSlug":      id.repoSlug,
		"pullRequestId": id.pullRequestID,
	}
	for k, v := range extra {
		args[k] = v
	}
	return args
}

// GetPRInfo parses prURL for the project/repo/pull-request identity, then
// fetches the PR's title/description/branches.
func (p *Provider) GetPRInfo(ctx context.Context, prURL string) (*domain.PRInfo, error) {
	m := prURLPattern.FindStringSubmatch(prURL)
	if m == nil {
		return nil, fmt.Errorf("bitbucket: cannot parse PR identity from url %q", prURL)
	}
	pullRequestID, err := strconv.Atoi(m[3])
	if err != nil {
		return nil, fmt.Errorf("bitbucket: invalid pull request id in url %q: %w", prURL, err)
	}
	id := prIdentity{projectKey: m[1], repoSlug: m[2], pullRequestID: pullRequestID}

	result, err := p.caller.CallTool(ctx, config.MCPServerBitbucket, config.ToolBitbucketGetPullRequest, id.args(nil))
	if err != nil {
		return nil, fmt.Errorf("bitbucket: get pull request: %w", err)
	}
	body := asJSON(result)

	return &domain.PRInfo{
		Title:       gjson.GetBytes(body, "title").String(),
		Description: gjson.GetBytes(body, "description").String(),
		BaseBranch:  gjson.GetBytes(body, "toRef.displayId").String(),
		HeadBranch:  gjson.GetBytes(body, "fromRef.displayId").String(),
		URL:         prURL,
		Number:      id.pullRequestID,
		Owner:       id.projectKey,
		Repo:        id.repoSlug,
	}, nil
}

// GetPRDiff fetches the unified diff text for pr.
func (p *Provider) GetPRDiff(ctx context.Context, pr *domain.PRInfo) (string, error) {
	result, err := p.caller.CallTool(ctx, config.MCPServerBitbucket, config.ToolBitbucketGetDiff, identityOf(pr).args(nil))
	if err != nil {
		return "", fmt.Errorf("bitbucket: get pull request diff: %w", err)
	}
	return extractText(result), nil
}

// GetFileContent fetches path's content at ref (typically the PR head branch).
func (p *Provider) GetFileContent(ctx context.Context, pr *domain.PRInfo, path, ref string) (string, error) {
	result, err := p.caller.CallTool(ctx, config.MCPServerBitbucket, config.ToolBitbucketGetFileContent, identityOf(pr).args(map[string]interface{}{
		"path": path,
		"at":   ref,
	}))
	if err != nil {
		return "", fmt.Errorf("bitbucket: get file content %s@%s: %w", path, ref, err)
	}
	return extractText(result), nil
}

// GetUnresolvedBotThreads fetches PR comments and returns only those
// authored by botLogin (normalized comparison) that are still unresolved.
func (p *Provider) GetUnresolvedBotThreads(ctx context.Context, pr *domain.PRInfo, botLogin string) ([]domain.UnresolvedThread, error) {
	result, err := p.caller.CallTool(ctx, config.MCPServerBitbucket, config.ToolBitbucketGetComments, identityOf(pr).args(nil))
	if err != nil {
		return nil, fmt.Errorf("bitbucket: get pull request comments: %w", err)
	}
	body := asJSON(result)
	wantLogin := provider.NormalizeLogin(botLogin)

	var threads []domain.UnresolvedThread
	gjson.GetBytes(body, "values").ForEach(func(_, value gjson.Result) bool {
		author := value.Get("author.user.name").String()
		if author == "" {
			author = value.Get("author.name").String()
		}
		if provider.NormalizeLogin(author) != wantLogin {
			return true
		}
		if value.Get("resolved").Bool() {
			return true
		}
		threads = append(threads, domain.UnresolvedThread{
			ThreadID:   value.Get("id").String(),
			Path:       value.Get("anchor.path").String(),
			Line:       int(value.Get("anchor.line").Int()),
			Body:       value.Get("content.raw").String(),
			IsOutdated: value.Get("anchor.orphaned").Bool(),
		})
		return true
	})
	return threads, nil
}

// ResolveThreads resolves each thread ID with bounded concurrency,
// returning the count that resolved successfully. Failures are logged and
// counted as not resolved rather than aborting the batch.
func (p *Provider) ResolveThreads(ctx context.Context, pr *domain.PRInfo, threadIDs []string) (int, error) {
	if len(threadIDs) == 0 {
		return 0, nil
	}
	id := identityOf(pr)

	var resolved atomicCounter
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxConcurrentPost)
	for _, threadID := range threadIDs {
		threadID := threadID
		g.Go(func() error {
			_, err := p.caller.CallTool(gctx, config.MCPServerBitbucket, config.ToolBitbucketResolveComment, id.args(map[string]interface{}{
				"commentId": threadID,
			}))
			if err != nil {
				slog.Warn("bitbucket: resolve thread failed", "thread_id", threadID, "error", err)
				return nil
			}
			resolved.add(1)
			return nil
		})
	}
	_ = g.Wait()
	return resolved.value(), nil
}

// PostReview posts every review comment inline, with bounded concurrency,
// then the summary as a general PR comment.
func (p *Provider) PostReview(ctx context.Context, pr *domain.PRInfo, result *domain.ReviewResult) error {
	id := identityOf(pr)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxConcurrentPost)
	for _, c := range result.Comments {
		c := c
		g.Go(func() error {
			args := id.args(map[string]interface{}{
				"commentText": formatInlineComment(c),
				"filePath":    c.Path,
				"lineNumber":  c.Line,
			})
			if _, err := p.caller.CallTool(gctx, config.MCPServerBitbucket, config.ToolBitbucketAddComment, args); err != nil {
				slog.Warn("bitbucket: post inline comment failed", "path", c.Path, "line", c.Line, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if result.Summary == "" {
		return nil
	}
	return p.PostComment(ctx, pr, result.Summary)
}

// PostComment posts body as a general (non-inline) PR comment.
func (p *Provider) PostComment(ctx context.Context, pr *domain.PRInfo, body string) error {
	_, err := p.caller.CallTool(ctx, config.MCPServerBitbucket, config.ToolBitbucketAddComment, identityOf(pr).args(map[string]interface{}{
		"commentText": body,
	}))
	if err != nil {
		return fmt.Errorf("bitbucket: post comment: %w", err)
	}
	return nil
}

// FindBotComment searches existing PR comments for one containing marker,
// returning its ID.
func (p *Provider) FindBotComment(ctx context.Context, pr *domain.PRInfo, marker string) (string, bool, error) {
	result, err := p.caller.CallTool(ctx, config.MCPServerBitbucket, config.ToolBitbucketGetComments, identityOf(pr).args(nil))
	if err != nil {
		return "", false, fmt.Errorf("bitbucket: get pull request comments: %w", err)
	}
	body := asJSON(result)

	var commentID string
	found := false
	gjson.GetBytes(body, "values").ForEach(func(_, value gjson.Result) bool {
		if strings.Contains(value.Get("content.raw").String(), marker) {
			commentID = value.Get("id").String()
			found = true
			return false
		}
		return true
	})
	return commentID, found, nil
}

// UpdateComment replaces the body of an existing comment.
func (p *Provider) UpdateComment(ctx context.Context, pr *domain.PRInfo, commentID, body string) error {
	_, err := p.caller.CallTool(ctx, config.MCPServerBitbucket, config.ToolBitbucketUpdateComment, identityOf(pr).args(map[string]interface{}{
		"commentId":   commentID,
		"commentText": body,
	}))
	if err != nil {
		return fmt.Errorf("bitbucket: update comment %s: %w", commentID, err)
	}
	return nil
}

func formatInlineComment(c domain.ReviewComment) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s **%s**\n\n%s", c.Severity.Emoji(), c.Title, c.Body)
	if c.Suggestion != "" {
		fmt.Fprintf(&sb, "\n\n**Suggested fix:**\n```suggestion\n%s\n```", c.Suggestion)
	}
	return sb.String()
}

// extractText handles the two shapes MCP tool results arrive in: a bare
// string, or the MCP content-block envelope { "content": [ { "text": "" } ] }.
func extractText(result any) string {
	if s, ok := result.(string); ok {
		return s
	}
	body := asJSON(result)
	if text := gjson.GetBytes(body, "content.0.text").String(); text != "" {
		return text
	}
	return gjson.GetBytes(body, "output").String()
}

func asJSON(result any) []byte {
	b, err := json.Marshal(result)
	if err != nil {
		return nil
	}
	return b
}
