// Package prompt builds the LLM chat messages for every prompt shape the
// engine needs: review, walkthrough, conversational follow-up, and
// verify-fixes. Templates are loaded with a filesystem-override-then-
// embedded-default hierarchy, the same idiom the teacher's PromptLoader
// uses for its richer project/language fallback chain.
package prompt

import (
	"fmt"
	"strings"

	reviewcontext "github.com/miracodeai/mira/internal/diffreview/context"
	"github.com/miracodeai/mira/internal/diffreview/domain"
)

// Message is a single chat turn passed to the LLM client.
type Message struct {
	Role    string
	Content string
}

// Builder renders every prompt shape the engine needs.
type Builder struct {
	loader *loader
}

// NewBuilder returns a Builder that looks for template overrides under
// baseDir before falling back to the embedded defaults. An empty baseDir
// uses only the embedded defaults.
func NewBuilder(baseDir string) *Builder {
	return &Builder{loader: newLoader(baseDir)}
}

// ExistingComment is a cleaned-up prior review comment fed to the review
// prompt so the model does not repeat itself.
type ExistingComment struct {
	Path        string
	Line        int
	Description string
}

// reviewData is the template data for templates/review.md.
type reviewData struct {
	PRTitle              string
	PRDescription        string
	ConfidenceThreshold  float64
	MaxComments          int
	FocusOnlyOnProblems  bool
	LanguageRules        string
	ExistingComments     []ExistingComment
	FilePaths            []string
}

// BuildReview renders the system+user messages for a review chunk.
func (b *Builder) BuildReview(
	files []domain.FileDiff,
	confidenceThreshold float64,
	maxComments int,
	focusOnlyOnProblems bool,
	prTitle, prDescription string,
	existingComments []domain.UnresolvedThread,
) ([]Message, error) {
	fileContexts := make([]string, len(files))
	filePaths := make([]string, len(files))
	for i, f := range files {
		fileContexts[i] = reviewcontext.BuildFileContextString(f)
		filePaths[i] = f.Path
	}

	var cleaned []ExistingComment
	for _, c := range existingComments {
		cleaned = append(cleaned, ExistingComment{
			Path:        c.Path,
			Line:        c.Line,
			Description: CleanThreadBody(c.Body),
		})
	}

	detector := NewRuleDetector()
	languageRules := detector.LoadRules(b.loader, files)

	content, err := b.loader.render("review", reviewData{
		PRTitle:             prTitle,
		PRDescription:       prDescription,
		ConfidenceThreshold: confidenceThreshold,
		MaxComments:         maxComments,
		FocusOnlyOnProblems: focusOnlyOnProblems,
		LanguageRules:       languageRules,
		ExistingComments:    cleaned,
		FilePaths:           filePaths,
	})
	if err != nil {
		return nil, err
	}

	return []Message{
		{Role: "system", Content: content},
		{Role: "user", Content: strings.Join(fileContexts, "\n\n")},
	}, nil
}

// walkthroughFileMeta is one entry in the walkthrough template's file list.
type walkthroughFileMeta struct {
	Path         string
	ChangeType   domain.FileChangeType
	Language     string
	AddedLines   int
	DeletedLines int
	HunkHeaders  []string
}

type walkthroughData struct {
	PRTitle                string
	PRDescription          string
	Files                  []walkthroughFileMeta
	IncludeSequenceDiagram bool
}

// BuildWalkthrough renders the system+user messages for walkthrough
// generation. Only file metadata is included, not full diffs, to keep the
// prompt compact.
func (b *Builder) BuildWalkthrough(
	files []domain.FileDiff,
	prTitle, prDescription string,
	includeSequenceDiagram bool,
) ([]Message, error) {
	metas := make([]walkthroughFileMeta, len(files))
	for i, f := range files {
		metas[i] = walkthroughFileMeta{
			Path:         f.Path,
			ChangeType:   f.ChangeType,
			Language:     f.Language,
			AddedLines:   f.AddedLines,
			DeletedLines: f.DeletedLines,
			HunkHeaders:  extractHunkHeaders(f),
		}
	}

	content, err := b.loader.render("walkthrough", walkthroughData{
		PRTitle:                prTitle,
		PRDescription:          prDescription,
		Files:                  metas,
		IncludeSequenceDiagram: includeSequenceDiagram,
	})
	if err != nil {
		return nil, err
	}

	return []Message{
		{Role: "system", Content: content},
		{Role: "user", Content: "Generate the walkthrough for this PR."},
	}, nil
}

type conversationData struct {
	PRTitle       string
	PRDescription string
}

// BuildConversation renders the system+user messages for a conversational
// follow-up question about an already-reviewed PR.
func (b *Builder) BuildConversation(question, diffText, prTitle, prDescription string) ([]Message, error) {
	content, err := b.loader.render("conversation", conversationData{
		PRTitle:       prTitle,
		PRDescription: prDescription,
	})
	if err != nil {
		return nil, err
	}

	userContent := fmt.Sprintf("## Diff\n\n```diff\n%s\n```\n\n## Question\n\n%s", diffText, question)

	return []Message{
		{Role: "system", Content: content},
		{Role: "user", Content: userContent},
	}, nil
}

// VerifyFixGroup is one file's worth of current content and the
// previously flagged issues to re-check against it.
type VerifyFixGroup struct {
	Path    string
	Content string
	Threads []domain.UnresolvedThread
}

const verifyFixesSystemPrompt = `You are verifying whether code review issues have been fixed.

For each issue below, you will see the current file content (full or relevant sections) and a list of previously flagged issues.
Examine the current file content to determine if each issue has been addressed. Mark as fixed if the specific concern is no longer present in the code.

Issues tagged [OUTDATED] have an anchor the provider reports as stale; treat them as highly likely fixed unless the current content clearly still shows the problem.

Respond with JSON: {"results": [{"id": "<thread_id>", "fixed": true/false}, ...]}`

// BuildVerifyFixes renders the system+user messages asking the LLM which
// previously-flagged issues have been resolved by subsequent commits.
func BuildVerifyFixes(groups []VerifyFixGroup) []Message {
	sections := make([]string, len(groups))
	for i, g := range groups {
		var issues strings.Builder
		for idx, t := range g.Threads {
			outdatedTag := ""
			if t.IsOutdated {
				outdatedTag = "[OUTDATED] "
			}
			fmt.Fprintf(&issues, "%d. (id: %q) %sLine %d: %s\n", idx+1, t.ThreadID, outdatedTag, t.Line, CleanThreadBody(t.Body))
		}
		sections[i] = fmt.Sprintf("File: %s\n```\n%s\n```\n\nIssues to verify in this file:\n%s", g.Path, g.Content, issues.String())
	}

	return []Message{
		{Role: "system", Content: verifyFixesSystemPrompt},
		{Role: "user", Content: strings.Join(sections, "\n\n---\n\n")},
	}
}

func extractHunkHeaders(f domain.FileDiff) []string {
	var headers []string
	for _, h := range f.Hunks {
		for _, line := range strings.Split(h.Content, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "@@") {
				headers = append(headers, strings.TrimSpace(line))
			}
		}
	}
	return headers
}
