package prompt

import (
	"strings"
	"testing"

	"github.com/miracodeai/mira/internal/diffreview/domain"
)

func TestBuildReview_RendersSystemAndUserMessages(t *testing.T) {
	b := NewBuilder("")
	files := []domain.FileDiff{
		{Path: "a.py", Language: "python", Hunks: []domain.HunkInfo{{Content: "@@ -1,2 +1,2 @@\n+new"}}},
	}
	msgs, err := b.BuildReview(files, 0.7, 5, false, "Add feature", "desc", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Role != "system" || msgs[1].Role != "user" {
		t.Fatalf("expected system+user messages, got %+v", msgs)
	}
	if !strings.Contains(msgs[0].Content, "Add feature") {
		t.Errorf("expected PR title in system prompt, got %q", msgs[0].Content)
	}
	if !strings.Contains(msgs[1].Content, "a.py") {
		t.Errorf("expected file path in user content, got %q", msgs[1].Content)
	}
}

func TestBuildReview_IncludesExistingComments(t *testing.T) {
	b := NewBuilder("")
	files := []domain.FileDiff{{Path: "a.py", Hunks: []domain.HunkInfo{{Content: "@@ -1 +1 @@\n+x"}}}}
	existing := []domain.UnresolvedThread{
		{Path: "a.py", Line: 10, Body: "🔴 **Bug**\n\n**Null check missing**\n\nThis will panic."},
	}
	msgs, err := b.BuildReview(files, 0.7, 5, false, "", "", existing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(msgs[0].Content, "Null check missing") {
		t.Errorf("expected cleaned existing comment in prompt, got %q", msgs[0].Content)
	}
}

func TestBuildWalkthrough_RendersFileMetadata(t *testing.T) {
	b := NewBuilder("")
	files := []domain.FileDiff{
		{Path: "a.go", ChangeType: domain.FileModified, Language: "go", AddedLines: 3, DeletedLines: 1,
			Hunks: []domain.HunkInfo{{Content: "@@ -1,2 +1,4 @@\n+x"}}},
	}
	msgs, err := b.BuildWalkthrough(files, "Title", "Desc", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(msgs[0].Content, "a.go") {
		t.Errorf("expected file path in walkthrough prompt, got %q", msgs[0].Content)
	}
	if !strings.Contains(msgs[0].Content, "@@ -1,2 +1,4 @@") {
		t.Errorf("expected hunk header in walkthrough prompt, got %q", msgs[0].Content)
	}
}

func TestBuildConversation_IncludesDiffAndQuestion(t *testing.T) {
	b := NewBuilder("")
	msgs, err := b.BuildConversation("Why was this changed?", "+added line", "Title", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(msgs[1].Content, "Why was this changed?") {
		t.Errorf("expected question in user content, got %q", msgs[1].Content)
	}
	if !strings.Contains(msgs[1].Content, "+added line") {
		t.Errorf("expected diff in user content, got %q", msgs[1].Content)
	}
}

func TestBuildVerifyFixes_ListsIssuesPerFile(t *testing.T) {
	groups := []VerifyFixGroup{
		{
			Path:    "a.py",
			Content: "def f(): pass",
			Threads: []domain.UnresolvedThread{
				{ThreadID: "t1", Line: 5, Body: "**Missing validation**\n\nAdd a check."},
			},
		},
	}
	msgs := BuildVerifyFixes(groups)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if !strings.Contains(msgs[1].Content, "t1") {
		t.Errorf("expected thread id in user content, got %q", msgs[1].Content)
	}
	if !strings.Contains(msgs[0].Content, "fixed") {
		t.Errorf("expected JSON schema hint in system content, got %q", msgs[0].Content)
	}
}

func TestCleanThreadBody_StripsSuggestionAndBadge(t *testing.T) {
	body := "🔴 **Bug** blocker\n\n**Null pointer dereference**\n\nThis will crash on empty input.\n\n**Suggested fix:**\n```suggestion\nif x != nil {\n```\n\n<details>🤖 prompt</details>"
	got := CleanThreadBody(body)
	if strings.Contains(got, "Suggested fix") || strings.Contains(got, "<details>") {
		t.Errorf("expected noise stripped, got %q", got)
	}
	if !strings.Contains(got, "Null pointer dereference") {
		t.Errorf("expected issue description retained, got %q", got)
	}
}

func TestCleanThreadBody_TruncatesLongDescriptions(t *testing.T) {
	body := strings.Repeat("word ", 100)
	got := CleanThreadBody(body)
	if n := len([]rune(got)); n > maxDescriptionLength+1 {
		t.Errorf("expected truncation near %d chars, got %d", maxDescriptionLength, n)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("expected ellipsis suffix, got %q", got)
	}
}

func TestRuleDetector_DetectsByExtensionAndContent(t *testing.T) {
	files := []domain.FileDiff{
		{Path: "query.py", Hunks: []domain.HunkInfo{{Content: "@@ -1 +1,2 @@\n+SELECT * FROM users"}}},
		{Path: "deploy/Dockerfile", Hunks: nil},
	}
	d := NewRuleDetector()
	rules := d.Detect(files)
	has := func(name string) bool {
		for _, r := range rules {
			if r == name {
				return true
			}
		}
		return false
	}
	if !has("py") {
		t.Errorf("expected py rule detected, got %v", rules)
	}
	if !has("sql") {
		t.Errorf("expected sql rule detected from content scan, got %v", rules)
	}
	if !has("docker") {
		t.Errorf("expected docker rule detected from filename, got %v", rules)
	}
}

func TestRuleDetector_NoMatchReturnsEmpty(t *testing.T) {
	files := []domain.FileDiff{{Path: "readme.md"}}
	d := NewRuleDetector()
	if rules := d.Detect(files); len(rules) != 0 {
		t.Errorf("expected no rules detected, got %v", rules)
	}
}
