// Package llmresponse parses and validates the JSON the review LLM
// returns, then converts it into domain.ReviewComment values, rejecting
// hallucinated file paths, out-of-range lines, and quoted code that does
// not actually appear in the diff.
package llmresponse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	reviewcontext "github.com/miracodeai/mira/internal/diffreview/context"
	"github.com/miracodeai/mira/internal/diffreview/domain"
)

// ResponseParseError is returned when the LLM's raw text is not valid
// JSON, is not a JSON object, or fails schema validation. The engine
// treats it as a skip-this-chunk-and-continue signal, never a fatal error.
type ResponseParseError struct {
	Reason string
}

func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("llm response parse failed: %s", e.Reason)
}

// Comment is a single raw comment as the LLM reports it, before
// conversion/validation against the diff.
type Comment struct {
	Path         string  `json:"path"`
	Line         int     `json:"line"`
	EndLine      int     `json:"end_line"`
	Severity     string  `json:"severity"`
	Category     string  `json:"category"`
	Title        string  `json:"title"`
	Body         string  `json:"body"`
	Confidence   float64 `json:"confidence"`
	Suggestion   string  `json:"suggestion"`
	ExistingCode string  `json:"existing_code"`
}

// Metadata carries the LLM's self-reported review bookkeeping.
type Metadata struct {
	ReviewedFiles int    `json:"reviewed_files"`
	SkippedReason string `json:"skipped_reason"`
}

// Response is the root JSON object the review LLM must return.
type Response struct {
	Comments []Comment `json:"comments"`
	Summary  string    `json:"summary"`
	Metadata Metadata  `json:"metadata"`
}

var codeFencePattern = regexp.MustCompile(`(?s)^` + "```" + `(?:json)?\s*\n?(.*?)\n?\s*` + "```" + `$`)

// stripCodeFences removes a wrapping ```json ... ``` or ``` ... ``` fence,
// returning text unchanged if it is not fenced.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if m := codeFencePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// Parse parses raw LLM text output into a validated Response.
func Parse(rawText string) (Response, error) {
	cleaned := stripCodeFences(rawText)

	var raw any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return Response{}, &ResponseParseError{Reason: "llm response is not valid JSON: " + err.Error()}
	}
	if _, ok := raw.(map[string]any); !ok {
		return Response{}, &ResponseParseError{Reason: fmt.Sprintf("expected JSON object, got %T", raw)}
	}

	var resp Response
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return Response{}, &ResponseParseError{Reason: "llm response validation failed: " + err.Error()}
	}
	return resp, nil
}

// buildHunkTextIndex maps each file path to its concatenated hunk content,
// used to validate quoted existing_code snippets.
func buildHunkTextIndex(files []domain.FileDiff) map[string]string {
	index := make(map[string]string, len(files))
	for _, f := range files {
		index[f.Path] = reviewcontext.ExtractHunkLines(f)
	}
	return index
}

// ConvertToReviewComments converts a parsed Response into domain
// ReviewComments, applying every anti-hallucination and validity check:
// dropping comments against paths not in validPaths (when provided),
// non-positive lines, suggestions with no explanatory body, and
// existing_code snippets that don't appear verbatim in the file's hunks;
// it also clears no-op suggestions (identical to existing_code) and caps
// titles at 80 characters.
func ConvertToReviewComments(resp Response, validPaths map[string]bool, diffFiles []domain.FileDiff) []domain.ReviewComment {
	var hunkIndex map[string]string
	if len(diffFiles) > 0 {
		hunkIndex = buildHunkTextIndex(diffFiles)
	}

	result := make([]domain.ReviewComment, 0, len(resp.Comments))

	for _, c := range resp.Comments {
		if validPaths != nil && !validPaths[c.Path] {
			continue
		}
		if c.Line < 1 {
			continue
		}
		if c.Suggestion != "" && strings.TrimSpace(c.Body) == "" {
			continue
		}
		if c.ExistingCode != "" && hunkIndex != nil {
			hunkText := hunkIndex[c.Path]
			if !strings.Contains(hunkText, strings.TrimSpace(c.ExistingCode)) {
				continue
			}
		}

		suggestion := c.Suggestion
		if suggestion != "" && c.ExistingCode != "" && strings.TrimSpace(suggestion) == strings.TrimSpace(c.ExistingCode) {
			suggestion = ""
		}

		endLine := 0
		if c.EndLine > c.Line {
			endLine = c.EndLine
		}

		title := c.Title
		if runes := []rune(title); len(runes) > 80 {
			title = string(runes[:80])
		}

		result = append(result, domain.ReviewComment{
			Path:       c.Path,
			Line:       c.Line,
			EndLine:    endLine,
			Severity:   domain.SeverityFromString(c.Severity),
			Category:   c.Category,
			Title:      title,
			Body:       c.Body,
			Confidence: c.Confidence,
			Suggestion: suggestion,
		})
	}

	return result
}
