package llmresponse

import (
	"encoding/json"

	"github.com/miracodeai/mira/internal/diffreview/domain"
)

// walkthroughFileChange is one entry of a parsed walkthrough response's
// file_changes array, before conversion to domain.WalkthroughFileEntry.
type walkthroughFileChange struct {
	Path        string `json:"path"`
	ChangeType  string `json:"change_type"`
	Description string `json:"description"`
	Group       string `json:"group"`
}

type walkthroughEffort struct {
	Level   int    `json:"level"`
	Label   string `json:"label"`
	Minutes int    `json:"minutes"`
}

// WalkthroughResponse is the JSON shape the walkthrough prompt requests.
type WalkthroughResponse struct {
	Summary         string                  `json:"summary"`
	Effort          *walkthroughEffort      `json:"effort"`
	FileChanges     []walkthroughFileChange `json:"file_changes"`
	SequenceDiagram string                  `json:"sequence_diagram"`
}

// ParseWalkthrough parses raw LLM output into a WalkthroughResponse, with
// the same code-fence stripping and strict-object validation as Parse.
func ParseWalkthrough(rawText string) (WalkthroughResponse, error) {
	cleaned := stripCodeFences(rawText)

	var probe any
	if err := json.Unmarshal([]byte(cleaned), &probe); err != nil {
		return WalkthroughResponse{}, &ResponseParseError{Reason: "walkthrough response is not valid JSON: " + err.Error()}
	}
	if _, ok := probe.(map[string]any); !ok {
		return WalkthroughResponse{}, &ResponseParseError{Reason: "expected a JSON object for walkthrough response"}
	}

	var resp WalkthroughResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return WalkthroughResponse{}, &ResponseParseError{Reason: "walkthrough response validation failed: " + err.Error()}
	}
	return resp, nil
}

// ConvertToWalkthroughResult converts a parsed WalkthroughResponse into the
// domain type the walkthrough assembler renders.
func ConvertToWalkthroughResult(resp WalkthroughResponse) domain.WalkthroughResult {
	entries := make([]domain.WalkthroughFileEntry, len(resp.FileChanges))
	for i, fc := range resp.FileChanges {
		entries[i] = domain.WalkthroughFileEntry{
			Path:        fc.Path,
			ChangeType:  domain.FileChangeType(fc.ChangeType),
			Description: fc.Description,
			Group:       fc.Group,
		}
	}

	var effort *domain.WalkthroughEffort
	if resp.Effort != nil {
		effort = &domain.WalkthroughEffort{
			Level:   resp.Effort.Level,
			Label:   resp.Effort.Label,
			Minutes: resp.Effort.Minutes,
		}
	}

	return domain.WalkthroughResult{
		Summary:         resp.Summary,
		FileChanges:     entries,
		Effort:          effort,
		SequenceDiagram: resp.SequenceDiagram,
	}
}
