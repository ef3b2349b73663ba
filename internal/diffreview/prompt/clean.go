package prompt

import "strings"

// bodyNoiseMarkers mark the start of sections to strip from a formatted
// review comment body before it is fed back into a prompt: suggestion
// blocks and collapsible agent-prompt details.
var bodyNoiseMarkers = []string{"**Suggested fix:**", "```suggestion", "<details>"}

const maxDescriptionLength = 300

// CleanThreadBody extracts the core issue description from a formatted
// review comment body, stripping the emoji/severity badge header,
// suggestion blocks, and agent-prompt sections this package's own posted
// comments are formatted with. Used to keep verify-fixes and "existing
// comments" prompt sections concise.
func CleanThreadBody(body string) string {
	text := body

	for _, marker := range bodyNoiseMarkers {
		if pos := strings.Index(text, marker); pos != -1 {
			text = text[:pos]
		}
	}

	text = strings.ReplaceAll(text, "**", "")

	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}

	// The formatted comment starts with a compact badge paragraph (emoji +
	// category label + optional severity line); skip it when there is more.
	if len(paragraphs) > 1 && len(paragraphs[0]) < 80 {
		paragraphs = paragraphs[1:]
	}

	result := strings.TrimSpace(strings.Join(paragraphs, " "))
	if result == "" {
		result = strings.TrimSpace(strings.Join(strings.Fields(text), " "))
	}

	if len(result) > maxDescriptionLength {
		truncated := result[:maxDescriptionLength]
		if idx := strings.LastIndex(truncated, " "); idx != -1 {
			truncated = truncated[:idx]
		}
		result = truncated + "…"
	}

	return result
}
