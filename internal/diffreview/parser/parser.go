// Package parser turns unified-diff text into a structured domain.PatchSet.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/miracodeai/mira/internal/diffreview/domain"
)

// ParseError is returned when the diff text is syntactically malformed.
// Empty or whitespace-only input is not an error: it yields an empty PatchSet.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("diff parse failed: %s", e.Reason)
}

var (
	fileHeaderPattern = regexp.MustCompile(`(?m)^diff --git\s+(\S+)\s+(\S+)\s*$`)
	hunkHeaderPattern = regexp.MustCompile(`(?m)^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@.*$`)
	newFilePattern    = regexp.MustCompile(`(?m)^new file mode`)
	deletedFilePattern = regexp.MustCompile(`(?m)^deleted file mode`)
	renameFromPattern = regexp.MustCompile(`(?m)^rename from (.+)$`)
	renameToPattern   = regexp.MustCompile(`(?m)^rename to (.+)$`)
	binaryPattern     = regexp.MustCompile(`(?m)^Binary files? `)
)

// extensionLanguage maps a file suffix to a language identifier, covering
// the common languages reviewed by this system. Unknown suffixes resolve
// to the empty string.
var extensionLanguage = map[string]string{
	".py": "python", ".js": "javascript", ".ts": "typescript", ".tsx": "typescript",
	".jsx": "javascript", ".rb": "ruby", ".go": "go", ".rs": "rust", ".java": "java",
	".kt": "kotlin", ".kts": "kotlin", ".cs": "csharp", ".cpp": "cpp", ".cc": "cpp",
	".cxx": "cpp", ".c": "c", ".h": "c", ".hpp": "cpp", ".hxx": "cpp", ".swift": "swift",
	".php": "php", ".scala": "scala", ".sh": "bash", ".bash": "bash", ".zsh": "zsh",
	".yml": "yaml", ".yaml": "yaml", ".json": "json", ".toml": "toml", ".xml": "xml",
	".html": "html", ".css": "css", ".scss": "scss", ".sql": "sql", ".md": "markdown",
	".r": "r", ".dart": "dart", ".lua": "lua", ".ex": "elixir", ".exs": "elixir",
	".erl": "erlang", ".hs": "haskell", ".ml": "ocaml", ".clj": "clojure", ".vim": "vim",
	".tf": "terraform", ".proto": "protobuf",
}

// DetectLanguage looks up the language for a path by its suffix.
func DetectLanguage(path string) string {
	for ext, lang := range extensionLanguage {
		if strings.HasSuffix(path, ext) {
			return lang
		}
	}
	return ""
}

// Parse parses unified diff text into a domain.PatchSet. Empty or
// whitespace-only input yields an empty PatchSet with no error.
func Parse(diffText string) (domain.PatchSet, error) {
	if strings.TrimSpace(diffText) == "" {
		return domain.PatchSet{}, nil
	}

	matches := fileHeaderPattern.FindAllStringSubmatchIndex(diffText, -1)
	if len(matches) == 0 {
		return domain.PatchSet{}, &ParseError{Reason: "no diff --git headers found"}
	}

	var files []domain.FileDiff
	for i, m := range matches {
		start := m[0]
		end := len(diffText)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		section := diffText[start:end]

		destPath := diffText[m[4]:m[5]]
		destPath = domain.NormalizePath(destPath)

		fd, err := parseFileSection(destPath, section)
		if err != nil {
			return domain.PatchSet{}, err
		}
		files = append(files, fd)
	}

	return domain.PatchSet{Files: files}, nil
}

func parseFileSection(path, section string) (domain.FileDiff, error) {
	changeType := domain.FileModified
	var oldPath string

	switch {
	case newFilePattern.MatchString(section):
		changeType = domain.FileAdded
	case deletedFilePattern.MatchString(section):
		changeType = domain.FileDeleted
	default:
		if m := renameFromPattern.FindStringSubmatch(section); m != nil {
			changeType = domain.FileRenamed
			oldPath = domain.NormalizePath(strings.TrimSpace(m[1]))
		} else if renameToPattern.MatchString(section) {
			changeType = domain.FileRenamed
		}
	}

	isBinary := binaryPattern.MatchString(section)

	hunks, added, deleted, err := parseHunks(section)
	if err != nil {
		return domain.FileDiff{}, err
	}

	return domain.FileDiff{
		Path:         path,
		ChangeType:   changeType,
		Hunks:        hunks,
		Language:     DetectLanguage(path),
		OldPath:      oldPath,
		IsBinary:     isBinary,
		AddedLines:   added,
		DeletedLines: deleted,
	}, nil
}

func parseHunks(section string) ([]domain.HunkInfo, int, int, error) {
	locs := hunkHeaderPattern.FindAllStringSubmatchIndex(section, -1)
	if len(locs) == 0 {
		return nil, 0, 0, nil
	}

	var hunks []domain.HunkInfo
	added, deleted := 0, 0

	for i, loc := range locs {
		start := loc[0]
		end := len(section)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		content := strings.TrimRight(section[start:end], "\n")

		sourceStart, err := atoiGroup(section, loc, 1)
		if err != nil {
			return nil, 0, 0, &ParseError{Reason: "malformed hunk header: " + err.Error()}
		}
		sourceLen := atoiGroupDefault(section, loc, 2, 1)
		targetStart, err := atoiGroup(section, loc, 3)
		if err != nil {
			return nil, 0, 0, &ParseError{Reason: "malformed hunk header: " + err.Error()}
		}
		targetLen := atoiGroupDefault(section, loc, 4, 1)

		for _, line := range strings.Split(content, "\n")[1:] {
			if strings.HasPrefix(line, "+") {
				added++
			} else if strings.HasPrefix(line, "-") {
				deleted++
			}
		}

		hunks = append(hunks, domain.HunkInfo{
			SourceStart:  sourceStart,
			SourceLength: sourceLen,
			TargetStart:  targetStart,
			TargetLength: targetLen,
			Content:      content,
		})
	}

	return hunks, added, deleted, nil
}

// atoiGroup reads submatch group g (1-indexed pair at loc[2g], loc[2g+1]) as an int.
func atoiGroup(section string, loc []int, g int) (int, error) {
	lo, hi := loc[2*g], loc[2*g+1]
	if lo < 0 {
		return 0, fmt.Errorf("missing capture group %d", g)
	}
	return strconv.Atoi(section[lo:hi])
}

func atoiGroupDefault(section string, loc []int, g, def int) int {
	lo, hi := loc[2*g], loc[2*g+1]
	if lo < 0 {
		return def
	}
	n, err := strconv.Atoi(section[lo:hi])
	if err != nil {
		return def
	}
	return n
}
