package prompt

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/miracodeai/mira/internal/diffreview/domain"
)

// RuleDetector scans a set of changed files for domain-specific concerns
// (SQL, Kubernetes manifests, particular languages) so the review prompt
// can be enriched with matching rule text, adapted from the teacher's
// per-stage rule detector to operate on domain.FileDiff/HunkInfo instead
// of its FileChange type.
type RuleDetector struct {
	extRules      map[string]string
	filenameRules map[string]string
	contentRules  map[string]*regexp.Regexp
}

// NewRuleDetector returns a detector with the built-in rule set.
func NewRuleDetector() *RuleDetector {
	return &RuleDetector{
		extRules: map[string]string{
			".cpp": "cpp", ".cxx": "cpp", ".cc": "cpp", ".c": "cpp",
			".h": "cpp", ".hpp": "cpp", ".hxx": "cpp", ".inc": "cpp",
			".go":   "go",
			".py":   "py", ".pyi": "py", ".pyw": "py",
			".sql":  "sql",
			".java": "java",
		},
		filenameRules: map[string]string{
			"Dockerfile": "docker",
		},
		contentRules: map[string]*regexp.Regexp{
			"sql": regexp.MustCompile(`(?i)(SELECT\s+.+\s+FROM|INSERT\s+INTO|UPDATE\s+.+\s+SET|CREATE\s+TABLE|DELETE\s+FROM)`),
			"k8s": regexp.MustCompile(`(?i)^[+\s]*(apiVersion:|kind:\s+(Deployment|Service|Pod|ConfigMap|Secret|Ingress|StatefulSet|DaemonSet|Job|CronJob))`),
		},
	}
}

// Detect returns the sorted set of rule names triggered by files, matched
// by filename prefix, extension, or a content scan of added lines.
func (d *RuleDetector) Detect(files []domain.FileDiff) []string {
	detected := make(map[string]bool)

	for _, f := range files {
		baseName := filepath.Base(f.Path)
		ext := strings.ToLower(filepath.Ext(f.Path))

		for prefix, rule := range d.filenameRules {
			if strings.HasPrefix(baseName, prefix) {
				detected[rule] = true
			}
		}

		if rule, ok := d.extRules[ext]; ok {
			detected[rule] = true
		}

		for rule, pattern := range d.contentRules {
			if detected[rule] {
				continue
			}
			for _, h := range f.Hunks {
				for _, line := range strings.Split(h.Content, "\n") {
					if strings.HasPrefix(line, "+") && pattern.MatchString(line) {
						detected[rule] = true
						break
					}
				}
				if detected[rule] {
					break
				}
			}
		}
	}

	keys := make([]string, 0, len(detected))
	for k := range detected {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadRules detects applicable rules and renders their prompt snippets
// (loaded as "rules/<rule>" templates), concatenated under a heading.
// Missing rule templates are silently skipped.
func (d *RuleDetector) LoadRules(l *loader, files []domain.FileDiff) string {
	rules := d.Detect(files)
	if len(rules) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("## Domain specific rules\n\n")
	for _, r := range rules {
		content, err := l.read("rules/" + r)
		if err != nil {
			continue
		}
		sb.WriteString(content)
		sb.WriteString("\n\n")
	}
	return sb.String()
}
