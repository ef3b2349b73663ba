package prompt

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed templates/*.md
var defaultTemplates embed.FS

// loader loads a named prompt template with a filesystem-first fallback
// hierarchy, mirroring the teacher's PromptLoader:
//  1. {baseDir}/{name}.md
//  2. embedded default template
type loader struct {
	baseDir string
}

func newLoader(baseDir string) *loader {
	return &loader{baseDir: baseDir}
}

func (l *loader) render(name string, data any) (string, error) {
	content, err := l.read(name)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(name).Parse(content)
	if err != nil {
		return "", fmt.Errorf("parse prompt template %s: %w", name, err)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("execute prompt template %s: %w", name, err)
	}
	return sb.String(), nil
}

func (l *loader) read(name string) (string, error) {
	if l.baseDir != "" {
		path := filepath.Join(l.baseDir, name+".md")
		data, err := os.ReadFile(path)
		if err == nil {
			return string(data), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("read prompt %s: %w", path, err)
		}
	}

	data, err := defaultTemplates.ReadFile("templates/" + name + ".md")
	if err != nil {
		return "", fmt.Errorf("no prompt template found for %q", name)
	}
	return string(data), nil
}
