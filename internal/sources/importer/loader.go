package importer

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

var templateVar = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Loader reads an import file from disk.
type Loader struct {
	filePath string
}

func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads and parses the import file.
func (l *Loader) Load() (File, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}

	data = expandTemplateVariables(data, os.Getenv)

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse import yaml: %w", err)
	}
	return file, nil
}

// expandTemplateVariables replaces {{NAME}} with lookup(NAME).
// Example: {{MINDMARK_HOST}} -> "notes.local"
func expandTemplateVariables(data []byte, lookup func(string) string) []byte {
	return templateVar.ReplaceAllFunc(data, func(m []byte) []byte {
		name := templateVar.FindSubmatch(m)[1]
		return []byte(lookup(string(name)))
	})
}
