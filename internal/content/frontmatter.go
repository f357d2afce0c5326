// Package content validates document content: front-matter shape and
// syntax, embedded component markup, and configured front-matter rules.
package content

import (
	"strings"

	"gopkg.in/yaml.v3"
)

const fence = "---"

// SplitFrontMatter separates a leading front-matter block from the
// document body. fmLine is the line number of the opening fence (0 when
// the document has none); ok is true only when the block is properly
// terminated. An opening fence without a closing one returns fmLine > 0
// and ok == false, with the body left as the full content.
func SplitFrontMatter(content string) (fm string, body string, fmLine int, ok bool) {
	lines := strings.SplitAfter(content, "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], "\r\n") != fence {
		return "", content, 0, false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r\n") == fence {
			return strings.Join(lines[1:i], ""), strings.Join(lines[i+1:], ""), 1, true
		}
	}
	return "", content, 1, false
}

// DecodeFrontMatter parses front-matter YAML into a map. Empty or
// blank input yields an empty map.
func DecodeFrontMatter(fm string) (map[string]any, error) {
	m := map[string]any{}
	if strings.TrimSpace(fm) == "" {
		return m, nil
	}
	if err := yaml.Unmarshal([]byte(fm), &m); err != nil {
		return nil, err
	}
	return m, nil
}
