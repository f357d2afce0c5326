package content

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/inkwell-md/inkwell/pkg/types"
)

// Validator checks document content. Build one with New; a Validator is
// immutable and safe for concurrent use.
type Validator struct {
	rules []rule
}

// New builds a Validator with the given front-matter rule expressions.
func New(rules []string) (*Validator, error) {
	compiled, err := compileRules(rules)
	if err != nil {
		return nil, err
	}
	return &Validator{rules: compiled}, nil
}

// Validate checks content and reports every problem found. It never
// fails; all outcomes are captured in the result, and identical content
// always yields an identical result.
func (v *Validator) Validate(ctx context.Context, content string) types.ValidationResult {
	res := types.ValidationResult{Valid: true}

	fm, body, fmLine, ok := SplitFrontMatter(content)
	if !ok && fmLine > 0 {
		// Everything below the opener is ambiguous, so stop here.
		res.AddError(fmLine, 1, "unterminated front matter: missing closing ---")
		return res
	}

	fmMap := map[string]any{}
	yamlBroken := false
	bodyLine := 1
	if ok {
		fmMap, yamlBroken = v.checkFrontMatter(fm, fmLine, &res)
		bodyLine = fmLine + strings.Count(fm, "\n") + 2
	}

	scanMarkup(body, bodyLine, &res)

	// Rules run against documents without front matter too, so a rule
	// like `title != nil` can require the field. They are skipped only
	// when the YAML itself was unparseable.
	if !yamlBroken {
		evalRules(v.rules, fmMap, &res)
	}

	return res
}

// checkFrontMatter parses fm and requires a mapping at the top level.
// Returns the decoded map, or broken=true when the YAML did not parse.
func (v *Validator) checkFrontMatter(fm string, fmLine int, res *types.ValidationResult) (m map[string]any, broken bool) {
	if strings.TrimSpace(fm) == "" {
		return map[string]any{}, false
	}

	var node yaml.Node
	if err := yaml.Unmarshal([]byte(fm), &node); err != nil {
		line, msg := yamlError(err, fmLine)
		res.AddError(line, 0, msg)
		return nil, true
	}
	if len(node.Content) == 0 {
		return map[string]any{}, false
	}

	root := node.Content[0]
	if root.Kind != yaml.MappingNode {
		res.AddError(root.Line+fmLine, root.Column, "front matter must be a mapping")
		return nil, true
	}

	if err := root.Decode(&m); err != nil {
		line, msg := yamlError(err, fmLine)
		res.AddError(line, 0, msg)
		return nil, true
	}
	return m, false
}

var yamlLineRe = regexp.MustCompile(`yaml: line (\d+): (.+)`)

// yamlError translates a yaml.v3 error into a document-relative line
// and a message without the parser's own line prefix. Line numbers in
// yaml errors are relative to the front-matter text, which starts one
// line below the opening fence.
func yamlError(err error, fmLine int) (int, string) {
	msg := err.Error()
	if m := yamlLineRe.FindStringSubmatch(msg); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n + fmLine, "front matter: " + m[2]
	}
	return 0, "front matter: " + strings.TrimPrefix(msg, "yaml: ")
}
