package content

import (
	"fmt"
	"strings"

	"github.com/inkwell-md/inkwell/pkg/types"
)

// componentTag is one occurrence of a capitalized markup tag.
type componentTag struct {
	name string
	line int
	col  int
}

// scanMarkup checks that capitalized component tags (<Note>, </Note>,
// <Embed/>) balance. Lowercase HTML passes through untouched, as does
// anything inside fenced code blocks or inline code spans. startLine is
// the document line the body begins on.
func scanMarkup(body string, startLine int, res *types.ValidationResult) {
	var stack []componentTag
	inFence := false

	for n, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		scanLineTags(line, startLine+n, &stack, res)
	}

	for _, tag := range stack {
		res.AddError(tag.line, tag.col, fmt.Sprintf("unclosed component tag <%s>", tag.name))
	}
}

func scanLineTags(line string, docLine int, stack *[]componentTag, res *types.ValidationResult) {
	inCode := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '`':
			inCode = !inCode
			continue
		case '<':
			if inCode {
				continue
			}
		default:
			continue
		}

		// HTML comment: skip to its end, or give up on the line.
		if strings.HasPrefix(line[i+1:], "!--") {
			end := strings.Index(line[i:], "-->")
			if end < 0 {
				return
			}
			i += end + 2
			continue
		}

		j := i + 1
		closing := j < len(line) && line[j] == '/'
		if closing {
			j++
		}
		name := tagName(line, j)
		if name == "" {
			continue
		}
		col := i + 1

		end := tagEnd(line, j+len(name))
		if end < 0 {
			res.AddError(docLine, col, fmt.Sprintf("unterminated component tag <%s>", name))
			return
		}

		switch {
		case closing:
			if n := len(*stack); n > 0 && (*stack)[n-1].name == name {
				*stack = (*stack)[:n-1]
			} else {
				res.AddError(docLine, col, fmt.Sprintf("unexpected closing tag </%s>", name))
			}
		case line[end-1] == '/':
			// self-closing
		default:
			*stack = append(*stack, componentTag{name: name, line: docLine, col: col})
		}
		i = end
	}
}

// tagName reads a component tag name at line[j]. Component tags start
// with an upper-case ASCII letter; anything else is not ours.
func tagName(line string, j int) string {
	if j >= len(line) || line[j] < 'A' || line[j] > 'Z' {
		return ""
	}
	k := j + 1
	for k < len(line) && isTagNameChar(line[k]) {
		k++
	}
	return line[j:k]
}

func isTagNameChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// tagEnd finds the closing '>' of a tag starting its attribute list at
// j, honoring quoted attribute values. Returns -1 if the tag never
// closes on this line.
func tagEnd(line string, j int) int {
	var quote byte
	for ; j < len(line); j++ {
		c := line[j]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return j
		}
	}
	return -1
}
