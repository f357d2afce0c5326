package content

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/inkwell-md/inkwell/pkg/types"
)

// rule is a compiled front-matter check.
type rule struct {
	src  string
	prog *vm.Program
}

// compileRules compiles rule sources once, at construction. A rule that
// does not compile is a configuration error, not a validation outcome.
func compileRules(srcs []string) ([]rule, error) {
	rules := make([]rule, 0, len(srcs))
	for _, src := range srcs {
		prog, err := expr.Compile(src, expr.AllowUndefinedVariables(), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile rule %q: %w", src, err)
		}
		rules = append(rules, rule{src: src, prog: prog})
	}
	return rules, nil
}

// evalRules runs every rule against the front-matter map. A rule that
// evaluates false or fails at runtime contributes one error; positions
// are unknown because rules see the decoded map, not the source text.
func evalRules(rules []rule, fm map[string]any, res *types.ValidationResult) {
	if fm == nil {
		fm = map[string]any{}
	}
	for _, r := range rules {
		out, err := vm.Run(r.prog, fm)
		if err != nil {
			res.AddError(0, 0, fmt.Sprintf("front matter rule %q: %v", r.src, err))
			continue
		}
		if ok, _ := out.(bool); !ok {
			res.AddError(0, 0, fmt.Sprintf("front matter rule failed: %s", r.src))
		}
	}
}
