package deck

import (
	"fmt"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/parser"

	"github.com/roach88/ironclad/pkg/condition"
)

// Expression conditions evaluate a CUE boolean expression against the
// context record. The context is encoded into a CUE scope under three
// roots:
//
//	args     - bound call arguments
//	result   - the call result (postconditions only)
//	receiver - the guarded instance snapshot
//
// Example expressions: "args.amount > 0", "result >= 0",
// "receiver.a + receiver.b > receiver.c".

// roots an expression may reference, per declaration site.
var (
	requireRoots   = map[string]bool{"args": true, "receiver": true}
	ensureRoots    = map[string]bool{"args": true, "result": true, "receiver": true}
	invariantRoots = map[string]bool{"receiver": true}
)

// predeclared names that look like roots to the scanner but resolve
// inside CUE itself.
var cueBuiltins = map[string]bool{
	"true": true, "false": true, "null": true,
	"len": true, "and": true, "or": true,
	"div": true, "mod": true, "quo": true, "rem": true,
}

// scanRoots parses the expression and returns the context roots it
// references, sorted for stable error messages.
func scanRoots(field, expr string) ([]string, error) {
	parsed, err := parser.ParseExpr(field, expr)
	if err != nil {
		return nil, &CompileError{Field: field, Message: fmt.Sprintf("invalid expression %q: %v", expr, err)}
	}

	set := make(map[string]bool)
	collectRoots(parsed, set)

	roots := make([]string, 0, len(set))
	for r := range set {
		if !cueBuiltins[r] {
			roots = append(roots, r)
		}
	}
	sort.Strings(roots)
	return roots, nil
}

// collectRoots walks an expression and records the base identifier of
// every reference chain. Only chain bases matter: in "receiver.a + 1"
// the root is "receiver", not "a".
func collectRoots(e ast.Expr, set map[string]bool) {
	switch n := e.(type) {
	case *ast.Ident:
		set[n.Name] = true
	case *ast.SelectorExpr:
		collectRoots(n.X, set)
	case *ast.IndexExpr:
		collectRoots(n.X, set)
		collectRoots(n.Index, set)
	case *ast.SliceExpr:
		collectRoots(n.X, set)
	case *ast.BinaryExpr:
		collectRoots(n.X, set)
		collectRoots(n.Y, set)
	case *ast.UnaryExpr:
		collectRoots(n.X, set)
	case *ast.ParenExpr:
		collectRoots(n.X, set)
	case *ast.CallExpr:
		// The callee is a builtin (len, ...); only arguments can
		// reference context.
		for _, arg := range n.Args {
			collectRoots(arg, set)
		}
	}
}

// checkRoots rejects references a declaration site can never satisfy,
// e.g. a requires expression reading result.
func checkRoots(field string, roots, allowed []string) error {
	ok := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		ok[a] = true
	}
	for _, r := range roots {
		if !ok[r] {
			return &CompileError{
				Field:   field,
				Message: fmt.Sprintf("expression references %q; allowed context: %v", r, allowed),
			}
		}
	}
	return nil
}

// exprPredicate is the compiled form of one deck expression.
type exprPredicate struct {
	cc    *cue.Context
	field string
	expr  string
}

// predicate returns the condition.Predicate evaluating the expression.
func (p *exprPredicate) predicate() condition.Predicate {
	return func(cctx condition.Context) (bool, error) {
		scope := map[string]any{
			"args": cctx.Args,
		}
		if scope["args"] == nil {
			scope["args"] = map[string]any{}
		}
		if cctx.HasResult {
			scope["result"] = cctx.Result
		}
		if cctx.HasReceiver {
			scope["receiver"] = cctx.Receiver
		}

		sv := p.cc.Encode(scope)
		if err := sv.Err(); err != nil {
			return false, fmt.Errorf("encode context for %s: %w", p.field, err)
		}

		v := p.cc.CompileString(p.expr, cue.Scope(sv), cue.Filename(p.field))
		if err := v.Err(); err != nil {
			return false, fmt.Errorf("evaluate %s: %w", p.field, err)
		}

		ok, err := v.Bool()
		if err != nil {
			return false, fmt.Errorf("expression %s is not boolean: %w", p.field, err)
		}
		return ok, nil
	}
}

// allowedFor maps a declaration site to its permitted roots.
func allowedFor(site string) []string {
	switch site {
	case "requires":
		return keys(requireRoots)
	case "ensures":
		return keys(ensureRoots)
	default:
		return keys(invariantRoots)
	}
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// compileCondition turns a raw deck condition into an engine condition.
// site is "requires", "ensures", or "conditions".
func compileCondition(cc *cue.Context, field, site string, raw rawCondition) (condition.Condition, error) {
	if raw.Expr == "" {
		return condition.Condition{}, &CompileError{Field: field, Message: "expr is required"}
	}

	roots, err := scanRoots(field, raw.Expr)
	if err != nil {
		return condition.Condition{}, err
	}
	if err := checkRoots(field, roots, allowedFor(site)); err != nil {
		return condition.Condition{}, err
	}

	label := raw.Label
	if label == "" {
		label = raw.Expr
	}

	var opts []condition.Option
	for _, r := range roots {
		switch r {
		case "result":
			opts = append(opts, condition.NeedsResult())
		case "receiver":
			opts = append(opts, condition.NeedsReceiver())
		}
	}
	if len(raw.Establishes) > 0 {
		opts = append(opts, condition.Establishes(raw.Establishes...))
	}

	pred := &exprPredicate{cc: cc, field: field, expr: raw.Expr}
	return condition.New(label, pred.predicate(), opts...), nil
}
