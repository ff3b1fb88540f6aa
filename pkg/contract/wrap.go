package contract

import (
	"context"

	"github.com/roach88/ironclad/pkg/condition"
	"github.com/roach88/ironclad/pkg/enforce"
)

// Callable is the shape of a wrappable unit: named arguments in, one
// result out. Business code with typed signatures adapts at the
// boundary; the engine itself stays schema-free the way the deck
// compiler and harness need it to be.
type Callable func(ctx context.Context, args map[string]any) (any, error)

// Wrap attaches a contract to a callable and returns the checked form.
// Call sites are untouched: the wrapped callable has the same shape.
//
// Per invocation:
//  1. Unchecked mode: invoke fn directly. No context record is built
//     and no condition runs.
//  2. Sweep preconditions over the bound arguments. On the first
//     failure fn is never invoked and a *Violation is returned.
//  3. Invoke fn exactly once. A failure from fn is a downstream
//     problem, not a contract violation; it comes back wrapped in
//     *InternalFailure with the cause unchanged underneath.
//  4. Sweep postconditions over arguments plus result. A failure here
//     is fatal: the computed result is discarded and a *Violation is
//     returned in its place.
//
// A nil spec is the implicit empty contract: fn runs unchecked except
// for the mode branch.
func Wrap(spec *Spec, fn Callable) Callable {
	if spec == nil {
		return fn
	}

	return func(ctx context.Context, args map[string]any) (any, error) {
		// Mode is read once per invocation; a concurrent toggle never
		// produces a half-checked call.
		if !enforce.Enabled() {
			return fn(ctx, args)
		}

		cctx := condition.Context{Args: args}
		if err := spec.EvalPre(cctx, ""); err != nil {
			return nil, err
		}

		result, err := fn(ctx, args)
		if err != nil {
			return nil, &InternalFailure{Unit: spec.unit, Err: err}
		}

		cctx.Result = result
		cctx.HasResult = true
		if err := spec.EvalPost(cctx, ""); err != nil {
			return nil, err
		}

		return result, nil
	}
}
