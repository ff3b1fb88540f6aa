package invariant

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ironclad/pkg/condition"
	"github.com/roach88/ironclad/pkg/contract"
	"github.com/roach88/ironclad/pkg/enforce"
)

// Triangle is the end-to-end fixture: three sides that must stay
// positive and satisfy the triangle inequality.
type Triangle struct {
	A, B, C int
}

func side(name string, get func(Triangle) int) condition.Condition {
	return condition.New(name+" > 0", func(cctx condition.Context) (bool, error) {
		tr, ok := cctx.Receiver.(Triangle)
		if !ok {
			return false, fmt.Errorf("receiver is %T, want Triangle", cctx.Receiver)
		}
		return get(tr) > 0, nil
	}, condition.NeedsReceiver())
}

func inequality(name string, check func(Triangle) bool) condition.Condition {
	return condition.New(name, func(cctx condition.Context) (bool, error) {
		tr, ok := cctx.Receiver.(Triangle)
		if !ok {
			return false, fmt.Errorf("receiver is %T, want Triangle", cctx.Receiver)
		}
		return check(tr), nil
	}, condition.NeedsReceiver())
}

// triangleSpec declares the six invariant conditions in a fixed order:
// indexes 0-2 are the positive sides, 3-5 the triangle inequalities.
func triangleSpec(t *testing.T) *Spec {
	t.Helper()
	s, err := NewSpec("geometry.triangle",
		side("a", func(tr Triangle) int { return tr.A }),
		side("b", func(tr Triangle) int { return tr.B }),
		side("c", func(tr Triangle) int { return tr.C }),
		inequality("a+b > c", func(tr Triangle) bool { return tr.A+tr.B > tr.C }),
		inequality("a+c > b", func(tr Triangle) bool { return tr.A+tr.C > tr.B }),
		inequality("b+c > a", func(tr Triangle) bool { return tr.B+tr.C > tr.A }),
	)
	require.NoError(t, err)
	return s
}

func newTriangle(a, b, c int) func() (Triangle, error) {
	return func() (Triangle, error) { return Triangle{A: a, B: b, C: c}, nil }
}

func TestGuard_ValidConstruction(t *testing.T) {
	g, err := New(triangleSpec(t), newTriangle(3, 4, 5))
	require.NoError(t, err)
	assert.Equal(t, StateValid, g.State())
	assert.NotEmpty(t, g.ID())

	tr, err := g.Get()
	require.NoError(t, err)
	assert.Equal(t, Triangle{3, 4, 5}, tr)
}

func TestGuard_ConstructionViolationReportsIndex(t *testing.T) {
	// (1,1,5): sides are positive but 1+1 > 5 fails, which is
	// condition index 3 in declaration order.
	g, err := New(triangleSpec(t), newTriangle(1, 1, 5))

	var v *Violation
	require.ErrorAs(t, err, &v)
	assert.Equal(t, condition.PhasePostConstruction, v.Phase)
	assert.Equal(t, 3, v.Index)
	assert.Equal(t, "a+b > c", v.Label)
	require.NotNil(t, g)
	assert.Equal(t, StateInvalid, g.State())
}

func TestGuard_PoisonedRejectsOperations(t *testing.T) {
	g, err := New(triangleSpec(t), newTriangle(1, 1, 5))
	require.Error(t, err)

	// Never reached Valid; business logic must not run.
	ran := false
	_, opErr := g.Do(context.Background(), "perimeter", nil, nil,
		func(context.Context, *Triangle, map[string]any) (any, error) {
			ran = true
			return nil, nil
		})

	assert.False(t, ran)
	var v *Violation
	require.ErrorAs(t, opErr, &v)
	assert.Equal(t, condition.PhasePostConstruction, v.Phase, "fast-fail carries the original poisoning violation")

	updErr := g.Update("set_a", func(tr *Triangle) error { tr.A = 2; return nil })
	assert.True(t, IsViolation(updErr))

	_, getErr := g.Get()
	assert.True(t, IsViolation(getErr))
}

func TestGuard_ConstructorFailureShortCircuits(t *testing.T) {
	sentinel := errors.New("no memory for triangles today")
	swept := 0
	spec, err := NewSpec("geometry.triangle",
		condition.New("never swept", func(condition.Context) (bool, error) {
			swept++
			return true, nil
		}, condition.NeedsReceiver()),
	)
	require.NoError(t, err)

	g, err := New(spec, func() (Triangle, error) { return Triangle{}, sentinel })

	assert.ErrorIs(t, err, sentinel)
	assert.Nil(t, g)
	assert.Equal(t, 0, swept, "ctor failure must skip the post-construction sweep")
}

func TestGuard_MutationViolationPoisons(t *testing.T) {
	g, err := New(triangleSpec(t), newTriangle(3, 4, 5))
	require.NoError(t, err)

	// a=10 breaks b+c > a (index 5) at the post-operation sweep.
	updErr := g.Update("set_a", func(tr *Triangle) error { tr.A = 10; return nil })

	var v *Violation
	require.ErrorAs(t, updErr, &v)
	assert.Equal(t, condition.PhasePostOperation, v.Phase)
	assert.Equal(t, 5, v.Index)
	assert.Equal(t, "b+c > a", v.Label)
	assert.Equal(t, "set_a", v.Op)
	assert.Equal(t, StateInvalid, g.State())

	// Poisoned: the same violation comes back, business logic skipped.
	nextErr := g.Update("set_b", func(tr *Triangle) error { tr.B = 11; return nil })
	require.ErrorAs(t, nextErr, &v)
	assert.Equal(t, condition.PhasePostOperation, v.Phase)
}

func TestGuard_ValidMutation(t *testing.T) {
	g, err := New(triangleSpec(t), newTriangle(3, 4, 5))
	require.NoError(t, err)

	require.NoError(t, g.Update("set_a", func(tr *Triangle) error { tr.A = 4; return nil }))
	tr, err := g.Get()
	require.NoError(t, err)
	assert.Equal(t, 4, tr.A)
	assert.Equal(t, StateValid, g.State())
}

func TestGuard_PreOperationCatchesExternalCorruption(t *testing.T) {
	t.Cleanup(func() { enforce.Set(enforce.Checked) })

	type Counter struct{ N int }
	spec, err := NewSpec("counter",
		condition.New("non-negative", func(cctx condition.Context) (bool, error) {
			return cctx.Receiver.(Counter).N >= 0, nil
		}, condition.NeedsReceiver()),
	)
	require.NoError(t, err)

	g, err := New(spec, func() (Counter, error) { return Counter{N: 1}, nil })
	require.NoError(t, err)

	// Corrupt the state while checks are off, simulating a direct field
	// write that bypassed the guard. The next operation's pre-sweep
	// catches it before any business logic runs.
	enforce.Set(enforce.Unchecked)
	require.NoError(t, g.Update("smash", func(obj *Counter) error { obj.N = -5; return nil }))
	enforce.Set(enforce.Checked)

	ran := false
	_, doErr := g.Do(context.Background(), "inc", nil, nil,
		func(_ context.Context, obj *Counter, _ map[string]any) (any, error) {
			ran = true
			obj.N++
			return obj.N, nil
		})

	var v *Violation
	require.ErrorAs(t, doErr, &v)
	assert.Equal(t, condition.PhasePreOperation, v.Phase)
	assert.Equal(t, "inc", v.Op)
	assert.False(t, ran, "business logic must not run on corrupt state")
	assert.Equal(t, StateInvalid, g.State())
}

func TestGuard_DoRunsMethodContract(t *testing.T) {
	g, err := New(triangleSpec(t), newTriangle(3, 4, 5))
	require.NoError(t, err)

	cspec, err := contract.NewSpec("geometry.triangle.scale",
		contract.Requires(condition.New("factor is positive", func(cctx condition.Context) (bool, error) {
			f, ok := cctx.Args["factor"].(int)
			return ok && f > 0, nil
		})),
	)
	require.NoError(t, err)

	// Precondition failure: body never runs, instance untouched, guard
	// stays Valid (the caller broke the promise, not the object).
	ran := false
	_, doErr := g.Do(context.Background(), "scale", cspec, map[string]any{"factor": 0},
		func(_ context.Context, obj *Triangle, args map[string]any) (any, error) {
			ran = true
			return nil, nil
		})

	assert.True(t, contract.IsViolation(doErr))
	assert.False(t, ran)
	assert.Equal(t, StateValid, g.State())

	// Passing call.
	got, doErr := g.Do(context.Background(), "scale", cspec, map[string]any{"factor": 2},
		func(_ context.Context, obj *Triangle, args map[string]any) (any, error) {
			f := args["factor"].(int)
			obj.A, obj.B, obj.C = obj.A*f, obj.B*f, obj.C*f
			return *obj, nil
		})
	require.NoError(t, doErr)
	assert.Equal(t, Triangle{6, 8, 10}, got)
}

func TestGuard_BodyErrorPropagatesUnwrapped(t *testing.T) {
	g, err := New(triangleSpec(t), newTriangle(3, 4, 5))
	require.NoError(t, err)

	sentinel := errors.New("downstream failed")
	_, doErr := g.Do(context.Background(), "op", nil, nil,
		func(context.Context, *Triangle, map[string]any) (any, error) {
			return nil, sentinel
		})

	assert.ErrorIs(t, doErr, sentinel)
	assert.False(t, IsViolation(doErr))
	assert.False(t, contract.IsViolation(doErr))
}

func TestGuard_DestroyIsUnconditional(t *testing.T) {
	g, err := New(triangleSpec(t), newTriangle(3, 4, 5))
	require.NoError(t, err)

	// Break the invariant through the raw pointer, then destroy: the
	// pre-destruction sweep fails but the release still runs.
	released := false
	_, _ = g.Do(context.Background(), "smash", nil, nil,
		func(_ context.Context, obj *Triangle, _ map[string]any) (any, error) {
			obj.A = -1
			return nil, nil
		})

	destroyErr := g.Destroy(context.Background(), func(obj *Triangle) error {
		released = true
		return nil
	})

	assert.True(t, released, "teardown must release resources even on a broken invariant")
	assert.Equal(t, StateDestroyed, g.State())
	// The smash already poisoned the guard, so the final sweep is
	// skipped and teardown itself reports nothing.
	assert.NoError(t, destroyErr)

	// Destroyed guards reject everything, idempotently.
	assert.NoError(t, g.Destroy(context.Background()))
	_, getErr := g.Get()
	assert.ErrorIs(t, getErr, ErrDestroyed)
}

func TestGuard_DestroyReportsSweepFailure(t *testing.T) {
	t.Cleanup(func() { enforce.Set(enforce.Checked) })

	type Box struct{ Open bool }
	spec, err := NewSpec("box",
		condition.New("closed", func(cctx condition.Context) (bool, error) {
			return !cctx.Receiver.(Box).Open, nil
		}, condition.NeedsReceiver()),
	)
	require.NoError(t, err)

	g, err := New(spec, func() (Box, error) { return Box{}, nil })
	require.NoError(t, err)

	// Mutate without tripping a sweep: unchecked interlude simulates
	// out-of-band corruption discovered only at teardown.
	enforce.Set(enforce.Unchecked)
	require.NoError(t, g.Update("open", func(b *Box) error { b.Open = true; return nil }))
	enforce.Set(enforce.Checked)

	released := false
	destroyErr := g.Destroy(context.Background(), func(*Box) error {
		released = true
		return nil
	})

	var v *Violation
	require.ErrorAs(t, destroyErr, &v)
	assert.Equal(t, condition.PhasePreDestruction, v.Phase)
	assert.True(t, released)
	assert.Equal(t, StateDestroyed, g.State())
}

func TestGuard_UncheckedModeIsPassthrough(t *testing.T) {
	t.Cleanup(func() { enforce.Set(enforce.Checked) })

	evals := 0
	spec, err := NewSpec("counter",
		condition.New("counted", func(condition.Context) (bool, error) {
			evals++
			return false, nil // would fail every sweep if it ever ran
		}, condition.NeedsReceiver()),
	)
	require.NoError(t, err)

	enforce.Set(enforce.Unchecked)

	g, err := New(spec, func() (int, error) { return 0, nil })
	require.NoError(t, err)

	for i := 0; i < 25; i++ {
		_, err := g.Do(context.Background(), "tick", nil, nil,
			func(_ context.Context, obj *int, _ map[string]any) (any, error) {
				*obj++
				return *obj, nil
			})
		require.NoError(t, err)
	}
	require.NoError(t, g.Update("reset", func(obj *int) error { *obj = 0; return nil }))
	require.NoError(t, g.Destroy(context.Background()))

	assert.Equal(t, 0, evals, "no invariant condition may run in unchecked mode")
}

func TestGuard_WithInstanceID(t *testing.T) {
	g, err := New(triangleSpec(t), newTriangle(3, 4, 5), WithInstanceID("tri-1"))
	require.NoError(t, err)
	assert.Equal(t, "tri-1", g.ID())
	assert.Equal(t, "geometry.triangle", g.Unit())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "valid", StateValid.String())
	assert.Equal(t, "invalid", StateInvalid.String())
	assert.Equal(t, "destroyed", StateDestroyed.String())
}
