package contract

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ironclad/pkg/condition"
	"github.com/roach88/ironclad/pkg/enforce"
)

func positiveArg(name string) condition.Condition {
	return condition.New(name+" is positive", func(cctx condition.Context) (bool, error) {
		n, ok := cctx.Args[name].(int)
		if !ok {
			return false, fmt.Errorf("argument %q is not an int", name)
		}
		return n > 0, nil
	})
}

func resultNonNegative() condition.Condition {
	return condition.New("result is non-negative", func(cctx condition.Context) (bool, error) {
		n, ok := cctx.Result.(int)
		if !ok {
			return false, fmt.Errorf("result is not an int")
		}
		return n >= 0, nil
	}, condition.NeedsResult())
}

// sub computes a-b; contract demands positive inputs and a
// non-negative result.
func subSpec(t *testing.T, opts ...SpecOption) *Spec {
	t.Helper()
	all := append([]SpecOption{
		Requires(positiveArg("a"), positiveArg("b")),
		Ensures(resultNonNegative()),
	}, opts...)
	spec, err := NewSpec("math.sub", all...)
	require.NoError(t, err)
	return spec
}

func sub(_ context.Context, args map[string]any) (any, error) {
	return args["a"].(int) - args["b"].(int), nil
}

func TestNewSpec_RejectsResultDependentPrecondition(t *testing.T) {
	_, err := NewSpec("bad.unit",
		Requires(condition.New("peeks at result", func(condition.Context) (bool, error) {
			return true, nil
		}, condition.NeedsResult())),
	)

	var evalErr *condition.EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, condition.PhasePrecondition, evalErr.Phase)
	assert.Equal(t, 0, evalErr.Index)
}

func TestNewSpec_RejectsNilPredicate(t *testing.T) {
	_, err := NewSpec("bad.unit", Ensures(condition.Condition{}))

	var evalErr *condition.EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, condition.PhasePostcondition, evalErr.Phase)
}

func TestNewSpec_RequiresUnit(t *testing.T) {
	_, err := NewSpec("")
	assert.Error(t, err)
}

func TestWrap_PassingCall(t *testing.T) {
	wrapped := Wrap(subSpec(t), sub)

	got, err := wrapped(context.Background(), map[string]any{"a": 5, "b": 3})
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestWrap_PreconditionFailure(t *testing.T) {
	invoked := false
	wrapped := Wrap(subSpec(t), func(ctx context.Context, args map[string]any) (any, error) {
		invoked = true
		return sub(ctx, args)
	})

	_, err := wrapped(context.Background(), map[string]any{"a": 5, "b": -1})

	var v *Violation
	require.ErrorAs(t, err, &v)
	assert.Equal(t, condition.PhasePrecondition, v.Phase)
	assert.Equal(t, 1, v.Index, "second precondition (b) is the first failure")
	assert.Equal(t, "math.sub", v.Unit)
	assert.False(t, invoked, "callable must never run after a precondition failure")
}

func TestWrap_FirstFailingIndexReported(t *testing.T) {
	f := condition.New("fails", func(condition.Context) (bool, error) { return false, nil })
	p := condition.New("passes", func(condition.Context) (bool, error) { return true, nil })

	tests := []struct {
		name  string
		conds []condition.Condition
	}{
		{"false then true", []condition.Condition{f, p}},
		{"true then false", []condition.Condition{p, f}},
	}

	wantIndex := []int{0, 1}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := NewSpec("unit", Requires(tt.conds...))
			require.NoError(t, err)

			wrapped := Wrap(spec, func(context.Context, map[string]any) (any, error) {
				return nil, nil
			})
			_, err = wrapped(context.Background(), nil)

			var v *Violation
			require.ErrorAs(t, err, &v)
			assert.Equal(t, wantIndex[i], v.Index)
		})
	}
}

func TestWrap_PostconditionFailureDiscardsResult(t *testing.T) {
	wrapped := Wrap(subSpec(t), sub)

	// 3-5 computes -2: the callable ran, but its broken promise is
	// fatal and the result never reaches the caller.
	got, err := wrapped(context.Background(), map[string]any{"a": 3, "b": 5})

	var v *Violation
	require.ErrorAs(t, err, &v)
	assert.Equal(t, condition.PhasePostcondition, v.Phase)
	assert.Equal(t, 0, v.Index)
	assert.Nil(t, got)
}

func TestWrap_DownstreamFailureIsNotAViolation(t *testing.T) {
	sentinel := errors.New("disk on fire")
	wrapped := Wrap(subSpec(t), func(context.Context, map[string]any) (any, error) {
		return nil, sentinel
	})

	_, err := wrapped(context.Background(), map[string]any{"a": 1, "b": 1})

	assert.False(t, IsViolation(err))
	var internal *InternalFailure
	require.ErrorAs(t, err, &internal)
	assert.ErrorIs(t, err, sentinel, "cause must be reachable through the wrapper")
}

func TestWrap_CallableRunsExactlyOnce(t *testing.T) {
	calls := 0
	wrapped := Wrap(subSpec(t), func(ctx context.Context, args map[string]any) (any, error) {
		calls++
		return sub(ctx, args)
	})

	_, err := wrapped(context.Background(), map[string]any{"a": 5, "b": 3})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWrap_Idempotent(t *testing.T) {
	wrapped := Wrap(subSpec(t), sub)
	args := map[string]any{"a": 9, "b": 4}

	first, err1 := wrapped(context.Background(), args)
	second, err2 := wrapped(context.Background(), args)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
}

func TestWrap_UncheckedModeIsPassthrough(t *testing.T) {
	t.Cleanup(func() { enforce.Set(enforce.Checked) })

	evals := 0
	counting := condition.New("counted", func(condition.Context) (bool, error) {
		evals++
		return false, nil // would fail every call if it ever ran
	})
	spec, err := NewSpec("unit", Requires(counting), Ensures(counting))
	require.NoError(t, err)

	wrapped := Wrap(spec, func(context.Context, map[string]any) (any, error) {
		return "ok", nil
	})

	enforce.Set(enforce.Unchecked)
	const n = 50
	for i := 0; i < n; i++ {
		got, err := wrapped(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
	}
	assert.Equal(t, 0, evals, "no condition may run in unchecked mode")
}

func TestWrap_NilSpecIsImplicitEmptyContract(t *testing.T) {
	wrapped := Wrap(nil, sub)
	got, err := wrapped(context.Background(), map[string]any{"a": 1, "b": 2})
	require.NoError(t, err)
	assert.Equal(t, -1, got)
}

func TestWrap_ObserverSeesSweeps(t *testing.T) {
	var events []condition.CheckEvent
	obs := condition.ObserverFunc(func(ev condition.CheckEvent) {
		events = append(events, ev)
	})

	wrapped := Wrap(subSpec(t, WithObserver(obs)), sub)
	_, err := wrapped(context.Background(), map[string]any{"a": 5, "b": 3})
	require.NoError(t, err)

	require.Len(t, events, 3) // two preconditions, one postcondition
	assert.Equal(t, condition.PhasePrecondition, events[0].Phase)
	assert.Equal(t, condition.PhasePostcondition, events[2].Phase)
	for _, ev := range events {
		assert.Equal(t, condition.OutcomePass, ev.Outcome)
		assert.Equal(t, "math.sub", ev.Unit)
	}
}

func TestViolation_ErrorMessage(t *testing.T) {
	v := &Violation{Unit: "math.sub", Phase: condition.PhasePrecondition, Index: 1, Label: "b is positive"}
	assert.Equal(t, "contract violation: math.sub precondition[1] (b is positive)", v.Error())
}

func TestMustSpec_PanicsOnDefect(t *testing.T) {
	assert.Panics(t, func() {
		MustSpec("bad", Requires(condition.Condition{}))
	})
}
