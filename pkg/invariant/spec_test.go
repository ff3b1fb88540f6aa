package invariant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ironclad/pkg/condition"
)

func named(label string) condition.Condition {
	return condition.New(label, func(condition.Context) (bool, error) {
		return true, nil
	}, condition.NeedsReceiver())
}

func labels(s *Spec) []string {
	out := make([]string, 0, s.Len())
	for _, c := range s.Conditions() {
		out = append(out, c.Label())
	}
	return out
}

func TestExtend_AppendOnly(t *testing.T) {
	base, err := NewSpec("shape", named("A"))
	require.NoError(t, err)

	sub, err := Extend(base, "shape.polygon", named("B"))
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, labels(base), "base spec must not be mutated")
	assert.Equal(t, []string{"A", "B"}, labels(sub))
	assert.Equal(t, "shape.polygon", sub.Unit())
}

func TestExtend_Associative(t *testing.T) {
	base, err := NewSpec("shape", named("A"))
	require.NoError(t, err)

	// Chain: ([A] + [B]) + [C]
	mid, err := Extend(base, "mid", named("B"))
	require.NoError(t, err)
	chained, err := Extend(mid, "leaf", named("C"))
	require.NoError(t, err)

	// Direct: [A] + [B, C]
	direct, err := Extend(base, "leaf", named("B"), named("C"))
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, labels(chained))
	assert.Equal(t, labels(direct), labels(chained))
}

func TestExtend_MiddleLevelAddsNothing(t *testing.T) {
	base, err := NewSpec("shape", named("A"))
	require.NoError(t, err)

	mid, err := Extend(base, "mid")
	require.NoError(t, err)
	leaf, err := Extend(mid, "leaf", named("B"))
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, labels(leaf))
}

func TestExtend_NilBase(t *testing.T) {
	s, err := Extend(nil, "fresh", named("A"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, labels(s))
}

func TestExtend_InheritsUnitWhenUnnamed(t *testing.T) {
	base, err := NewSpec("shape", named("A"))
	require.NoError(t, err)

	sub, err := Extend(base, "", named("B"))
	require.NoError(t, err)
	assert.Equal(t, "shape", sub.Unit())
}

func TestNewSpec_RejectsResultDependentCondition(t *testing.T) {
	bad := condition.New("peeks at result", func(condition.Context) (bool, error) {
		return true, nil
	}, condition.NeedsResult())

	_, err := NewSpec("shape", bad)

	var evalErr *condition.EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, 0, evalErr.Index)
}

func TestNewSpec_RejectsNilPredicate(t *testing.T) {
	_, err := NewSpec("shape", condition.Condition{})
	assert.Error(t, err)
}

func TestExtend_ValidatesOnlyAdditions(t *testing.T) {
	base, err := NewSpec("shape", named("A"))
	require.NoError(t, err)

	_, err = Extend(base, "sub", condition.Condition{})

	var evalErr *condition.EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, 1, evalErr.Index, "defect is the first added condition, after the inherited one")
}
