package overrides

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLabelSet(t *testing.T) {
	t.Run("keeps discovery order", func(t *testing.T) {
		set := mustLabelSet(t, "b", "a", "c")
		assert.Equal(t, []string{"b", "a", "c"}, set.Labels())
		assert.Equal(t, 3, set.Len())
		assert.Equal(t, "a", set.At(1))
		assert.True(t, set.Contains("c"))
		assert.False(t, set.Contains("d"))
		assert.Equal(t, `["b", "a", "c"]`, set.String())
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		_, err := NewLabelSet("a", "b", "a")
		var duplicate *DuplicateLabelError
		require.ErrorAs(t, err, &duplicate)
		assert.Equal(t, "a", duplicate.Label)
	})

	t.Run("labels are copied", func(t *testing.T) {
		set := mustLabelSet(t, "a")
		labels := set.Labels()
		labels[0] = "mutated"
		assert.Equal(t, "a", set.At(0))
	})
}

func TestValidate(t *testing.T) {
	t.Run("valid subset", func(t *testing.T) {
		assert.NoError(t, Validate(mustLabelSet(t, "a", "b"), []string{"b"}))
		assert.NoError(t, Validate(mustLabelSet(t, "a", "b"), nil))
	})

	t.Run("unknown label", func(t *testing.T) {
		err := Validate(mustLabelSet(t, "x"), []string{"y"})

		var unknown *UnknownLabelError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "y", unknown.Label)
		assert.Equal(t, []string{"x"}, unknown.Known)
		assert.EqualError(t, err, `Unknown override condition label: y. Available labels: ["x"]`)
	})

	t.Run("duplicate label", func(t *testing.T) {
		err := Validate(mustLabelSet(t, "x"), []string{"x", "x"})

		var duplicate *DuplicateLabelError
		require.ErrorAs(t, err, &duplicate)
		assert.Equal(t, "x", duplicate.Label)
		assert.EqualError(t, err, "Duplicate override condition label: x")
	})

	t.Run("first repeated label is reported", func(t *testing.T) {
		err := Validate(mustLabelSet(t, "a", "b"), []string{"a", "b", "b", "a"})
		assert.EqualError(t, err, "Duplicate override condition label: b")
	})

	t.Run("unknown labels are reported before duplicates", func(t *testing.T) {
		err := Validate(mustLabelSet(t, "a"), []string{"a", "a", "z"})
		var unknown *UnknownLabelError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "z", unknown.Label)
	})
}

func TestResolve(t *testing.T) {
	set := mustLabelSet(t, "a", "b")

	t.Run("explicit labels", func(t *testing.T) {
		combination, err := Resolve(set, []string{"b"}, false)
		require.NoError(t, err)
		assert.Equal(t, Combination{"b"}, combination)
	})

	t.Run("no labels", func(t *testing.T) {
		combination, err := Resolve(set, nil, false)
		require.NoError(t, err)
		assert.Empty(t, combination)
	})

	t.Run("override all", func(t *testing.T) {
		combination, err := Resolve(set, nil, true)
		require.NoError(t, err)
		assert.Equal(t, Combination{"a", "b"}, combination)
	})

	t.Run("override all on an empty label set", func(t *testing.T) {
		combination, err := Resolve(mustLabelSet(t), nil, true)
		require.NoError(t, err)
		assert.Empty(t, combination)
	})

	t.Run("override all conflicts with explicit labels", func(t *testing.T) {
		_, err := Resolve(set, []string{"a"}, true)
		assert.ErrorIs(t, err, ErrOverrideAllConflict)

	})

	t.Run("conditions are validated before the override all conflict", func(t *testing.T) {
		_, err := Resolve(set, []string{"unknown"}, true)
		var unknown *UnknownLabelError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "unknown", unknown.Label)

		_, err = Resolve(set, []string{"a", "a"}, true)
		var duplicate *DuplicateLabelError
		assert.ErrorAs(t, err, &duplicate)
	})

	t.Run("invalid labels", func(t *testing.T) {
		_, err := Resolve(set, []string{"c"}, false)
		var unknown *UnknownLabelError
		assert.ErrorAs(t, err, &unknown)
	})
}
