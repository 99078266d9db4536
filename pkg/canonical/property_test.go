package canonical

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type orderedPairs struct {
	keys   []string
	values []int
}

func (p orderedPairs) CanonicalValue() any {
	m := make(map[string]any, len(p.keys))
	for i, k := range p.keys {
		m[k] = p.values[i]
	}
	return m
}

func TestMarshal_PermutedKeysProduceSameText(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		keys := rapid.SliceOfDistinct(rapid.String(), rapid.ID[string]).Draw(t, "keys")
		values := rapid.SliceOfN(rapid.Int(), len(keys), len(keys)).Draw(t, "values")
		order := rapid.Permutation(indexes(len(keys))).Draw(t, "order")

		permutedKeys := make([]string, len(keys))
		permutedValues := make([]int, len(keys))
		for i, j := range order {
			permutedKeys[i] = keys[j]
			permutedValues[i] = values[j]
		}

		a, err := Marshal(orderedPairs{keys: keys, values: values})
		require.NoError(t, err)
		b, err := Marshal(orderedPairs{keys: permutedKeys, values: permutedValues})
		require.NoError(t, err)
		if a != b {
			t.Fatalf("permuted input changed output:\n%s\n%s", a, b)
		}
	})
}

func TestMarshal_OutputIsValidJSON(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		value := map[string]any{
			"strings": rapid.SliceOf(rapid.String()).Draw(t, "strings"),
			"floats":  rapid.SliceOf(rapid.Float64()).Draw(t, "floats"),
			"nested":  rapid.MapOf(rapid.StringN(0, 8, -1), rapid.Int64()).Draw(t, "nested"),
		}

		text, err := Marshal(value)
		require.NoError(t, err)
		if !json.Valid([]byte(text)) {
			t.Fatalf("invalid JSON: %s", text)
		}

		again, err := Marshal(value)
		require.NoError(t, err)
		if text != again {
			t.Fatalf("non-deterministic output:\n%s\n%s", text, again)
		}
	})
}

func TestMarshal_BreadthMarkerCountsOmittedItems(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		items := rapid.SliceOfN(rapid.Int(), 1, 50).Draw(t, "items")
		limit := rapid.IntRange(1, 60).Draw(t, "limit")

		s := MustNew(Options{MaximumBreadth: limit})
		text, err := s.Marshal(items)
		require.NoError(t, err)

		var decoded []any
		require.NoError(t, json.Unmarshal([]byte(text), &decoded))
		if len(items) <= limit {
			require.Len(t, decoded, len(items))
			return
		}
		require.Len(t, decoded, limit+1)
		require.Equal(t, "... "+itemCount(len(items)-limit)+" not stringified", decoded[limit])
	})
}

func indexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
