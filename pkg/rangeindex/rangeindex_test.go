package rangeindex_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/msbuildls/pkg/position"
	"github.com/walteh/msbuildls/pkg/rangeindex"
)

func rng(sl, sc, el, ec int) position.Range {
	return position.NewRange(position.OneBased(sl, sc), position.OneBased(el, ec))
}

func buildIndex(t *testing.T) *rangeindex.Index[string] {
	t.Helper()

	idx := rangeindex.New[string]()
	// inserted out of order on purpose
	for name, r := range map[string]position.Range{
		"child2":     rng(1, 21, 1, 50),
		"parent":     rng(1, 1, 1, 100),
		"grandchild": rng(1, 25, 1, 40),
		"child1":     rng(1, 5, 1, 20),
		"sibling":    rng(2, 1, 2, 10),
	} {
		_, _, added := idx.Add(r, name)
		require.True(t, added)
	}
	idx.Sort()
	return idx
}

func TestFind(t *testing.T) {
	ctx := context.Background()
	idx := buildIndex(t)

	tests := []struct {
		pos  position.Position
		want string
		ok   bool
	}{
		{position.OneBased(1, 1), "parent", true},
		{position.OneBased(1, 3), "parent", true},
		{position.OneBased(1, 10), "child1", true},
		{position.OneBased(1, 20), "parent", true},
		{position.OneBased(1, 22), "child2", true},
		{position.OneBased(1, 30), "grandchild", true},
		{position.OneBased(1, 45), "child2", true},
		{position.OneBased(1, 99), "parent", true},
		{position.OneBased(1, 100), "", false},
		{position.OneBased(2, 5), "sibling", true},
		{position.ZeroBased(1, 4), "sibling", true},
		{position.OneBased(3, 1), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.pos.String(), func(t *testing.T) {
			got, _, ok, err := idx.Find(ctx, tt.pos)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShortCircuitMatchesScan(t *testing.T) {
	ctx := context.Background()
	idx := buildIndex(t)

	for _, r := range idx.Ranges() {
		fast, fastRange, ok, err := idx.Find(ctx, r.Start)
		require.NoError(t, err)
		require.True(t, ok)

		slow, slowRange, ok, err := idx.Scan(ctx, r.Start)
		require.NoError(t, err)
		require.True(t, ok)

		assert.Equal(t, slow, fast, "at %s", r.Start)
		assert.Equal(t, slowRange, fastRange, "at %s", r.Start)
	}
}

func TestAddConflict(t *testing.T) {
	idx := rangeindex.New[string]()

	_, _, added := idx.Add(rng(1, 1, 1, 5), "first")
	require.True(t, added)

	existing, existingRange, added := idx.Add(rng(1, 1, 1, 9), "second")
	assert.False(t, added)
	assert.Equal(t, "first", existing)
	assert.Equal(t, rng(1, 1, 1, 5), existingRange)
	assert.Equal(t, 1, idx.Len())

	require.NoError(t, idx.Replace(rng(1, 1, 1, 9), "second"))
	idx.Sort()

	got, gotRange, ok := idx.At(position.OneBased(1, 1))
	require.True(t, ok)
	assert.Equal(t, "second", got)
	assert.Equal(t, rng(1, 1, 1, 9), gotRange)
	assert.Equal(t, []position.Range{rng(1, 1, 1, 9)}, idx.Ranges())

	require.Error(t, idx.Replace(rng(4, 1, 4, 2), "missing"))
}

func TestAllInDocumentOrder(t *testing.T) {
	idx := buildIndex(t)
	assert.Equal(t, []string{"parent", "child1", "child2", "grandchild", "sibling"}, idx.All())
}

func TestCancelledQueryLeavesIndexUntouched(t *testing.T) {
	idx := buildIndex(t)
	before := idx.Ranges()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, ok, err := idx.Find(ctx, position.OneBased(1, 30))
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)

	_, _, _, err = idx.Scan(ctx, position.OneBased(1, 30))
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, before, idx.Ranges())
	assert.True(t, idx.IsSorted())
}

func TestUnsortedScanFails(t *testing.T) {
	idx := rangeindex.New[int]()
	idx.Add(rng(1, 1, 1, 2), 1)

	_, _, _, err := idx.Scan(context.Background(), position.OneBased(1, 1))
	require.Error(t, err)
}
