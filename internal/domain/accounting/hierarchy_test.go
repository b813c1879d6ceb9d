package accounting

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chart builds root(1000) -> a(1100) -> b(1110), plus a second root 2000.
func chart(t *testing.T) (root, a, b, other *Account) {
	t.Helper()
	tenantID := uuid.New()
	root = mustAccount(t, tenantID, "1000", AccountTypeAsset)
	a = mustAccount(t, tenantID, "1100", AccountTypeAsset)
	b = mustAccount(t, tenantID, "1110", AccountTypeAsset)
	other = mustAccount(t, tenantID, "2000", AccountTypeLiability)
	a.ParentAccountID = &root.ID
	b.ParentAccountID = &a.ID
	return root, a, b, other
}

func TestComputeHierarchy(t *testing.T) {
	root, a, b, other := chart(t)
	snap := NewAccountSnapshot([]*Account{root, a, b, other})

	positions, err := ComputeHierarchy(snap)
	require.NoError(t, err)

	assert.Equal(t, HierarchyPosition{Depth: 0, Path: "1000"}, positions[root.ID])
	assert.Equal(t, HierarchyPosition{Depth: 1, Path: "1000.1100"}, positions[a.ID])
	assert.Equal(t, HierarchyPosition{Depth: 2, Path: "1000.1100.1110"}, positions[b.ID])
	assert.Equal(t, HierarchyPosition{Depth: 0, Path: "2000"}, positions[other.ID])
}

func TestComputeHierarchy_MissingParent(t *testing.T) {
	_, a, _, _ := chart(t)
	_, err := ComputeHierarchy(NewAccountSnapshot([]*Account{a}))
	assert.Error(t, err)
}

func TestDetectCycle(t *testing.T) {
	root, a, b, other := chart(t)
	snap := NewAccountSnapshot([]*Account{root, a, b, other})

	t.Run("self parent", func(t *testing.T) {
		assert.ErrorIs(t, DetectCycle(snap, a.ID, &a.ID), ErrCircularHierarchy)
	})
	t.Run("parent under own descendant", func(t *testing.T) {
		assert.ErrorIs(t, DetectCycle(snap, root.ID, &b.ID), ErrCircularHierarchy)
	})
	t.Run("move to unrelated root", func(t *testing.T) {
		assert.NoError(t, DetectCycle(snap, a.ID, &other.ID))
	})
	t.Run("detach to root", func(t *testing.T) {
		assert.NoError(t, DetectCycle(snap, b.ID, nil))
	})
	t.Run("unknown parent", func(t *testing.T) {
		missing := uuid.New()
		assert.Error(t, DetectCycle(snap, a.ID, &missing))
	})
}

func TestRecomputeSubtree_AfterReparent(t *testing.T) {
	root, a, b, other := chart(t)
	snap := NewAccountSnapshot([]*Account{root, a, b, other}).WithParent(a.ID, &other.ID)

	positions, err := RecomputeSubtree(snap, a.ID)
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, HierarchyPosition{Depth: 1, Path: "2000.1100"}, positions[a.ID])
	assert.Equal(t, HierarchyPosition{Depth: 2, Path: "2000.1100.1110"}, positions[b.ID])

	changed := ApplyHierarchy([]*Account{root, a, b, other}, positions)
	assert.Len(t, changed, 2)
	assert.Equal(t, "2000.1100.1110", b.Path)
}

func TestSnapshotIsNotMutatedByWithParent(t *testing.T) {
	root, a, b, other := chart(t)
	base := NewAccountSnapshot([]*Account{root, a, b, other})
	_ = base.WithParent(a.ID, &other.ID)

	positions, err := ComputeHierarchy(base)
	require.NoError(t, err)
	assert.Equal(t, "1000.1100", positions[a.ID].Path)
}

func TestDescendantsAndBuildTree(t *testing.T) {
	root, a, b, other := chart(t)
	snap := NewAccountSnapshot([]*Account{root, a, b, other})

	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, Descendants(snap, root.ID))
	assert.True(t, IsDescendant(snap, root.ID, b.ID))
	assert.False(t, IsDescendant(snap, b.ID, root.ID))

	tree := BuildTree([]*Account{b, other, a, root})
	require.Len(t, tree, 2)
	assert.Equal(t, "1000", tree[0].Account.AccountNumber)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "1110", tree[0].Children[0].Children[0].Account.AccountNumber)
}
