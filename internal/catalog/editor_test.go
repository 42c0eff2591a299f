package catalog

import (
	"context"
	"errors"
	"slices"
	"testing"

	"furnistore/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockHierarchyStore struct {
	mock.Mock
}

func (m *MockHierarchyStore) ApplyHierarchy(ctx context.Context, changes []models.HierarchyChange) error {
	args := m.Called(ctx, changes)
	return args.Error(0)
}

func sampleTree() []*models.CategoryTreeNode {
	return BuildTree([]*models.Category{
		cat("living", "Living", "", 1),
		cat("sofas", "Sofas", "living", 1),
		cat("tables", "Tables", "living", 2),
		cat("office", "Office", "", 2),
	})
}

// moveTablesToOffice is the list the editor reports after dragging
// "Tables" under "Office".
func moveTablesToOffice(flat []models.DraggableTreeNode) []models.DraggableTreeNode {
	next := slices.Clone(flat)
	for i := range next {
		if next[i].ID == idOf("tables").String() {
			next[i].Parent = idOf("office").String()
		}
	}
	return next
}

func TestDiffHierarchy_Reparent(t *testing.T) {
	prev := FlattenForEditor(sampleTree())
	next := moveTablesToOffice(prev)

	changes, err := DiffHierarchy(prev, next)

	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, idOf("tables"), changes[0].ID)
	require.NotNil(t, changes[0].ParentID)
	assert.Equal(t, idOf("office"), *changes[0].ParentID)
	assert.Equal(t, 1, changes[0].SortOrder)
}

func TestDiffHierarchy_ReorderSiblings(t *testing.T) {
	prev := FlattenForEditor(sampleTree())
	// Living, Sofas, Tables, Office -> Office, Living, Sofas, Tables
	next := []models.DraggableTreeNode{prev[3], prev[0], prev[1], prev[2]}

	changes, err := DiffHierarchy(prev, next)

	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, idOf("office"), changes[0].ID)
	assert.Nil(t, changes[0].ParentID)
	assert.Equal(t, 1, changes[0].SortOrder)
	assert.Equal(t, idOf("living"), changes[1].ID)
	assert.Equal(t, 2, changes[1].SortOrder)
}

func TestDiffHierarchy_NoChange(t *testing.T) {
	prev := FlattenForEditor(sampleTree())

	changes, err := DiffHierarchy(prev, slices.Clone(prev))

	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestDiffHierarchy_Rejects(t *testing.T) {
	prev := FlattenForEditor(sampleTree())

	tests := []struct {
		name    string
		next    func() []models.DraggableTreeNode
		wantErr error
	}{
		{
			name: "unknown node",
			next: func() []models.DraggableTreeNode {
				return append(slices.Clone(prev), models.DraggableTreeNode{ID: idOf("new").String(), Parent: models.EditorRootID})
			},
			wantErr: ErrUnknownNode,
		},
		{
			name:    "missing node",
			next:    func() []models.DraggableTreeNode { return slices.Clone(prev[:3]) },
			wantErr: ErrMissingNode,
		},
		{
			name: "duplicate node",
			next: func() []models.DraggableTreeNode {
				next := slices.Clone(prev)
				next[3] = next[2]
				return next
			},
			wantErr: ErrDuplicateNode,
		},
		{
			name: "unknown parent",
			next: func() []models.DraggableTreeNode {
				next := slices.Clone(prev)
				next[1].Parent = idOf("nowhere").String()
				return next
			},
			wantErr: ErrUnknownNode,
		},
		{
			name: "cycle",
			next: func() []models.DraggableTreeNode {
				next := slices.Clone(prev)
				next[0].Parent = idOf("sofas").String()
				return next
			},
			wantErr: ErrHierarchyCycle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DiffHierarchy(prev, tt.next())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTreeEditor_ApplyDropPersists(t *testing.T) {
	store := new(MockHierarchyStore)
	editor := NewTreeEditor(store, nil)
	editor.Sync(sampleTree())
	next := moveTablesToOffice(editor.Nodes())

	store.On("ApplyHierarchy", mock.Anything, mock.MatchedBy(func(ch []models.HierarchyChange) bool {
		return len(ch) == 1 && ch[0].ID == idOf("tables")
	})).Return(nil).Once()

	changes, err := editor.ApplyDrop(context.Background(), next)

	require.NoError(t, err)
	assert.Len(t, changes, 1)
	nodes := editor.Nodes()
	require.Len(t, nodes, len(next))
	for i := range next {
		assert.Equal(t, next[i].ID, nodes[i].ID)
		assert.Equal(t, next[i].Parent, nodes[i].Parent)
	}
	assert.Equal(t, 1, nodes[2].Data.SortOrder)
	store.AssertExpectations(t)

	// The accepted list is the new baseline: dropping it again is a no-op.
	changes, err = editor.ApplyDrop(context.Background(), nodes)
	require.NoError(t, err)
	assert.Empty(t, changes)
	store.AssertNumberOfCalls(t, "ApplyHierarchy", 1)
}

func TestTreeEditor_ApplyDropRecomputesDroppable(t *testing.T) {
	store := new(MockHierarchyStore)
	editor := NewTreeEditor(store, nil)
	editor.Sync(sampleTree())

	next := editor.Nodes()
	for i := range next {
		if next[i].Parent == idOf("living").String() {
			next[i].Parent = idOf("office").String()
		}
	}
	store.On("ApplyHierarchy", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := editor.ApplyDrop(context.Background(), next)
	require.NoError(t, err)

	droppable := make(map[string]bool)
	for _, n := range editor.Nodes() {
		droppable[n.ID] = n.Droppable
	}
	assert.False(t, droppable[idOf("living").String()])
	assert.True(t, droppable[idOf("office").String()])
	store.AssertExpectations(t)
}

func TestTreeEditor_ApplyDropRollsBack(t *testing.T) {
	store := new(MockHierarchyStore)
	editor := NewTreeEditor(store, nil)
	editor.Sync(sampleTree())
	before := editor.Nodes()

	store.On("ApplyHierarchy", mock.Anything, mock.Anything).Return(errors.New("connection reset")).Once()

	changes, err := editor.ApplyDrop(context.Background(), moveTablesToOffice(before))

	require.Error(t, err)
	assert.Nil(t, changes)
	assert.Equal(t, before, editor.Nodes())
}

func TestTreeEditor_InvalidDropLeavesListUntouched(t *testing.T) {
	store := new(MockHierarchyStore)
	editor := NewTreeEditor(store, nil)
	editor.Sync(sampleTree())
	before := editor.Nodes()

	_, err := editor.ApplyDrop(context.Background(), before[:2])

	assert.ErrorIs(t, err, ErrMissingNode)
	assert.Equal(t, before, editor.Nodes())
	store.AssertNotCalled(t, "ApplyHierarchy", mock.Anything, mock.Anything)
}

func TestTreeEditor_RequiresSync(t *testing.T) {
	editor := NewTreeEditor(new(MockHierarchyStore), nil)

	_, err := editor.ApplyDrop(context.Background(), nil)

	assert.ErrorIs(t, err, ErrNotSynced)
}

func TestTreeEditor_SyncReplacesWholesale(t *testing.T) {
	store := new(MockHierarchyStore)
	editor := NewTreeEditor(store, nil)
	editor.Sync(sampleTree())
	gen := editor.Generation()

	fresh := BuildTree([]*models.Category{cat("outdoor", "Outdoor", "", 1)})
	editor.Sync(fresh)

	assert.Equal(t, gen+1, editor.Generation())
	nodes := editor.Nodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, "Outdoor", nodes[0].Text)
}
