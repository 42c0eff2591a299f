package catalog

import (
	"testing"

	"furnistore/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// idOf gives every short test label a stable UUID.
func idOf(label string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(label))
}

func cat(label, name string, parent string, sortOrder int) *models.Category {
	c := &models.Category{
		ID:        idOf(label),
		Name:      name,
		Slug:      label,
		SortOrder: sortOrder,
		IsActive:  true,
	}
	if parent != "" {
		p := idOf(parent)
		c.ParentID = &p
	}
	return c
}

func TestBuildTree_LivingRoomScenario(t *testing.T) {
	records := []*models.Category{
		cat("1", "Living", "", 1),
		cat("2", "Sofas", "1", 1),
		cat("3", "Tables", "1", 2),
	}

	tree := BuildTree(records)

	require.Len(t, tree, 1)
	root := tree[0]
	assert.Equal(t, "Living", root.Name)
	assert.Equal(t, 0, root.Depth)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "Sofas", root.Children[0].Name)
	assert.Equal(t, 1, root.Children[0].Depth)
	assert.Equal(t, "Tables", root.Children[1].Name)
	assert.Equal(t, 1, root.Children[1].Depth)
}

func TestBuildTree_DropsUnresolvedParent(t *testing.T) {
	records := []*models.Category{
		cat("a", "A", "", 0),
		cat("b", "B", "missing", 0),
	}

	tree := BuildTree(records)

	require.Len(t, tree, 1)
	assert.Equal(t, idOf("a"), tree[0].ID)
	assert.Empty(t, tree[0].Children)
	Walk(tree, func(node, _ *models.CategoryTreeNode) bool {
		assert.NotEqual(t, idOf("b"), node.ID)
		return true
	})
	assert.Equal(t, 1, CountNodes(tree))
}

func TestBuildTree_ChildBeforeParent(t *testing.T) {
	records := []*models.Category{
		cat("leaf", "Leaf", "mid", 0),
		cat("mid", "Mid", "root", 0),
		cat("root", "Root", "", 0),
	}

	tree := BuildTree(records)

	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 1)
	mid := tree[0].Children[0]
	require.Len(t, mid.Children, 1)
	assert.Equal(t, 1, mid.Depth)
	assert.Equal(t, 2, mid.Children[0].Depth)
}

func TestBuildTree_PreservesSiblingOrderAndDepth(t *testing.T) {
	records := []*models.Category{
		cat("r1", "Bedroom", "", 1),
		cat("r2", "Dining", "", 2),
		cat("c1", "Beds", "r1", 1),
		cat("c2", "Chairs", "r2", 1),
		cat("c3", "Wardrobes", "r1", 2),
		cat("g1", "Bunk beds", "c1", 1),
		cat("c4", "Benches", "r2", 2),
	}

	tree := BuildTree(records)

	assert.Equal(t, len(records), CountNodes(tree))
	require.Len(t, tree, 2)
	assert.Equal(t, []string{"Beds", "Wardrobes"}, names(tree[0].Children))
	assert.Equal(t, []string{"Chairs", "Benches"}, names(tree[1].Children))

	Walk(tree, func(node, parent *models.CategoryTreeNode) bool {
		if parent == nil {
			assert.Equal(t, 0, node.Depth)
		} else {
			assert.Equal(t, parent.Depth+1, node.Depth, node.Name)
		}
		return true
	})
}

func TestBuildTree_CycleDoesNotLoop(t *testing.T) {
	records := []*models.Category{
		cat("root", "Root", "", 0),
		cat("x", "X", "y", 0),
		cat("y", "Y", "x", 0),
		cat("self", "Self", "self", 0),
	}

	tree := BuildTree(records)

	require.Len(t, tree, 1)
	assert.Equal(t, 1, CountNodes(tree))
	assert.ElementsMatch(t, []uuid.UUID{idOf("x"), idOf("y"), idOf("self")}, DetectCycles(records))
}

func TestBuildTree_EmptyInput(t *testing.T) {
	tree := BuildTree(nil)
	assert.NotNil(t, tree)
	assert.Empty(t, tree)
	assert.Empty(t, FlattenForEditor(tree))
}

func TestFlattenForEditor_PreOrder(t *testing.T) {
	records := []*models.Category{
		cat("r1", "Living", "", 1),
		cat("r2", "Office", "", 2),
		cat("c1", "Sofas", "r1", 1),
		cat("g1", "Corner sofas", "c1", 1),
		cat("c2", "Tables", "r1", 2),
	}
	tree := BuildTree(records)

	flat := FlattenForEditor(tree)

	require.Len(t, flat, CountNodes(tree))
	var manual []string
	Walk(tree, func(node, _ *models.CategoryTreeNode) bool {
		manual = append(manual, node.ID.String())
		return true
	})
	var got []string
	for _, n := range flat {
		got = append(got, n.ID)
	}
	assert.Equal(t, manual, got)
	assert.Equal(t, []string{"Living", "Sofas", "Corner sofas", "Tables", "Office"}, texts(flat))

	assert.Equal(t, models.EditorRootID, flat[0].Parent)
	assert.True(t, flat[0].Droppable)
	assert.Equal(t, idOf("r1").String(), flat[1].Parent)
	assert.True(t, flat[1].Droppable)
	assert.False(t, flat[2].Droppable)
	assert.Equal(t, idOf("c1").String(), flat[2].Parent)
	assert.False(t, flat[4].Droppable)
	assert.Same(t, tree[1], flat[4].Data)
}

func TestEditorNodes_Restartable(t *testing.T) {
	tree := BuildTree([]*models.Category{cat("a", "A", "", 0), cat("b", "B", "a", 0)})
	seq := EditorNodes(tree)

	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
		break
	}
	assert.Equal(t, 2, first)
	assert.Equal(t, 1, second)
}

func TestHasChildren(t *testing.T) {
	tree := BuildTree([]*models.Category{
		cat("a", "A", "", 0),
		cat("b", "B", "a", 0),
		cat("c", "C", "", 1),
	})
	flat := FlattenForEditor(tree)
	idx := NewChildIndex(flat)

	for _, tc := range []struct {
		id   string
		want bool
	}{
		{idOf("a").String(), true},
		{idOf("b").String(), false},
		{idOf("c").String(), false},
		{models.EditorRootID, true},
		{"unknown", false},
	} {
		assert.Equal(t, tc.want, HasChildren(tc.id, flat), tc.id)
		assert.Equal(t, tc.want, idx.HasChildren(tc.id), tc.id)
	}
}

func TestInspect(t *testing.T) {
	records := []*models.Category{
		cat("root", "Root", "", 0),
		cat("orphan", "Orphan", "gone", 0),
		cat("under-orphan", "Under orphan", "orphan", 0),
		cat("x", "X", "y", 0),
		cat("y", "Y", "x", 0),
	}

	report := Inspect(records)

	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 1, report.Placed)
	assert.Equal(t, []uuid.UUID{idOf("orphan"), idOf("under-orphan")}, report.Orphaned)
	assert.Equal(t, []uuid.UUID{idOf("x"), idOf("y")}, report.Cyclic)
}

func TestWouldCreateCycle(t *testing.T) {
	records := []*models.Category{
		cat("a", "A", "", 0),
		cat("b", "B", "a", 0),
		cat("c", "C", "b", 0),
	}
	a, c := idOf("a"), idOf("c")

	assert.True(t, WouldCreateCycle(records, a, &c))
	assert.True(t, WouldCreateCycle(records, a, &a))
	assert.False(t, WouldCreateCycle(records, c, &a))
	assert.False(t, WouldCreateCycle(records, a, nil))
}

func names(nodes []*models.CategoryTreeNode) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Name)
	}
	return out
}

func texts(nodes []models.DraggableTreeNode) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Text)
	}
	return out
}
