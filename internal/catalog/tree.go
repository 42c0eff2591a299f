// Package catalog builds the category hierarchy from flat category rows and
// keeps the editable projection used by the drag-and-drop category editor.
package catalog

import (
	"iter"
	"slices"

	"furnistore/internal/models"

	"github.com/google/uuid"
)

// BuildTree turns active categories, already ordered by (sort_order, name),
// into a forest. Sibling order follows input order. A row whose parent_id is
// set but does not resolve is dropped, and so is everything below it; rows
// caught in a parent cycle are never reachable from a root and are dropped
// the same way.
func BuildTree(records []*models.Category) []*models.CategoryTreeNode {
	index := make(map[uuid.UUID]*models.CategoryTreeNode, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if _, dup := index[rec.ID]; dup {
			continue
		}
		index[rec.ID] = &models.CategoryTreeNode{
			Category: *rec,
			Children: []*models.CategoryTreeNode{},
		}
	}

	roots := make([]*models.CategoryTreeNode, 0)
	attached := make(map[uuid.UUID]bool, len(index))
	for _, rec := range records {
		if rec == nil || attached[rec.ID] {
			continue
		}
		node := index[rec.ID]
		attached[rec.ID] = true

		if rec.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := index[*rec.ParentID]
		if !ok {
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	assignDepth(roots)
	return roots
}

// assignDepth walks down from the roots so depth is parent.depth+1 whatever
// order the rows arrived in.
func assignDepth(roots []*models.CategoryTreeNode) {
	stack := make([]*models.CategoryTreeNode, 0, len(roots))
	for _, root := range roots {
		root.Depth = 0
		stack = append(stack, root)
	}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range node.Children {
			child.Depth = node.Depth + 1
			stack = append(stack, child)
		}
	}
}

// Walk visits every node of the forest in pre-order. It stops early when fn
// returns false.
func Walk(tree []*models.CategoryTreeNode, fn func(node, parent *models.CategoryTreeNode) bool) {
	type frame struct {
		node   *models.CategoryTreeNode
		parent *models.CategoryTreeNode
	}
	stack := make([]frame, 0, len(tree))
	for i := len(tree) - 1; i >= 0; i-- {
		stack = append(stack, frame{node: tree[i]})
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(top.node, top.parent) {
			return
		}
		for i := len(top.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: top.node.Children[i], parent: top.node})
		}
	}
}

// CountNodes returns the number of nodes in the forest.
func CountNodes(tree []*models.CategoryTreeNode) int {
	n := 0
	Walk(tree, func(_, _ *models.CategoryTreeNode) bool {
		n++
		return true
	})
	return n
}

// EditorNodes yields the editor projection of the forest in pre-order:
// parents before children, siblings in tree order. The sequence can be
// ranged over any number of times.
func EditorNodes(tree []*models.CategoryTreeNode) iter.Seq[models.DraggableTreeNode] {
	return func(yield func(models.DraggableTreeNode) bool) {
		Walk(tree, func(node, parent *models.CategoryTreeNode) bool {
			parentID := models.EditorRootID
			if parent != nil {
				parentID = parent.ID.String()
			}
			return yield(models.DraggableTreeNode{
				ID:        node.ID.String(),
				Parent:    parentID,
				Droppable: len(node.Children) > 0,
				Text:      node.Name,
				Data:      node,
			})
		})
	}
}

// FlattenForEditor materializes EditorNodes.
func FlattenForEditor(tree []*models.CategoryTreeNode) []models.DraggableTreeNode {
	return slices.Collect(EditorNodes(tree))
}

// HasChildren reports whether any entry of flat has nodeID as its parent.
func HasChildren(nodeID string, flat []models.DraggableTreeNode) bool {
	return slices.ContainsFunc(flat, func(n models.DraggableTreeNode) bool {
		return n.Parent == nodeID
	})
}

// ChildIndex answers HasChildren in constant time for a fixed list.
type ChildIndex map[string]int

func NewChildIndex(flat []models.DraggableTreeNode) ChildIndex {
	idx := make(ChildIndex, len(flat))
	for _, n := range flat {
		idx[n.Parent]++
	}
	return idx
}

func (idx ChildIndex) HasChildren(nodeID string) bool {
	return idx[nodeID] > 0
}

// DetectCycles returns the ids of records whose parent chain loops back onto
// itself, in input order.
func DetectCycles(records []*models.Category) []uuid.UUID {
	parentOf := make(map[uuid.UUID]*uuid.UUID, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if _, dup := parentOf[rec.ID]; !dup {
			parentOf[rec.ID] = rec.ParentID
		}
	}

	const (
		unvisited = iota
		inPath
		done
	)
	state := make(map[uuid.UUID]int, len(parentOf))
	cyclic := make(map[uuid.UUID]bool)

	for _, rec := range records {
		if rec == nil || state[rec.ID] != unvisited {
			continue
		}
		var path []uuid.UUID
		id := rec.ID
		for {
			st := state[id]
			if st == done {
				break
			}
			if st == inPath {
				start := slices.Index(path, id)
				for _, member := range path[start:] {
					cyclic[member] = true
				}
				break
			}
			state[id] = inPath
			path = append(path, id)
			parent, known := parentOf[id]
			if !known || parent == nil {
				break
			}
			if _, exists := parentOf[*parent]; !exists {
				break
			}
			id = *parent
		}
		for _, member := range path {
			state[member] = done
		}
	}

	out := make([]uuid.UUID, 0, len(cyclic))
	for _, rec := range records {
		if rec != nil && cyclic[rec.ID] && !slices.Contains(out, rec.ID) {
			out = append(out, rec.ID)
		}
	}
	return out
}

// DroppedRecords returns the records that BuildTree left out of tree.
func DroppedRecords(records []*models.Category, tree []*models.CategoryTreeNode) []*models.Category {
	placed := make(map[uuid.UUID]bool, len(records))
	Walk(tree, func(node, _ *models.CategoryTreeNode) bool {
		placed[node.ID] = true
		return true
	})
	var dropped []*models.Category
	for _, rec := range records {
		if rec != nil && !placed[rec.ID] {
			dropped = append(dropped, rec)
		}
	}
	return dropped
}

// Inspect reports which records cannot be placed in the tree and why.
func Inspect(records []*models.Category) models.CategoryIntegrityReport {
	tree := BuildTree(records)
	cyclic := DetectCycles(records)
	isCyclic := make(map[uuid.UUID]bool, len(cyclic))
	for _, id := range cyclic {
		isCyclic[id] = true
	}

	report := models.CategoryIntegrityReport{
		Total:    len(records),
		Placed:   CountNodes(tree),
		Orphaned: []uuid.UUID{},
		Cyclic:   cyclic,
	}
	for _, rec := range DroppedRecords(records, tree) {
		if !isCyclic[rec.ID] {
			report.Orphaned = append(report.Orphaned, rec.ID)
		}
	}
	return report
}

// WouldCreateCycle reports whether re-parenting id under newParent would put
// id among its own ancestors.
func WouldCreateCycle(records []*models.Category, id uuid.UUID, newParent *uuid.UUID) bool {
	if newParent == nil {
		return false
	}
	parentOf := make(map[uuid.UUID]*uuid.UUID, len(records))
	for _, rec := range records {
		parentOf[rec.ID] = rec.ParentID
	}
	seen := make(map[uuid.UUID]bool)
	for cur := newParent; cur != nil; cur = parentOf[*cur] {
		if *cur == id {
			return true
		}
		if seen[*cur] {
			return true
		}
		seen[*cur] = true
	}
	return false
}
