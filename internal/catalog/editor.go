package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"furnistore/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrUnknownNode    = errors.New("hierarchy references an unknown category")
	ErrMissingNode    = errors.New("hierarchy is missing categories")
	ErrDuplicateNode  = errors.New("hierarchy lists a category twice")
	ErrHierarchyCycle = errors.New("hierarchy contains a cycle")
	ErrNotSynced      = errors.New("editor has not been synced")
)

// HierarchyStore persists a batch of hierarchy changes atomically.
type HierarchyStore interface {
	ApplyHierarchy(ctx context.Context, changes []models.HierarchyChange) error
}

// TreeEditor owns the editable category list. Server data replaces it
// wholesale on Sync; drops are persisted through the store and only kept when
// the batch succeeds.
type TreeEditor struct {
	mu         sync.Mutex
	store      HierarchyStore
	logger     *zap.Logger
	confirmed  []models.DraggableTreeNode
	current    []models.DraggableTreeNode
	generation uint64
	synced     bool
}

// NewTreeEditor creates an editor that persists drops through store.
func NewTreeEditor(store HierarchyStore, logger *zap.Logger) *TreeEditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TreeEditor{store: store, logger: logger}
}

// Sync replaces the local list with a projection of fresh server data. Any
// local edit not yet confirmed is discarded.
func (e *TreeEditor) Sync(tree []*models.CategoryTreeNode) {
	flat := FlattenForEditor(tree)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.confirmed = flat
	e.current = slices.Clone(flat)
	e.generation++
	e.synced = true
}

// Nodes returns a copy of the list as currently shown.
func (e *TreeEditor) Nodes() []models.DraggableTreeNode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.current)
}

// Generation increments on every Sync.
func (e *TreeEditor) Generation() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

// ApplyDrop takes the complete list reported by the editor after a drop,
// shows it optimistically and persists the difference to the last confirmed
// list as one batch. On failure the list rolls back to the confirmed one.
func (e *TreeEditor) ApplyDrop(ctx context.Context, next []models.DraggableTreeNode) ([]models.HierarchyChange, error) {
	e.mu.Lock()
	if !e.synced {
		e.mu.Unlock()
		return nil, ErrNotSynced
	}
	changes, err := DiffHierarchy(e.confirmed, next)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	if len(changes) == 0 {
		e.current = withChanges(next, nil)
		e.mu.Unlock()
		return changes, nil
	}
	gen := e.generation
	e.current = withChanges(next, nil)
	e.mu.Unlock()

	storeErr := e.store.ApplyHierarchy(ctx, changes)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation {
		// Fresh server data arrived meanwhile and already replaced the list.
		e.logger.Debug("discarding drop result from older generation",
			zap.Uint64("generation", gen), zap.Uint64("current", e.generation))
		return changes, storeErr
	}
	if storeErr != nil {
		e.current = slices.Clone(e.confirmed)
		e.logger.Warn("category hierarchy update failed, rolled back",
			zap.Int("changes", len(changes)), zap.Error(storeErr))
		return nil, storeErr
	}
	accepted := withChanges(next, changes)
	e.confirmed = accepted
	e.current = slices.Clone(accepted)
	e.logger.Info("category hierarchy updated", zap.Int("changes", len(changes)))
	return changes, nil
}

// withChanges returns a copy of flat whose node data reflects the persisted
// parent and sort order. Droppable is recomputed from the new parent links.
func withChanges(flat []models.DraggableTreeNode, changes []models.HierarchyChange) []models.DraggableTreeNode {
	out := slices.Clone(flat)
	children := NewChildIndex(out)
	for i := range out {
		out[i].Droppable = children.HasChildren(out[i].ID)
	}
	byID := make(map[string]models.HierarchyChange, len(changes))
	for _, ch := range changes {
		byID[ch.ID.String()] = ch
	}
	for i := range out {
		ch, ok := byID[out[i].ID]
		if !ok || out[i].Data == nil {
			continue
		}
		data := *out[i].Data
		data.ParentID = ch.ParentID
		data.SortOrder = ch.SortOrder
		out[i].Data = &data
	}
	return out
}

// DiffHierarchy computes the changes that turn prev into next. A node is
// emitted when its parent changed or its stored sort_order no longer equals
// its 1-based position among its siblings in next. Both lists must hold the
// same set of nodes and next must be a forest.
func DiffHierarchy(prev, next []models.DraggableTreeNode) ([]models.HierarchyChange, error) {
	type prevState struct {
		parent    string
		sortOrder int
	}
	before := make(map[string]prevState, len(prev))
	siblingPos := make(map[string]int)
	for _, n := range prev {
		siblingPos[n.Parent]++
		sortOrder := siblingPos[n.Parent]
		if n.Data != nil {
			sortOrder = n.Data.SortOrder
		}
		before[n.ID] = prevState{parent: n.Parent, sortOrder: sortOrder}
	}

	parentOf := make(map[string]string, len(next))
	for _, n := range next {
		if _, ok := before[n.ID]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownNode, n.ID)
		}
		if _, dup := parentOf[n.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
		}
		parentOf[n.ID] = n.Parent
	}
	if len(parentOf) != len(before) {
		return nil, ErrMissingNode
	}
	for id, parent := range parentOf {
		if parent == models.EditorRootID {
			continue
		}
		if _, ok := parentOf[parent]; !ok {
			return nil, fmt.Errorf("%w: parent %s of %s", ErrUnknownNode, parent, id)
		}
	}
	if err := checkAcyclic(parentOf); err != nil {
		return nil, err
	}

	var changes []models.HierarchyChange
	position := make(map[string]int)
	for _, n := range next {
		position[n.Parent]++
		pos := position[n.Parent]
		old := before[n.ID]
		if old.parent == n.Parent && old.sortOrder == pos {
			continue
		}
		id, err := uuid.Parse(n.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownNode, n.ID)
		}
		change := models.HierarchyChange{ID: id, SortOrder: pos}
		if n.Parent != models.EditorRootID {
			parentID, err := uuid.Parse(n.Parent)
			if err != nil {
				return nil, fmt.Errorf("%w: %s", ErrUnknownNode, n.Parent)
			}
			change.ParentID = &parentID
		}
		changes = append(changes, change)
	}
	return changes, nil
}

func checkAcyclic(parentOf map[string]string) error {
	cleared := make(map[string]bool, len(parentOf))
	for id := range parentOf {
		seen := make(map[string]bool)
		for cur := id; cur != models.EditorRootID && !cleared[cur]; cur = parentOf[cur] {
			if seen[cur] {
				return fmt.Errorf("%w at %s", ErrHierarchyCycle, cur)
			}
			seen[cur] = true
		}
		for member := range seen {
			cleared[member] = true
		}
	}
	return nil
}
