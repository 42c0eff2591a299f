package listing

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"furnistore/internal/common"
	"furnistore/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultSearchDebounce is the quiet period before a typed search term is
// applied to the filters.
const DefaultSearchDebounce = 300 * time.Millisecond

var ErrEmptySelection = errors.New("no products selected")

// Fetcher returns one page of the listing.
type Fetcher interface {
	FetchPage(ctx context.Context, req PageRequest) (models.Page, error)
}

// Mutator applies batched product mutations.
type Mutator interface {
	BulkUpdate(ctx context.Context, ids []uuid.UUID, patch models.ProductPatch) error
	BulkDelete(ctx context.Context, ids []uuid.UUID) error
}

// Options configure an Engine.
type Options struct {
	PageSize       int
	SearchDebounce time.Duration
	Filter         models.ProductTableFilter
	Sorting        models.ProductTableSorting
	Logger         *zap.Logger
	// OnChange, if set, runs after every change of the loaded rows.
	OnChange func()
}

// Engine holds the state of one product table: filters, sorting, the loaded
// pages and the row selection. Pages only ever grow forward under one
// configuration; any configuration change or successful mutation starts over
// from the first page.
type Engine struct {
	mu       sync.Mutex
	fetcher  Fetcher
	mutator  Mutator
	logger   *zap.Logger
	onChange func()

	pageSize int
	filter   models.ProductTableFilter
	sorting  models.ProductTableSorting
	key      string
	cache    *PageCache

	generation uint64
	inFlight   bool
	selected   map[uuid.UUID]struct{}

	searchTerm string
	debounce   time.Duration
	timer      *time.Timer
}

// NewEngine creates an engine with nothing loaded.
func NewEngine(fetcher Fetcher, mutator Mutator, opts Options) *Engine {
	sorting, err := NormalizeSorting(opts.Sorting)
	if err != nil {
		sorting = models.DefaultProductSorting()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	debounce := opts.SearchDebounce
	if debounce <= 0 {
		debounce = DefaultSearchDebounce
	}
	e := &Engine{
		fetcher:    fetcher,
		mutator:    mutator,
		logger:     logger,
		onChange:   opts.OnChange,
		pageSize:   ClampPageSize(opts.PageSize),
		filter:     opts.Filter,
		sorting:    sorting,
		cache:      NewPageCache(),
		selected:   make(map[uuid.UUID]struct{}),
		searchTerm: opts.Filter.Search,
		debounce:   debounce,
	}
	e.key = QueryKey(e.filter, e.sorting, e.pageSize)
	return e
}

// LoadMore fetches the page after the last loaded one. It does nothing when
// the last page reported no more rows or when a fetch is already running.
func (e *Engine) LoadMore(ctx context.Context) error {
	e.mu.Lock()
	if e.inFlight {
		e.mu.Unlock()
		return nil
	}
	pages := e.cache.Get(e.key)
	cursor := ""
	if n := len(pages); n > 0 {
		last := pages[n-1]
		if !last.HasMore {
			e.mu.Unlock()
			return nil
		}
		cursor = last.NextCursor
	}
	req := PageRequest{
		PageSize: e.pageSize,
		Cursor:   cursor,
		Filter:   cloneFilter(e.filter),
		Sorting:  e.sorting,
	}
	gen, key := e.generation, e.key
	described := Describe(req.Filter, req.Sorting)
	e.inFlight = true
	e.mu.Unlock()

	page, err := e.fetcher.FetchPage(ctx, req)

	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		e.logger.Debug("discarding stale listing page",
			zap.Uint64("generation", gen), zap.String("key", key), zap.String("query", described))
		return nil
	}
	e.inFlight = false
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.cache.Append(key, page)
	e.mu.Unlock()

	e.notify()
	return nil
}

// UpdateFilters edits the filters in place and restarts pagination. A raw
// search term still waiting for its debounce survives unless the update sets
// Search itself.
func (e *Engine) UpdateFilters(update func(f *models.ProductTableFilter)) {
	e.mu.Lock()
	search := e.filter.Search
	update(&e.filter)
	if e.filter.Search != search {
		e.searchTerm = e.filter.Search
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
	}
	e.resetLocked()
	e.mu.Unlock()
	e.notify()
}

// UpdateSorting replaces the sort and restarts pagination. Unknown columns
// are rejected and leave the state untouched.
func (e *Engine) UpdateSorting(sorting models.ProductTableSorting) error {
	s, err := NormalizeSorting(sorting)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.sorting = s
	e.resetLocked()
	e.mu.Unlock()
	e.notify()
	return nil
}

// SetSearchTerm records the raw search input. It is committed to the filters
// once no new term arrives for the debounce period.
func (e *Engine) SetSearchTerm(term string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.searchTerm = term
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.debounce, func() { e.commitSearch(term) })
}

func (e *Engine) commitSearch(term string) {
	e.mu.Lock()
	if e.searchTerm != term || strings.TrimSpace(term) == e.filter.Search {
		e.mu.Unlock()
		return
	}
	e.filter.Search = strings.TrimSpace(term)
	e.resetLocked()
	e.mu.Unlock()
	e.notify()
}

// SearchTerm returns the raw, possibly not yet applied, search input.
func (e *Engine) SearchTerm() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.searchTerm
}

// Reset drops all loaded pages and loads the first one again.
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	e.resetLocked()
	e.mu.Unlock()
	return e.LoadMore(ctx)
}

// resetLocked discards every page of the current configuration. Responses
// still in flight belong to the previous generation and will be dropped.
func (e *Engine) resetLocked() {
	e.cache.Clear()
	e.generation++
	e.inFlight = false
	e.key = QueryKey(e.filter, e.sorting, e.pageSize)
}

// ToggleRowSelection flips the selection of one row.
func (e *Engine) ToggleRowSelection(id uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.selected[id]; ok {
		delete(e.selected, id)
		return
	}
	e.selected[id] = struct{}{}
}

// ToggleAllRowsSelection selects exactly the loaded rows, or nothing.
func (e *Engine) ToggleAllRowsSelection(selectAll bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selected = make(map[uuid.UUID]struct{})
	if !selectAll {
		return
	}
	for _, page := range e.cache.Get(e.key) {
		for _, item := range page.Items {
			e.selected[item.ID] = struct{}{}
		}
	}
}

// IsSelected reports whether id is selected.
func (e *Engine) IsSelected(id uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.selected[id]
	return ok
}

// SelectedIDs returns the selection, loaded rows first in display order.
func (e *Engine) SelectedIDs() []uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]uuid.UUID, 0, len(e.selected))
	seen := make(map[uuid.UUID]bool, len(e.selected))
	for _, page := range e.cache.Get(e.key) {
		for _, item := range page.Items {
			if _, ok := e.selected[item.ID]; ok && !seen[item.ID] {
				out = append(out, item.ID)
				seen[item.ID] = true
			}
		}
	}
	var rest []uuid.UUID
	for id := range e.selected {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	slices.SortFunc(rest, func(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) })
	return append(out, rest...)
}

// BulkUpdate patches every id in one request. On success the selection is
// cleared and all loaded pages are invalidated.
func (e *Engine) BulkUpdate(ctx context.Context, ids []uuid.UUID, patch models.ProductPatch) error {
	if len(ids) == 0 {
		return ErrEmptySelection
	}
	if err := e.mutator.BulkUpdate(ctx, ids, patch); err != nil {
		return common.Wrap("listing.BulkUpdate", "bulk update failed", err)
	}
	e.afterMutation()
	return nil
}

// BulkDelete soft-deletes every id in one request, with the same success
// handling as BulkUpdate.
func (e *Engine) BulkDelete(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return ErrEmptySelection
	}
	if err := e.mutator.BulkDelete(ctx, ids); err != nil {
		return common.Wrap("listing.BulkDelete", "bulk delete failed", err)
	}
	e.afterMutation()
	return nil
}

func (e *Engine) afterMutation() {
	e.mu.Lock()
	e.selected = make(map[uuid.UUID]struct{})
	e.resetLocked()
	e.mu.Unlock()
	e.notify()
}

// Items returns the loaded rows of every page in order.
func (e *Engine) Items() []models.ProductListItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []models.ProductListItem
	for _, page := range e.cache.Get(e.key) {
		out = append(out, page.Items...)
	}
	return out
}

// TotalCount returns the number of rows matching the current filters as
// reported with the first page, and false before it is loaded.
func (e *Engine) TotalCount() (int64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pages := e.cache.Get(e.key)
	if len(pages) == 0 || pages[0].Total == nil {
		return 0, false
	}
	return *pages[0].Total, true
}

// Pages returns the number of loaded pages.
func (e *Engine) Pages() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cache.Get(e.key))
}

// HasMore reports whether LoadMore could still fetch something. It is true
// before the first page is loaded.
func (e *Engine) HasMore() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	pages := e.cache.Get(e.key)
	if len(pages) == 0 {
		return true
	}
	return pages[len(pages)-1].HasMore
}

// Loading reports whether a fetch is in flight.
func (e *Engine) Loading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight
}

// Filter returns a copy of the applied filters.
func (e *Engine) Filter() models.ProductTableFilter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneFilter(e.filter)
}

// Sorting returns the applied sort.
func (e *Engine) Sorting() models.ProductTableSorting {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sorting
}

// Key returns the query key of the current configuration.
func (e *Engine) Key() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.key
}

// Close stops a pending search commit.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *Engine) notify() {
	if e.onChange != nil {
		e.onChange()
	}
}

func cloneFilter(f models.ProductTableFilter) models.ProductTableFilter {
	f.CategoryIDs = slices.Clone(f.CategoryIDs)
	f.BrandIDs = slices.Clone(f.BrandIDs)
	return f
}
