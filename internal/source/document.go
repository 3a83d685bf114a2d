package source

import (
	"context"
	"fmt"
	"sort"

	"github.com/logant/DynamoExperiments/internal/geom"
)

// Element is one host element and every representation of its geometry.
type Element struct {
	ID       geom.ElementID
	Name     string
	Category string

	// Geometry holds the element's geometry per detail level. The
	// DetailUndefined entry is used when no level-specific entry fits.
	Geometry map[DetailLevel]geom.Node

	// ViewGeometry holds view-specific geometry (for example cut by a
	// section box). It wins over Geometry when resolving for that view.
	ViewGeometry map[ViewID]geom.Node
}

type viewEntry struct {
	view    View
	visible map[geom.ElementID]struct{}
}

// Document is an in-memory host model.
//
// Build it with NewDocument and the Add methods (or LoadDocument), then
// treat it as read-only: Resolve, IsVisibleInView and ActiveView never
// mutate it and are safe for concurrent use.
type Document struct {
	Name string

	elements map[geom.ElementID]*Element
	order    []geom.ElementID
	views    map[ViewID]*viewEntry
	active   *View
}

// NewDocument creates an empty document.
func NewDocument(name string) *Document {
	return &Document{
		Name:     name,
		elements: make(map[geom.ElementID]*Element),
		views:    make(map[ViewID]*viewEntry),
	}
}

// AddElement registers an element. Ids must be valid and unique.
func (d *Document) AddElement(e *Element) error {
	if e == nil {
		return fmt.Errorf("add element: nil element")
	}
	if !e.ID.Valid() {
		return fmt.Errorf("add element: invalid id %d", e.ID)
	}
	if _, exists := d.elements[e.ID]; exists {
		return fmt.Errorf("add element: duplicate id %d", e.ID)
	}
	d.elements[e.ID] = e
	d.order = append(d.order, e.ID)
	return nil
}

// AddView registers a view and the elements visible in it.
func (d *Document) AddView(v View, visible []geom.ElementID) error {
	if _, exists := d.views[v.ID]; exists {
		return fmt.Errorf("add view: duplicate id %d", v.ID)
	}
	entry := &viewEntry{view: v, visible: make(map[geom.ElementID]struct{}, len(visible))}
	for _, id := range visible {
		entry.visible[id] = struct{}{}
	}
	d.views[v.ID] = entry
	return nil
}

// SetActiveView marks a registered view as active.
func (d *Document) SetActiveView(id ViewID) error {
	entry, ok := d.views[id]
	if !ok {
		return fmt.Errorf("set active view: unknown view %d", id)
	}
	v := entry.view
	d.active = &v
	return nil
}

// ActiveView implements ViewProvider.
func (d *Document) ActiveView() (*View, bool) {
	if d.active == nil {
		return nil, false
	}
	v := *d.active
	return &v, true
}

// View returns a registered view by id.
func (d *Document) View(id ViewID) (*View, bool) {
	entry, ok := d.views[id]
	if !ok {
		return nil, false
	}
	v := entry.view
	return &v, true
}

// Views returns all views ordered by id.
func (d *Document) Views() []View {
	views := make([]View, 0, len(d.views))
	for _, entry := range d.views {
		views = append(views, entry.view)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views
}

// Elements returns element ids in the order they were added.
func (d *Document) Elements() []geom.ElementID {
	out := make([]geom.ElementID, len(d.order))
	copy(out, d.order)
	return out
}

// Element returns an element by id.
func (d *Document) Element(id geom.ElementID) (*Element, bool) {
	e, ok := d.elements[id]
	return e, ok
}

// IsVisibleInView implements Oracle. Unknown views show nothing.
func (d *Document) IsVisibleInView(id geom.ElementID, view ViewID) bool {
	entry, ok := d.views[view]
	if !ok {
		return false
	}
	_, visible := entry.visible[id]
	return visible
}

// Resolve implements Source.
//
// Selection order: the view override when opts.View is set, then the exact
// detail level (DetailUndefined means fine), then finer levels, then
// coarser levels, then the level-less geometry.
func (d *Document) Resolve(ctx context.Context, id geom.ElementID, opts Options) (geom.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e, ok := d.elements[id]
	if !ok {
		return nil, fmt.Errorf("resolve %d: %w", id, ErrElementNotFound)
	}

	if opts.View != nil {
		if n, ok := e.ViewGeometry[opts.View.ID]; ok {
			return n, nil
		}
	}

	return selectDetail(e.Geometry, opts.DetailLevel), nil
}

func selectDetail(geometry map[DetailLevel]geom.Node, level DetailLevel) geom.Node {
	if len(geometry) == 0 {
		return nil
	}
	if level == DetailUndefined {
		level = DetailFine
	}
	for l := level; l <= DetailFine; l++ {
		if n, ok := geometry[l]; ok {
			return n
		}
	}
	for l := level - 1; l >= DetailCoarse; l-- {
		if n, ok := geometry[l]; ok {
			return n
		}
	}
	return geometry[DetailUndefined]
}
