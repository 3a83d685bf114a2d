package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/logant/DynamoExperiments/internal/geom"
	"github.com/logant/DynamoExperiments/internal/source"
	"github.com/logant/DynamoExperiments/internal/traverse"
)

// ErrNoView is returned for a view-scoped batch when no active view is
// known.
var ErrNoView = errors.New("view-scoped batch requires an active view")

// Orchestrator runs batches against one geometry source.
type Orchestrator struct {
	src       source.Source
	oracle    source.Oracle
	view      *source.View
	workers   int
	runIDs    RunIDGenerator
	logger    *slog.Logger
	traverser *traverse.Traverser
	travOpts  []traverse.Option
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithView sets the view used for view-scoped batches, overriding the
// source's active view.
func WithView(v source.View) Option {
	return func(o *Orchestrator) {
		o.view = &v
	}
}

// WithWorkers sets how many elements are processed at once.
// Default: 1 (sequential). Values above 1 require a Source and Oracle
// that are safe for concurrent reads.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithRunIDGenerator sets the run id source. Default: UUIDv7Generator.
func WithRunIDGenerator(gen RunIDGenerator) Option {
	return func(o *Orchestrator) {
		o.runIDs = gen
	}
}

// WithLogger sets the logger for the orchestrator and its traverser.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithMaxDepth sets the instance nesting limit of the traverser.
func WithMaxDepth(depth int) Option {
	return func(o *Orchestrator) {
		o.travOpts = append(o.travOpts, traverse.WithMaxDepth(depth))
	}
}

// New creates an Orchestrator. oracle may be nil when no batch will be
// view-scoped.
func New(src source.Source, oracle source.Oracle, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		src:     src,
		oracle:  oracle,
		workers: 1,
		runIDs:  UUIDv7Generator{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.traverser = traverse.New(append([]traverse.Option{traverse.WithLogger(o.logger)}, o.travOpts...)...)
	return o
}

// Process converts the geometry of each element.
//
// The result always has one slot per input element, in input order. When
// viewScoped is set, elements not visible in the active view are skipped
// before resolution and geometry is requested at the view's detail level;
// otherwise geometry is requested at the finest detail with no view.
func (o *Orchestrator) Process(ctx context.Context, elements []geom.ElementID, viewScoped bool) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts, err := o.options(viewScoped)
	if err != nil {
		return nil, err
	}
	visible, err := o.filter(opts.View)
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:       o.runIDs.Generate(),
		ViewScoped:  viewScoped,
		View:        opts.View,
		DetailLevel: opts.DetailLevel,
		Elements:    make([]ElementResult, len(elements)),
	}

	if o.workers <= 1 {
		for i, id := range elements {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			res.Elements[i] = o.element(ctx, i, id, opts, visible)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.workers)
		for i, id := range elements {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				res.Elements[i] = o.element(gctx, i, id, opts, visible)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	// A cancellation during the last element surfaces as an unresolved
	// slot; report it as a cancelled batch instead.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.logger.Info("batch complete",
		"run_id", res.RunID,
		"elements", res.Len(),
		"meshes", res.MeshCount(),
		"failed", res.Counts()[StatusFailed])

	return res, nil
}

// options builds the resolution options for a batch.
func (o *Orchestrator) options(viewScoped bool) (source.Options, error) {
	if !viewScoped {
		return source.Options{
			DetailLevel:       source.DetailFine,
			ComputeReferences: true,
		}, nil
	}

	view := o.view
	if view == nil {
		if vp, ok := o.src.(source.ViewProvider); ok {
			if v, ok := vp.ActiveView(); ok {
				view = v
			}
		}
	}
	if view == nil {
		return source.Options{}, ErrNoView
	}

	v := *view
	return source.Options{
		View:              &v,
		DetailLevel:       v.DetailLevel,
		ComputeReferences: true,
	}, nil
}

// filter returns the visibility predicate for a view, or nil for none.
func (o *Orchestrator) filter(view *source.View) (traverse.Filter, error) {
	if view == nil {
		return nil, nil
	}
	if o.oracle == nil {
		return nil, fmt.Errorf("view-scoped batch: no visibility oracle")
	}
	return func(id geom.ElementID) bool {
		return o.oracle.IsVisibleInView(id, view.ID)
	}, nil
}

// element fills one slot. It never fails; problems become statuses.
func (o *Orchestrator) element(ctx context.Context, pos int, id geom.ElementID, opts source.Options, visible traverse.Filter) ElementResult {
	out := ElementResult{Position: pos, ID: id, Meshes: traverse.None()}

	if !id.Valid() {
		out.Status = StatusNone
		return out
	}

	if visible != nil && !visible(id) {
		out.Status = StatusHidden
		o.logger.Debug("element hidden", "element", id)
		return out
	}

	root, err := o.src.Resolve(ctx, id, opts)
	if err != nil {
		out.Status = StatusUnresolved
		out.Err = err
		o.logger.Warn("element unresolved", "element", id, "error", err)
		return out
	}
	if root == nil {
		out.Status = StatusEmpty
		return out
	}

	meshes, err := o.traverser.Element(id, root, nil)
	if err != nil {
		out.Status = StatusFailed
		out.Err = err
		o.logger.Warn("element failed", "element", id, "error", err)
		return out
	}

	out.Meshes = meshes
	if traverse.IsNone(meshes) {
		out.Status = StatusEmpty
	} else {
		out.Status = StatusOK
	}
	o.logger.Debug("element converted", "element", id, "status", out.Status, "meshes", len(meshes))
	return out
}
