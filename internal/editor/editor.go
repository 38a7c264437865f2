// internal/editor/editor.go

// Package editor ties the engines together around one live document. An
// Editor owns the current tree, the selection, and the pagination
// scheduler; every mutation flows through Dispatch so chain cleanup and
// reflow scheduling can never be skipped.
package editor

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/rowanlabs/gridpager/internal/chain"
	"github.com/rowanlabs/gridpager/internal/doc"
	"github.com/rowanlabs/gridpager/internal/geometry"
	"github.com/rowanlabs/gridpager/internal/grid"
	"github.com/rowanlabs/gridpager/internal/merge"
	"github.com/rowanlabs/gridpager/internal/paginate"
	"github.com/rowanlabs/gridpager/internal/scheduler"
)

// CellSelection is a rectangular cell-range selection anchored between two
// cells of one table.
type CellSelection struct {
	TablePath doc.Path
	Anchor    doc.Path
	Head      doc.Path
}

// Selection is the caret or cell-range state the commands operate on.
type Selection struct {
	Caret doc.Position
	Cells *CellSelection
}

// Config carries the editor's layout limits and scheduling knobs.
type Config struct {
	MaxRowHeight float64
	SafetyBuffer float64
	Scheduler    scheduler.Config
	// ReflowCap bounds the ReflowAll fixpoint iteration.
	ReflowCap int
}

// Editor is the single-document session facade. All methods are safe for
// concurrent use; the scheduler's tick runs through the same lock as the
// command surface.
type Editor struct {
	mu       sync.Mutex
	root     *doc.Node
	sel      Selection
	merges   *merge.Engine
	pager    *paginate.Engine
	reconcil *chain.Reconciler
	sched    *scheduler.Scheduler
	geo      geometry.Provider
	cfg      Config
	logger   *zap.Logger
}

// New builds an editor over root. The caller keeps ownership of starting
// the scheduler via Start.
func New(root *doc.Node, geo geometry.Provider, cfg Config, logger *zap.Logger) *Editor {
	if cfg.ReflowCap <= 0 {
		cfg.ReflowCap = 64
	}
	log := logger.With(zap.String("component", "editor"))
	ed := &Editor{
		root:     root,
		merges:   merge.New(logger),
		reconcil: chain.NewReconciler(logger),
		geo:      geo,
		cfg:      cfg,
		logger:   log,
	}
	ed.pager = paginate.New(geo, paginate.Config{
		MaxRowHeight: cfg.MaxRowHeight,
		SafetyBuffer: cfg.SafetyBuffer,
	}, logger)
	ed.sched = scheduler.New(cfg.Scheduler, ed.RunTick, logger)
	return ed
}

// Start launches background reflow scheduling.
func (e *Editor) Start(ctx context.Context) { e.sched.Start(ctx) }

// Stop halts background reflow scheduling and waits for the loop to exit.
func (e *Editor) Stop() { e.sched.Stop() }

// Scheduler exposes the composition guard and trigger surface.
func (e *Editor) Scheduler() *scheduler.Scheduler { return e.sched }

// Root returns the current document tree. Callers must treat it as
// read-only; mutations go through transactions and Dispatch.
func (e *Editor) Root() *doc.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.root
}

// SetSelection replaces the selection state.
func (e *Editor) SetSelection(sel Selection) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sel = sel
}

// Selection returns the current selection state.
func (e *Editor) Selection() Selection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sel
}

// Dispatch commits tx as the new document state, runs chain cleanup
// synchronously in the same commit, remaps the selection through the
// transaction, and schedules a reflow tick.
func (e *Editor) Dispatch(tx *doc.Transaction) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commitLocked(tx)
	e.triggerLocked(scheduler.Request{})
}

// commitLocked applies tx and the follow-up chain reconciliation. The
// reconciler loops because sweeping an emptied table can orphan further
// chain links.
func (e *Editor) commitLocked(tx *doc.Transaction) {
	if tx == nil || !tx.Changed() {
		return
	}
	before := e.root
	e.remapSelectionLocked(tx)
	e.root = tx.Root()

	for i := 0; i < 8; i++ {
		fix, changed := e.reconcil.Reconcile(before, e.root)
		if !changed {
			break
		}
		before = e.root
		e.remapSelectionLocked(fix)
		e.root = fix.Root()
	}
}

func (e *Editor) remapSelectionLocked(tx *doc.Transaction) {
	if pos, ok := tx.MapPosition(e.sel.Caret); ok {
		e.sel.Caret = pos
	} else {
		e.sel.Caret = doc.Position{}
	}
	if e.sel.Cells != nil {
		tp, okT := tx.Map(e.sel.Cells.TablePath)
		an, okA := tx.Map(e.sel.Cells.Anchor)
		hd, okH := tx.Map(e.sel.Cells.Head)
		if okT && okA && okH {
			e.sel.Cells = &CellSelection{TablePath: tp, Anchor: an, Head: hd}
		} else {
			e.sel.Cells = nil
		}
	}
}

func (e *Editor) triggerLocked(req scheduler.Request) {
	if e.sched != nil {
		e.sched.Trigger(req)
	}
}

// activeCellPath resolves the caret's enclosing cell, if any.
func (e *Editor) activeCellPathLocked() (doc.Path, bool) {
	if len(e.sel.Caret.Path) == 0 {
		return nil, false
	}
	p, _, ok := doc.AncestorOfRole(e.root, e.sel.Caret.Path, doc.IsCellRole)
	return p, ok
}

var errNoWork = errors.New("editor: no reflow work")

// RunTick executes one pagination step on the scheduler goroutine. The
// ladder tries the narrowest scope first and performs at most one mutation:
// the edited cell, then the edited cell's table, then (rate limited) every
// table in the document, then merge-back on the edited cell's row before the
// rate-limited whole-document sweep. Any mutation reschedules so the
// remaining work drains over subsequent ticks.
func (e *Editor) RunTick(ctx context.Context, req scheduler.Request) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ctx.Err() != nil {
		return
	}

	if tx, caret, err := e.tickOnce(req, e.sched.AllowFullScan()); err == nil {
		e.commitLocked(tx)
		// caret is in post-transaction coordinates already; apply it after
		// the commit's selection remap, not through it.
		if caret != nil {
			e.sel.Caret = *caret
		}
		e.triggerLocked(scheduler.Request{CellPath: req.CellPath, TablePath: req.TablePath})
		return
	} else if !errors.Is(err, errNoWork) {
		e.logger.Debug("tick step failed", zap.Error(err))
	}
}

func (e *Editor) tickOnce(req scheduler.Request, fullScan bool) (*doc.Transaction, *doc.Position, error) {
	// Rung 1: the cell named by the trigger, or the caret's cell.
	cellPath := req.CellPath
	if len(cellPath) == 0 {
		if p, ok := e.activeCellPathLocked(); ok {
			cellPath = p
		}
	}
	if len(cellPath) > 0 {
		res, err := e.pager.PaginateCell(e.root, cellPath, req.Active)
		if err == nil {
			return res.Tx, res.CaretTo, nil
		}
		if !benignPaginateErr(err) {
			return nil, nil, err
		}
	}

	// Rung 2: every top-level cell of the cell's table.
	if len(req.TablePath) > 0 {
		if tx, err := e.paginateTable(req.TablePath); !errors.Is(err, errNoWork) {
			return tx, nil, err
		}
	}

	// Rung 3: whole document, throttled.
	if fullScan {
		for _, tp := range grid.TablePaths(e.root) {
			if tx, err := e.paginateTable(tp); !errors.Is(err, errNoWork) {
				return tx, nil, err
			}
		}
	}

	// Rung 4: reclaim space, the edited cell first. The whole-document sweep
	// rides the same rate limit as the full scan.
	if len(cellPath) > 0 {
		tx, err := e.pager.MergeBack(e.root, cellPath)
		if err == nil && tx != nil && tx.Changed() {
			return tx, nil, nil
		}
		if err != nil && !benignPaginateErr(err) {
			return nil, nil, err
		}
	}
	if fullScan {
		for _, rp := range paginate.RowsWithChains(e.root) {
			row, ok := doc.Resolve(e.root, rp)
			if !ok {
				continue
			}
			for i, c := range row.Children {
				if !doc.IsCellRole(doc.Classify(c)) || c.Attrs.MergedTo != "" {
					continue
				}
				tx, err := e.pager.MergeBack(e.root, rp.Child(i))
				if err == nil && tx != nil && tx.Changed() {
					return tx, nil, nil
				}
				if err != nil && !benignPaginateErr(err) {
					return nil, nil, err
				}
			}
		}
	}
	return nil, nil, errNoWork
}

// paginateTable finds the first overflowing origin cell in the table and
// paginates it.
func (e *Editor) paginateTable(tablePath doc.Path) (*doc.Transaction, error) {
	m, err := grid.Build(e.root, tablePath)
	if err != nil {
		return nil, errNoWork
	}
	for _, ref := range m.Refs() {
		if ref.Covered {
			continue
		}
		over, err := e.geo.Overflows(ref.Node, e.cfg.MaxRowHeight)
		if err != nil {
			return nil, err
		}
		if !over {
			continue
		}
		res, err := e.pager.PaginateCell(e.root, ref.Path, false)
		if err == nil {
			return res.Tx, nil
		}
		if !benignPaginateErr(err) {
			return nil, err
		}
	}
	return nil, errNoWork
}

// benignPaginateErr filters the outcomes that mean "nothing to do here",
// as opposed to real failures worth logging.
func benignPaginateErr(err error) bool {
	return errors.Is(err, paginate.ErrNotOverflowing) ||
		errors.Is(err, paginate.ErrLocked) ||
		errors.Is(err, paginate.ErrStale) ||
		errors.Is(err, paginate.ErrNoSplit) ||
		errors.Is(err, paginate.ErrNoChain)
}
