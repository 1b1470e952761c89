package grid

import (
	"io"

	"github.com/arnavshah/timesheet-grid-go/pkg/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNoTarget is returned by Apply when there is neither an active cell nor a selection
	ErrNoTarget = errors.New("no cell selected")
	// ErrUnknownCode is returned by Apply for an id missing from the catalog
	ErrUnknownCode = errors.New("unknown work code")
)

// Editor owns the grid model, the selection, the edit buffer and the undo
// history of one view. The model and the buffer only change through Apply,
// Undo and the load hooks, so they never disagree within one call.
//
// An Editor is not safe for concurrent use; callers serialize access.
type Editor struct {
	model *Model
	sel   Selection
	buf   Buffer
	hist  History
	log   logrus.FieldLogger
}

// Option configures an Editor
type Option func(*Editor)

// WithLogger sets the logger used for transition tracing
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Editor) {
		if l != nil {
			e.log = l
		}
	}
}

// WithUndoDepth overrides DefaultUndoDepth
func WithUndoDepth(depth int) Option {
	return func(e *Editor) {
		e.hist.depth = depth
	}
}

// NewEditor creates an editor over model. A nil model is an empty month.
func NewEditor(model *Model, opts ...Option) *Editor {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	e := &Editor{log: discard}
	for _, opt := range opts {
		opt(e)
	}
	e.Load(model)
	return e
}

// Model returns the current grid model
func (e *Editor) Model() *Model {
	return e.model
}

// State returns the selection phase
func (e *Editor) State() State {
	return e.sel.State()
}

// Active returns the active cell, if any
func (e *Editor) Active() (Cell, bool) {
	return e.sel.Active()
}

// Selected returns the selected cells
func (e *Editor) Selected() []Cell {
	return e.sel.Cells()
}

// IsSelected reports whether c is part of the selection
func (e *Editor) IsSelected(c Cell) bool {
	return e.sel.Contains(c)
}

// MouseDown forwards a press on a cell. Cells outside the month are ignored.
func (e *Editor) MouseDown(c Cell, b Button, multi bool) {
	if !e.model.Contains(c) {
		return
	}
	e.sel.MouseDown(c, b, multi)
	e.trace("mousedown", c)
}

// MouseEnter forwards a pointer entering a cell
func (e *Editor) MouseEnter(c Cell) {
	if !e.model.Contains(c) {
		return
	}
	e.sel.MouseEnter(c)
	e.trace("mouseenter", c)
}

// MouseUp forwards a document-level release
func (e *Editor) MouseUp() {
	e.sel.MouseUp()
}

// OutsideMouseDown forwards a press outside the grid cells
func (e *Editor) OutsideMouseDown() {
	e.sel.OutsideMouseDown()
}

// OpenPicker opens the code picker on the active cell
func (e *Editor) OpenPicker() bool {
	return e.sel.OpenPicker()
}

// ClosePicker dismisses the code picker
func (e *Editor) ClosePicker() {
	e.sel.ClosePicker()
}

// Apply assigns codeID, or clears when nil, to every target cell in one step.
// A snapshot of the buffer is pushed to the history first. It returns the
// number of cells written.
func (e *Editor) Apply(codeID *int) (int, error) {
	if codeID != nil {
		if _, ok := e.model.WorkCode(*codeID); !ok {
			return 0, errors.Wrapf(ErrUnknownCode, "id %d", *codeID)
		}
	}
	targets := e.sel.Targets()
	if len(targets) == 0 {
		return 0, ErrNoTarget
	}

	e.hist.push(e.buf.Changes())
	month := e.model.Month()
	for _, c := range targets {
		e.model.set(c.EmployeeID, c.Day, codeID)
		e.buf.upsert(c.EmployeeID, DateKey(month, c.Day), codeID)
	}
	e.sel.Clear()

	e.log.WithFields(logrus.Fields{
		"cells":   len(targets),
		"pending": e.buf.Len(),
		"undo":    e.hist.Len(),
	}).Debug("grid.Apply")
	return len(targets), nil
}

// Undo restores the buffer to the most recent snapshot. It reports false
// when there is nothing to undo. The model is left as is; callers reload it.
func (e *Editor) Undo() bool {
	snap, ok := e.hist.pop()
	if !ok {
		return false
	}
	e.buf.replace(snap)
	e.log.WithFields(logrus.Fields{
		"pending": e.buf.Len(),
		"undo":    e.hist.Len(),
	}).Debug("grid.Undo")
	return true
}

// CanUndo reports whether a snapshot is available
func (e *Editor) CanUndo() bool {
	return e.hist.Len() > 0
}

// UndoLen returns the number of snapshots held
func (e *Editor) UndoLen() int {
	return e.hist.Len()
}

// Pending returns the number of unsaved changes
func (e *Editor) Pending() int {
	return e.buf.Len()
}

// Changes returns a copy of the unsaved changes
func (e *Editor) Changes() []models.PendingChange {
	return e.buf.Changes()
}

// Change returns the pending change for a cell, if any
func (e *Editor) Change(c Cell) (models.PendingChange, bool) {
	return e.buf.Get(c.EmployeeID, DateKey(e.model.Month(), c.Day))
}

// Totals returns the hour sums of a row, unsaved edits included
func (e *Editor) Totals(employeeID int) Totals {
	return e.model.Totals(employeeID)
}

// Acknowledge removes the saved records from the buffer. Records changed
// since sent was captured stay pending. The history is kept.
func (e *Editor) Acknowledge(sent []models.PendingChange) int {
	return e.buf.acknowledge(sent)
}

// Load installs a freshly loaded model and starts over with an empty
// selection, buffer and history.
func (e *Editor) Load(model *Model) {
	if model == nil {
		model = NewModel("", 0, nil, nil)
	}
	e.model = model
	e.sel.Clear()
	e.buf.reset()
	e.hist.reset()
}

// Resync replaces the model with server state and clears the selection.
// The buffer and the history survive and are not replayed onto the model.
func (e *Editor) Resync(model *Model) {
	if model == nil {
		return
	}
	e.model = model
	e.sel.Clear()
}

func (e *Editor) trace(event string, c Cell) {
	e.log.WithFields(logrus.Fields{
		"event":    event,
		"cell":     c.String(),
		"state":    e.sel.State().String(),
		"selected": e.sel.Len(),
	}).Debug("grid.Selection")
}
