package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/arnavshah/timesheet-grid-go/pkg/api"
	"github.com/arnavshah/timesheet-grid-go/pkg/grid"
	"github.com/arnavshah/timesheet-grid-go/pkg/loader"
	"github.com/arnavshah/timesheet-grid-go/pkg/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Backend is the remote store a session synchronizes with
type Backend interface {
	loader.Source
	UpdateTimesheet(ctx context.Context, updates []models.PendingChange) (*models.UpdateResponse, error)
	Export(ctx context.Context, deptID int, month string) (*api.Export, error)
}

// Session is the editing session of one department month. It owns the
// editor, runs loads, saves and exports against the backend and keeps the
// in-flight and error state. All editor access goes through Edit and View.
type Session struct {
	backend Backend
	loader  *loader.Loader
	log     logrus.FieldLogger
	opts    []grid.Option

	mu         sync.Mutex
	editor     *grid.Editor
	catalog    *loader.Catalog
	generation uint64
	loading    int
	lastErr    error

	saving atomic.Bool
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the session logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithEditorOptions passes options to the editor
func WithEditorOptions(opts ...grid.Option) Option {
	return func(s *Session) {
		s.opts = append(s.opts, opts...)
	}
}

// New creates a session with nothing loaded
func New(backend Backend, opts ...Option) *Session {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	s := &Session{backend: backend, log: discard}
	for _, opt := range opts {
		opt(s)
	}
	s.loader = loader.New(backend, s.log)
	s.editor = grid.NewEditor(nil, append([]grid.Option{grid.WithLogger(s.log)}, s.opts...)...)
	return s
}

// Open loads a department month and starts editing it with an empty
// buffer and history. On failure the previous view stays in place.
func (s *Session) Open(ctx context.Context, deptID int, month string) error {
	return s.load(ctx, deptID, month, false)
}

// Reload loads the current view again from scratch
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	c := s.catalog
	s.mu.Unlock()
	if c == nil {
		return ErrNoView
	}
	return s.load(ctx, c.DeptID, c.Month, false)
}

// Undo restores the most recent buffer snapshot and then reloads the grid
// from the backend. The restored buffer is not replayed onto the reloaded
// grid. It reports false when there was nothing to undo.
func (s *Session) Undo(ctx context.Context) (bool, error) {
	s.mu.Lock()
	c := s.catalog
	undone := s.editor.Undo()
	s.mu.Unlock()
	if !undone {
		return false, nil
	}
	if c == nil {
		return true, nil
	}
	return true, s.load(ctx, c.DeptID, c.Month, true)
}

func (s *Session) load(ctx context.Context, deptID int, month string, resync bool) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.loading++
	s.mu.Unlock()

	log := s.log.WithFields(logrus.Fields{"dept_id": deptID, "month": month, "generation": gen})
	cat, err := s.loader.Load(ctx, deptID, month)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--
	if gen != s.generation {
		log.Warn("session.load: superseded, result dropped")
		return ErrSuperseded
	}
	if err != nil {
		le := &LoadError{DeptID: deptID, Month: month, Err: err}
		s.lastErr = le
		log.WithError(err).Error("session.load")
		return le
	}

	s.catalog = cat
	if resync {
		s.editor.Resync(cat.Model())
	} else {
		s.editor.Load(cat.Model())
	}
	s.lastErr = nil
	log.WithFields(logrus.Fields{
		"employees": len(cat.Employees),
		"pending":   s.editor.Pending(),
		"resync":    resync,
	}).Info("session.load")
	return nil
}

// Save sends the whole buffer as one batch. It is a no-op returning 0 when
// the buffer is empty or another save is in flight. On success the saved
// records leave the buffer and the history is kept; on failure the buffer is
// untouched. There is no automatic retry.
func (s *Session) Save(ctx context.Context) (int, error) {
	if !s.saving.CompareAndSwap(false, true) {
		s.log.Debug("session.Save: already in flight")
		return 0, nil
	}
	defer s.saving.Store(false)

	s.mu.Lock()
	sent := s.editor.Changes()
	s.mu.Unlock()
	if len(sent) == 0 {
		s.log.Debug("session.Save: nothing pending")
		return 0, nil
	}

	log := s.log.WithField("pending", len(sent))
	resp, err := s.backend.UpdateTimesheet(ctx, sent)
	if err != nil {
		se := &SaveError{Pending: len(sent), Err: err}
		s.mu.Lock()
		s.lastErr = se
		s.mu.Unlock()
		log.WithError(err).Error("session.Save")
		return 0, se
	}

	s.mu.Lock()
	s.editor.Acknowledge(sent)
	left := s.editor.Pending()
	s.lastErr = nil
	s.mu.Unlock()

	log.WithFields(logrus.Fields{"updated": resp.UpdatedCount, "left": left}).Info("session.Save")
	return len(sent), nil
}

// Export downloads the spreadsheet of the current view. A missing file name
// falls back to Timesheet_{dept}_{month}.xlsx.
func (s *Session) Export(ctx context.Context) (*api.Export, error) {
	s.mu.Lock()
	c := s.catalog
	s.mu.Unlock()
	if c == nil {
		return nil, ErrNoView
	}

	log := s.log.WithFields(logrus.Fields{"dept_id": c.DeptID, "month": c.Month})
	exp, err := s.backend.Export(ctx, c.DeptID, c.Month)
	if err != nil {
		ee := &ExportError{DeptID: c.DeptID, Month: c.Month, Err: err}
		if ee.Denied() {
			log.WithError(err).Warn("session.Export: denied")
		} else {
			log.WithError(err).Error("session.Export")
		}
		return nil, ee
	}
	if exp.Filename == "" {
		exp.Filename = FallbackFilename(c.DeptID, c.Month)
	}
	log.WithField("filename", exp.Filename).Info("session.Export")
	return exp, nil
}

// SaveExport downloads the spreadsheet and writes it into dir. The file
// name from the server is reduced to its base name.
func (s *Session) SaveExport(ctx context.Context, dir string) (string, error) {
	exp, err := s.Export(ctx)
	if err != nil {
		return "", err
	}
	name := filepath.Base(filepath.Clean("/" + exp.Filename))
	if name == "/" || name == "." {
		name = FallbackFilename(s.view())
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, exp.Data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	return path, nil
}

// FallbackFilename is the export name used when the server sends none
func FallbackFilename(deptID int, month string) string {
	return fmt.Sprintf("Timesheet_%d_%s.xlsx", deptID, month)
}

// Edit runs fn with exclusive access to the editor. A user gesture that
// mutates the grid runs inside one Edit call.
func (s *Session) Edit(fn func(e *grid.Editor) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.editor)
}

// View runs fn with the editor and the loaded catalog, which may be nil
func (s *Session) View(fn func(e *grid.Editor, c *loader.Catalog)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.editor, s.catalog)
}

// Saving reports whether a save is in flight
func (s *Session) Saving() bool {
	return s.saving.Load()
}

// Loading reports whether any load is in flight
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading > 0
}

// CanSave reports whether Save would send anything
func (s *Session) CanSave() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.Pending() > 0 && !s.saving.Load()
}

// Err returns the last load or save failure, cleared by the next success
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) view() (int, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.catalog == nil {
		return 0, ""
	}
	return s.catalog.DeptID, s.catalog.Month
}
