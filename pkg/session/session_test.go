package session

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/arnavshah/timesheet-grid-go/pkg/api"
	"github.com/arnavshah/timesheet-grid-go/pkg/auth"
	"github.com/arnavshah/timesheet-grid-go/pkg/grid"
	"github.com/arnavshah/timesheet-grid-go/pkg/handlers"
	"github.com/arnavshah/timesheet-grid-go/pkg/loader"
	"github.com/arnavshah/timesheet-grid-go/pkg/models"
	"github.com/arnavshah/timesheet-grid-go/pkg/store"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"
)

const (
	codeStandard = 1
	codeNight    = 3
)

type stub struct {
	store  *store.Store
	server *httptest.Server
}

func newStub(t *testing.T) *stub {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hash, err := auth.HashPassword("admin", bcrypt.MinCost)
	require.NoError(t, err)
	s := store.New()
	store.Seed(s, hash)
	h := &handlers.Handler{Store: s, Issuer: auth.NewIssuer("session-test")}
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return &stub{store: s, server: srv}
}

func (st *stub) client(username string) *api.Client {
	return api.New(st.server.URL+"/api", api.WithCredentials(username, "admin"))
}

// countingBackend counts batch updates and can hold them until released
type countingBackend struct {
	Backend
	updates atomic.Int32
	hold    chan struct{}
	entered chan struct{}
}

func (b *countingBackend) UpdateTimesheet(ctx context.Context, updates []models.PendingChange) (*models.UpdateResponse, error) {
	b.updates.Add(1)
	if b.hold != nil {
		b.entered <- struct{}{}
		<-b.hold
	}
	return b.Backend.UpdateTimesheet(ctx, updates)
}

func clickApply(t *testing.T, s *Session, emp, from, to int, code *int) {
	t.Helper()
	require.NoError(t, s.Edit(func(e *grid.Editor) error {
		e.MouseDown(grid.Cell{EmployeeID: emp, Day: from}, grid.ButtonPrimary, false)
		e.MouseEnter(grid.Cell{EmployeeID: emp, Day: to})
		e.MouseUp()
		if !e.OpenPicker() {
			return errors.New("picker did not open")
		}
		_, err := e.Apply(code)
		return err
	}))
}

func pending(s *Session) []models.PendingChange {
	var out []models.PendingChange
	s.View(func(e *grid.Editor, _ *loader.Catalog) { out = e.Changes() })
	return out
}

func totals(s *Session, emp int) grid.Totals {
	var t grid.Totals
	s.View(func(e *grid.Editor, _ *loader.Catalog) { t = e.Totals(emp) })
	return t
}

func TestOpenEditSave(t *testing.T) {
	st := newStub(t)
	s := New(st.client("Superuser"))
	ctx := context.Background()

	require.NoError(t, s.Open(ctx, store.DeptOperations, "2024-03"))
	s.View(func(e *grid.Editor, c *loader.Catalog) {
		require.NotNil(t, c)
		assert.Equal(t, 31, e.Model().DaysInMonth())
		var ids []int
		for _, emp := range c.Employees {
			ids = append(ids, emp.ID)
		}
		assert.Equal(t, []int{3, 6, 4, 5}, ids)
	})

	clickApply(t, s, 4, 10, 10, models.IntPtr(codeStandard))
	clickApply(t, s, 4, 12, 11, models.IntPtr(codeNight))
	assert.Len(t, pending(s), 3)
	assert.Equal(t, grid.Totals{Standard: 24, Night: 8, Total: 32}, totals(s, 4))
	assert.True(t, s.CanSave())

	n, err := s.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Empty(t, pending(s))
	assert.False(t, s.CanSave())

	code, ok := st.store.Entry(4, "2024-03-11")
	require.True(t, ok)
	assert.Equal(t, codeNight, code)

	s.View(func(e *grid.Editor, _ *loader.Catalog) {
		assert.Equal(t, 2, e.UndoLen(), "history survives a save")
	})
}

func TestSaveEmptyBufferSendsNothing(t *testing.T) {
	st := newStub(t)
	b := &countingBackend{Backend: st.client("Superuser")}
	s := New(b)

	n, err := s.Save(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.Open(context.Background(), store.DeptTransport, "2024-03"))
	n, err = s.Save(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, b.updates.Load())
}

func TestSaveFailureKeepsBuffer(t *testing.T) {
	st := newStub(t)
	s := New(st.client("Superuser"))
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, store.DeptTransport, "2024-03"))
	clickApply(t, s, 5, 1, 3, models.IntPtr(codeStandard))
	before := pending(s)

	st.store.FailNext("update", http.StatusInternalServerError)
	n, err := s.Save(ctx)
	assert.Zero(t, n)
	var se *SaveError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 3, se.Pending)
	assert.True(t, api.HasStatus(err, http.StatusInternalServerError))
	assert.Equal(t, se, s.Err())

	assert.Equal(t, before, pending(s))
	assert.Equal(t, 24.0, totals(s, 5).Standard)
	_, ok := st.store.Entry(5, "2024-03-01")
	assert.False(t, ok)

	n, err = s.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, s.Err())
}

func TestSaveInFlightRejectsSecondSave(t *testing.T) {
	st := newStub(t)
	b := &countingBackend{
		Backend: st.client("Superuser"),
		hold:    make(chan struct{}),
		entered: make(chan struct{}),
	}
	s := New(b)
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, store.DeptTransport, "2024-03"))
	clickApply(t, s, 5, 1, 1, models.IntPtr(codeStandard))

	var wg sync.WaitGroup
	wg.Add(1)
	var first int
	var firstErr error
	go func() {
		defer wg.Done()
		first, firstErr = s.Save(ctx)
	}()
	<-b.entered
	assert.True(t, s.Saving())
	assert.False(t, s.CanSave())

	clickApply(t, s, 5, 2, 2, models.IntPtr(codeNight))
	n, err := s.Save(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	close(b.hold)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.Equal(t, 1, first)
	assert.Equal(t, int32(1), b.updates.Load())

	left := pending(s)
	require.Len(t, left, 1, "edit made during the save stays pending")
	assert.Equal(t, "2024-03-02", left[0].Date)
}

func TestLoadFailureKeepsPreviousView(t *testing.T) {
	st := newStub(t)
	s := New(st.client("Superuser"))
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, store.DeptTransport, "2024-03"))
	clickApply(t, s, 5, 4, 4, models.IntPtr(codeStandard))

	st.store.FailNext("work-codes", http.StatusBadGateway)
	err := s.Open(ctx, store.DeptManagement, "2024-04")
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, store.DeptManagement, le.DeptID)
	assert.True(t, api.HasStatus(err, http.StatusBadGateway))

	s.View(func(e *grid.Editor, c *loader.Catalog) {
		assert.Equal(t, store.DeptTransport, c.DeptID)
		assert.Equal(t, "2024-03", e.Model().Month())
		assert.Equal(t, 1, e.Pending())
	})
	assert.False(t, s.Loading())
}

func TestUndoRestoresBufferAndReloads(t *testing.T) {
	st := newStub(t)
	s := New(st.client("Superuser"))
	ctx := context.Background()

	undone, err := s.Undo(ctx)
	require.NoError(t, err)
	assert.False(t, undone)

	require.NoError(t, s.Open(ctx, store.DeptTransport, "2024-03"))
	clickApply(t, s, 4, 1, 1, models.IntPtr(codeStandard))
	afterFirst := pending(s)
	clickApply(t, s, 4, 2, 2, models.IntPtr(codeNight))

	undone, err = s.Undo(ctx)
	require.NoError(t, err)
	assert.True(t, undone)
	assert.Equal(t, afterFirst, pending(s))

	s.View(func(e *grid.Editor, _ *loader.Catalog) {
		assert.Equal(t, 1, e.UndoLen())
		_, ok := e.Model().Value(4, 1)
		assert.False(t, ok, "reloaded grid shows server state, not the restored buffer")
	})
}

func TestReloadResetsBuffer(t *testing.T) {
	st := newStub(t)
	s := New(st.client("Superuser"))
	ctx := context.Background()
	assert.ErrorIs(t, s.Reload(ctx), ErrNoView)

	require.NoError(t, s.Open(ctx, store.DeptTransport, "2024-03"))
	clickApply(t, s, 4, 1, 1, models.IntPtr(codeStandard))
	require.NoError(t, s.Reload(ctx))
	assert.Empty(t, pending(s))
}

func TestExport(t *testing.T) {
	st := newStub(t)
	s := New(st.client("Superuser"))
	ctx := context.Background()

	_, err := s.Export(ctx)
	assert.ErrorIs(t, err, ErrNoView)

	require.NoError(t, s.Open(ctx, store.DeptTransport, "2024-03"))
	dir := t.TempDir()
	path, err := s.SaveExport(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "T-13_Operations_-_Transport_Service_2024-03.xlsx"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Timesheet 2024-03"}, f.GetSheetList())
}

func TestExportDenied(t *testing.T) {
	st := newStub(t)
	s := New(st.client("viewer"))
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, store.DeptTransport, "2024-03"))

	dir := t.TempDir()
	_, err := s.SaveExport(ctx, dir)
	var ee *ExportError
	require.ErrorAs(t, err, &ee)
	assert.True(t, ee.Denied())
	assert.Contains(t, ee.UserMessage(), "permission")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type namelessExport struct {
	Backend
}

func (b namelessExport) Export(ctx context.Context, deptID int, month string) (*api.Export, error) {
	return &api.Export{Data: []byte("xlsx")}, nil
}

func TestExportFallbackFilename(t *testing.T) {
	st := newStub(t)
	s := New(namelessExport{st.client("Superuser")})
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, store.DeptTransport, "2024-03"))

	exp, err := s.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Timesheet_5_2024-03.xlsx", exp.Filename)
}

// gatedBackend blocks the first timesheet fetch until released
type gatedBackend struct {
	Backend
	calls   atomic.Int32
	gate    chan struct{}
	entered chan struct{}
}

func (b *gatedBackend) Timesheet(ctx context.Context, deptID int, month string) (*models.TimesheetResponse, error) {
	if b.calls.Add(1) == 1 {
		b.entered <- struct{}{}
		<-b.gate
	}
	return b.Backend.Timesheet(ctx, deptID, month)
}

func TestSupersededLoadIsDropped(t *testing.T) {
	st := newStub(t)
	b := &gatedBackend{Backend: st.client("Superuser"), gate: make(chan struct{}), entered: make(chan struct{})}
	s := New(b)
	ctx := context.Background()

	errc := make(chan error, 1)
	go func() { errc <- s.Open(ctx, store.DeptManagement, "2024-03") }()
	<-b.entered

	require.NoError(t, s.Open(ctx, store.DeptTransport, "2024-04"))
	close(b.gate)
	assert.ErrorIs(t, <-errc, ErrSuperseded)

	s.View(func(e *grid.Editor, c *loader.Catalog) {
		assert.Equal(t, store.DeptTransport, c.DeptID)
		assert.Equal(t, 30, e.Model().DaysInMonth())
	})
}
