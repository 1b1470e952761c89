package grid

import (
	"testing"

	"github.com/arnavshah/timesheet-grid-go/pkg/models"
)

const (
	codeDay   = 1
	codeNight = 2
	codeLeave = 3
)

func testCodes() []models.WorkCode {
	return []models.WorkCode{
		{ID: codeDay, Code: "8", Label: "Day shift", HoursStandard: 8, ColorHex: "#FFFFFF"},
		{ID: codeNight, Code: "Н", Label: "Night shift", HoursNight: 8, ColorHex: "#E9D5FF"},
		{ID: codeLeave, Code: "О", Label: "Vacation", ColorHex: "#BBF7D0"},
	}
}

func newTestEditor(t *testing.T, matrix map[int]map[int]*int) *Editor {
	t.Helper()
	return NewEditor(NewModel("2024-03", 31, testCodes(), matrix))
}

func click(e *Editor, emp, day int) {
	e.MouseDown(Cell{EmployeeID: emp, Day: day}, ButtonPrimary, false)
	e.MouseUp()
}

func drag(e *Editor, emp, from, to int) {
	e.MouseDown(Cell{EmployeeID: emp, Day: from}, ButtonPrimary, false)
	step := 1
	if to < from {
		step = -1
	}
	for d := from; d != to+step; d += step {
		e.MouseEnter(Cell{EmployeeID: emp, Day: d})
	}
	e.MouseUp()
}

func apply(t *testing.T, e *Editor, codeID *int) {
	t.Helper()
	if _, err := e.Apply(codeID); err != nil {
		t.Fatalf("Apply: %v", err)
	}
}

func TestModelTotals(t *testing.T) {
	m := NewModel("2024-03", 31, testCodes(), map[int]map[int]*int{
		7: {1: models.IntPtr(codeDay), 2: models.IntPtr(codeNight), 3: nil, 4: models.IntPtr(99)},
	})

	got := m.Totals(7)
	if got.Standard != 8 || got.Night != 8 || got.Total != 16 {
		t.Errorf("Expected 8/8/16, got %+v", got)
	}
	if _, ok := m.Value(7, 3); ok {
		t.Errorf("Expected null entry to be dropped")
	}
	if got := m.Totals(8); got != (Totals{}) {
		t.Errorf("Expected zero totals for empty row, got %+v", got)
	}
}

func TestApplyDragScenario(t *testing.T) {
	e := newTestEditor(t, nil)

	click(e, 5, 10)
	apply(t, e, models.IntPtr(codeDay))
	drag(e, 5, 11, 12)
	apply(t, e, models.IntPtr(codeNight))

	changes := e.Changes()
	if len(changes) != 3 {
		t.Fatalf("Expected 3 pending changes, got %d", len(changes))
	}
	want := []struct {
		date string
		code int
	}{
		{"2024-03-10", codeDay},
		{"2024-03-11", codeNight},
		{"2024-03-12", codeNight},
	}
	for i, w := range want {
		c := changes[i]
		if c.EmployeeID != 5 || c.Date != w.date || c.WorkCodeID == nil || *c.WorkCodeID != w.code {
			t.Errorf("change %d: expected %s=%d, got %+v", i, w.date, w.code, c)
		}
	}

	totals := e.Totals(5)
	if totals.Standard != 8 || totals.Night != 16 || totals.Total != 24 {
		t.Errorf("Expected totals 8/16/24, got %+v", totals)
	}
	if e.State() != Idle || len(e.Selected()) != 0 {
		t.Errorf("Expected selection cleared after apply, state %s", e.State())
	}
}

func TestApplyDeduplicatesByKey(t *testing.T) {
	e := newTestEditor(t, nil)

	steps := []struct {
		emp, from, to int
		code        *int
	}{
		{1, 1, 5, models.IntPtr(codeDay)},
		{1, 3, 8, models.IntPtr(codeNight)},
		{2, 3, 3, models.IntPtr(codeLeave)},
		{1, 4, 4, nil},
		{1, 8, 2, models.IntPtr(codeLeave)},
	}
	last := map[Cell]*int{}
	for _, s := range steps {
		drag(e, s.emp, s.from, s.to)
		apply(t, e, s.code)
		lo, hi := s.from, s.to
		if lo > hi {
			lo, hi = hi, lo
		}
		for d := lo; d <= hi; d++ {
			last[Cell{s.emp, d}] = s.code
			if s.code == nil {
				if _, ok := e.Model().Value(s.emp, d); ok {
					t.Errorf("Expected cleared cell %d/%d to hold no value", s.emp, d)
				}
			}
		}
	}

	seen := map[changeKey]bool{}
	for _, c := range e.Changes() {
		key := changeKey{c.EmployeeID, c.Date}
		if seen[key] {
			t.Fatalf("duplicate pending change for %d %s", c.EmployeeID, c.Date)
		}
		seen[key] = true
	}
	if e.Pending() != len(last) {
		t.Fatalf("Expected %d pending changes, got %d", len(last), e.Pending())
	}
	for cell, want := range last {
		got, ok := e.Change(cell)
		if !ok {
			t.Fatalf("missing change for %s", cell)
		}
		if !sameID(got.WorkCodeID, want) {
			t.Errorf("cell %s: expected %v, got %v", cell, want, got.WorkCodeID)
		}
	}

	if got, ok := e.Model().Value(1, 4); !ok || got != codeLeave {
		t.Errorf("Expected re-applied cell to hold %d, got %d (%v)", codeLeave, got, ok)
	}
}

func TestApplyRejectsUnknownCodeAndEmptyTarget(t *testing.T) {
	e := newTestEditor(t, nil)

	if _, err := e.Apply(models.IntPtr(codeDay)); err != ErrNoTarget {
		t.Errorf("Expected ErrNoTarget, got %v", err)
	}

	click(e, 1, 1)
	if _, err := e.Apply(models.IntPtr(42)); err == nil {
		t.Errorf("Expected unknown code error")
	}
	if e.UndoLen() != 0 || e.Pending() != 0 {
		t.Errorf("Expected rejected apply to leave buffer and history untouched")
	}
	if e.State() == Idle {
		t.Errorf("Expected selection to survive rejected apply")
	}
}

func TestUndoRestoresSnapshot(t *testing.T) {
	e := newTestEditor(t, nil)

	if e.Undo() {
		t.Fatalf("Expected undo on empty history to be a no-op")
	}

	click(e, 1, 1)
	apply(t, e, models.IntPtr(codeDay))
	before := e.Changes()
	click(e, 1, 1)
	apply(t, e, models.IntPtr(codeNight))
	click(e, 1, 2)
	apply(t, e, models.IntPtr(codeNight))

	depth := e.UndoLen()
	if !e.Undo() {
		t.Fatalf("Expected undo to succeed")
	}
	if e.UndoLen() != depth-1 {
		t.Errorf("Expected history to shrink by one, got %d", e.UndoLen())
	}
	if !e.Undo() {
		t.Fatalf("Expected second undo to succeed")
	}

	got := e.Changes()
	if len(got) != len(before) || *got[0].WorkCodeID != codeDay {
		t.Errorf("Expected buffer restored to %+v, got %+v", before, got)
	}
}

func TestUndoDepthEvictsOldest(t *testing.T) {
	e := newTestEditor(t, nil)

	var afterFirst []models.PendingChange
	for day := 1; day <= 21; day++ {
		click(e, 1, day)
		apply(t, e, models.IntPtr(codeDay))
		if day == 1 {
			afterFirst = e.Changes()
		}
	}
	if e.UndoLen() != DefaultUndoDepth {
		t.Fatalf("Expected %d snapshots, got %d", DefaultUndoDepth, e.UndoLen())
	}

	undone := 0
	for i := 0; i < 21; i++ {
		if e.Undo() {
			undone++
		}
	}
	if undone != DefaultUndoDepth {
		t.Errorf("Expected %d successful undos, got %d", DefaultUndoDepth, undone)
	}

	// edit 1's own snapshot (the empty buffer) was evicted by edit 21, so the
	// oldest one left is the one pushed before edit 2: only edit 1's record.
	got := e.Changes()
	if len(got) != len(afterFirst) || got[0].Date != "2024-03-01" {
		t.Errorf("Expected oldest retained snapshot %+v, got %+v", afterFirst, got)
	}
}

func TestUndoSnapshotIsDeepCopy(t *testing.T) {
	e := newTestEditor(t, nil)

	click(e, 1, 1)
	apply(t, e, models.IntPtr(codeDay))
	click(e, 1, 1)
	apply(t, e, models.IntPtr(codeNight))
	e.Undo()

	c, ok := e.Change(Cell{1, 1})
	if !ok || *c.WorkCodeID != codeDay {
		t.Errorf("Expected overwritten value to be restored, got %+v", c)
	}
}

func TestAcknowledgeKeepsRewrittenRecords(t *testing.T) {
	e := newTestEditor(t, nil)

	drag(e, 1, 1, 3)
	apply(t, e, models.IntPtr(codeDay))
	sent := e.Changes()

	click(e, 1, 2)
	apply(t, e, models.IntPtr(codeNight))

	if removed := e.Acknowledge(sent); removed != 2 {
		t.Errorf("Expected 2 records acknowledged, got %d", removed)
	}
	left := e.Changes()
	if len(left) != 1 || left[0].Date != "2024-03-02" || *left[0].WorkCodeID != codeNight {
		t.Errorf("Expected only the rewritten record to stay, got %+v", left)
	}
	if e.UndoLen() != 2 {
		t.Errorf("Expected history untouched, got %d", e.UndoLen())
	}
}

func TestLoadAndResync(t *testing.T) {
	e := newTestEditor(t, nil)
	click(e, 1, 1)
	apply(t, e, models.IntPtr(codeDay))
	click(e, 1, 2)

	server := NewModel("2024-03", 31, testCodes(), map[int]map[int]*int{1: {5: models.IntPtr(codeLeave)}})
	e.Resync(server)
	if e.Pending() != 1 || e.UndoLen() != 1 {
		t.Errorf("Expected resync to keep buffer and history")
	}
	if e.State() != Idle {
		t.Errorf("Expected resync to clear selection")
	}
	if _, ok := e.Model().Value(1, 1); ok {
		t.Errorf("Expected resync not to replay pending edits")
	}

	e.Load(NewModel("2024-04", 30, testCodes(), nil))
	if e.Pending() != 0 || e.UndoLen() != 0 {
		t.Errorf("Expected load to reset buffer and history")
	}
	if e.Model().DaysInMonth() != 30 {
		t.Errorf("Expected new model installed")
	}
}
