package grid

import "github.com/arnavshah/timesheet-grid-go/pkg/models"

type changeKey struct {
	employeeID int
	date       string
}

// Buffer is the ordered list of unsaved changes, at most one per (employee, date)
type Buffer struct {
	changes []models.PendingChange
	index   map[changeKey]int
}

// Len returns the number of pending changes
func (b *Buffer) Len() int {
	return len(b.changes)
}

// Changes returns a deep copy of the pending changes in insertion order
func (b *Buffer) Changes() []models.PendingChange {
	return cloneChanges(b.changes)
}

// Get returns the pending change for an employee and full date
func (b *Buffer) Get(employeeID int, date string) (models.PendingChange, bool) {
	i, ok := b.index[changeKey{employeeID, date}]
	if !ok {
		return models.PendingChange{}, false
	}
	return cloneChange(b.changes[i]), true
}

// upsert overwrites the value of an existing key in place or appends a new record
func (b *Buffer) upsert(employeeID int, date string, codeID *int) {
	if b.index == nil {
		b.index = make(map[changeKey]int)
	}
	k := changeKey{employeeID, date}
	if i, ok := b.index[k]; ok {
		b.changes[i].WorkCodeID = copyID(codeID)
		return
	}
	b.index[k] = len(b.changes)
	b.changes = append(b.changes, models.PendingChange{
		EmployeeID: employeeID,
		Date:       date,
		WorkCodeID: copyID(codeID),
	})
}

// replace swaps the whole buffer for a snapshot
func (b *Buffer) replace(snapshot []models.PendingChange) {
	b.changes = nil
	b.index = make(map[changeKey]int, len(snapshot))
	for _, c := range snapshot {
		b.upsert(c.EmployeeID, c.Date, c.WorkCodeID)
	}
}

// acknowledge drops the records of sent that still hold the sent value.
// Records rewritten after sent was taken survive.
func (b *Buffer) acknowledge(sent []models.PendingChange) int {
	if len(sent) == 0 || len(b.changes) == 0 {
		return 0
	}
	done := make(map[changeKey]*int, len(sent))
	for _, c := range sent {
		done[changeKey{c.EmployeeID, c.Date}] = c.WorkCodeID
	}
	kept := b.changes[:0:0]
	removed := 0
	for _, c := range b.changes {
		v, ok := done[changeKey{c.EmployeeID, c.Date}]
		if ok && sameID(v, c.WorkCodeID) {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	b.replace(kept)
	return removed
}

func (b *Buffer) reset() {
	b.changes = nil
	b.index = nil
}

func cloneChanges(in []models.PendingChange) []models.PendingChange {
	out := make([]models.PendingChange, len(in))
	for i, c := range in {
		out[i] = cloneChange(c)
	}
	return out
}

func cloneChange(c models.PendingChange) models.PendingChange {
	c.WorkCodeID = copyID(c.WorkCodeID)
	return c
}

func copyID(id *int) *int {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func sameID(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
