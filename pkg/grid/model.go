package grid

import (
	"github.com/arnavshah/timesheet-grid-go/pkg/models"
)

// Totals are the hour sums of one employee row
type Totals struct {
	Standard float64 `json:"standard"`
	Night    float64 `json:"night"`
	Total    float64 `json:"total"`
}

// Model is the sparse employee -> day -> work code matrix of one month.
// Values are keyed by day of month, never by full date.
type Model struct {
	month  string
	days   int
	codes  map[int]models.WorkCode
	order  []models.WorkCode
	values map[int]map[int]int
}

// NewModel builds a model from the server matrix. Null entries are dropped.
func NewModel(month string, daysInMonth int, codes []models.WorkCode, matrix map[int]map[int]*int) *Model {
	m := &Model{
		month:  month,
		days:   daysInMonth,
		codes:  make(map[int]models.WorkCode, len(codes)),
		order:  make([]models.WorkCode, len(codes)),
		values: make(map[int]map[int]int, len(matrix)),
	}
	copy(m.order, codes)
	for _, wc := range codes {
		m.codes[wc.ID] = wc
	}
	for empID, row := range matrix {
		for day, codeID := range row {
			m.set(empID, day, codeID)
		}
	}
	return m
}

// Month returns the YYYY-MM month in view
func (m *Model) Month() string {
	return m.month
}

// DaysInMonth returns the number of day columns
func (m *Model) DaysInMonth() int {
	return m.days
}

// Contains reports whether the cell falls inside the month
func (m *Model) Contains(c Cell) bool {
	return c.Day >= 1 && c.Day <= m.days
}

// WorkCodes returns the catalog in server order
func (m *Model) WorkCodes() []models.WorkCode {
	out := make([]models.WorkCode, len(m.order))
	copy(out, m.order)
	return out
}

// WorkCode looks up a catalog entry by id
func (m *Model) WorkCode(id int) (models.WorkCode, bool) {
	wc, ok := m.codes[id]
	return wc, ok
}

// Value returns the work code id assigned to a cell
func (m *Model) Value(employeeID, day int) (int, bool) {
	id, ok := m.values[employeeID][day]
	return id, ok
}

// Code resolves the cell value against the catalog
func (m *Model) Code(employeeID, day int) (models.WorkCode, bool) {
	id, ok := m.Value(employeeID, day)
	if !ok {
		return models.WorkCode{}, false
	}
	return m.WorkCode(id)
}

// Row returns a copy of one employee's day -> code id entries
func (m *Model) Row(employeeID int) map[int]int {
	row := m.values[employeeID]
	out := make(map[int]int, len(row))
	for day, id := range row {
		out[day] = id
	}
	return out
}

// Totals sums standard and night hours over the non-empty cells of a row.
// Ids missing from the catalog contribute nothing.
func (m *Model) Totals(employeeID int) Totals {
	var t Totals
	for _, id := range m.values[employeeID] {
		wc, ok := m.codes[id]
		if !ok {
			continue
		}
		t.Standard += wc.HoursStandard
		t.Night += wc.HoursNight
	}
	t.Total = t.Standard + t.Night
	return t
}

func (m *Model) set(employeeID, day int, codeID *int) {
	if codeID == nil {
		if row, ok := m.values[employeeID]; ok {
			delete(row, day)
		}
		return
	}
	row, ok := m.values[employeeID]
	if !ok {
		row = make(map[int]int)
		m.values[employeeID] = row
	}
	row[day] = *codeID
}
