package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/arnavshah/timesheet-grid-go/pkg/models"
	"github.com/pkg/errors"
)

// ErrInvalidMonth is returned for a month not in YYYY-MM form
var ErrInvalidMonth = errors.New("invalid month format, expected YYYY-MM")

// ErrNotFound is returned for an unknown department
var ErrNotFound = errors.New("not found")

// User is a backend account
type User struct {
	Username     string
	PasswordHash string
	CanExport    bool
}

// Store holds the stub backend state in memory
type Store struct {
	mu          sync.RWMutex
	departments map[int]models.Department
	employees   map[int]models.Employee
	workCodes   map[int]models.WorkCode
	entries     map[int]map[string]int
	users       map[string]User
	failures    map[string][]int
}

// New creates an empty store
func New() *Store {
	return &Store{
		departments: make(map[int]models.Department),
		employees:   make(map[int]models.Employee),
		workCodes:   make(map[int]models.WorkCode),
		entries:     make(map[int]map[string]int),
		users:       make(map[string]User),
		failures:    make(map[string][]int),
	}
}

// ParseMonth splits a YYYY-MM month and returns its first day
func ParseMonth(month string) (time.Time, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, errors.Wrap(ErrInvalidMonth, month)
	}
	return t, nil
}

// DaysIn returns the number of days of the month starting at first
func DaysIn(first time.Time) int {
	return first.AddDate(0, 1, -1).Day()
}

// PutDepartment inserts or replaces a department
func (s *Store) PutDepartment(d models.Department) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.departments[d.ID] = d
}

// PutEmployee inserts or replaces an employee
func (s *Store) PutEmployee(e models.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[e.ID] = e
}

// PutWorkCode inserts or replaces a work code
func (s *Store) PutWorkCode(wc models.WorkCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workCodes[wc.ID] = wc
}

// PutUser inserts or replaces an account
func (s *Store) PutUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Username] = u
}

// User looks up an account
func (s *Store) User(username string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	return u, ok
}

// FailNext makes the next call of op respond with status instead of running.
// Repeated calls queue further failures.
func (s *Store) FailNext(op string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], status)
}

// TakeFailure pops a queued failure for op
func (s *Store) TakeFailure(op string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.failures[op]
	if len(q) == 0 {
		return 0, false
	}
	s.failures[op] = q[1:]
	return q[0], true
}

// WorkCodes returns the catalog ordered by id
func (s *Store) WorkCodes() []models.WorkCode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.WorkCode, 0, len(s.workCodes))
	for _, wc := range s.workCodes {
		out = append(out, wc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Departments returns all departments ordered by category then id
func (s *Store) Departments() []models.Department {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Department, 0, len(s.departments))
	for _, d := range s.departments {
		out = append(out, d)
	}
	sortDepartments(out)
	return out
}

// Department looks up one department
func (s *Store) Department(id int) (models.Department, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.departments[id]
	return d, ok
}

// FullName joins the department path from the root, e.g. "Operations » Transport"
func (s *Store) FullName(id int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var names []string
	seen := map[int]bool{}
	for cur, ok := s.departments[id]; ok && !seen[cur.ID]; {
		seen[cur.ID] = true
		names = append([]string{cur.Name}, names...)
		if cur.ParentID == nil {
			break
		}
		cur, ok = s.departments[*cur.ParentID]
	}
	return strings.Join(names, " » ")
}

// HierarchyIDs returns id followed by all of its descendants
func (s *Store) HierarchyIDs(id int) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hierarchy(id, map[int]bool{})
}

func (s *Store) hierarchy(id int, seen map[int]bool) []int {
	if seen[id] {
		return nil
	}
	seen[id] = true
	ids := []int{id}
	children := make([]int, 0)
	for _, d := range s.departments {
		if d.ParentID != nil && *d.ParentID == id {
			children = append(children, d.ID)
		}
	}
	sort.Ints(children)
	for _, c := range children {
		ids = append(ids, s.hierarchy(c, seen)...)
	}
	return ids
}

// Timesheet builds the grid payload for a department hierarchy and month
func (s *Store) Timesheet(deptID int, month string) (*models.TimesheetResponse, error) {
	first, err := ParseMonth(month)
	if err != nil {
		return nil, err
	}
	ids := s.HierarchyIDs(deptID)

	s.mu.RLock()
	defer s.mu.RUnlock()
	inView := make(map[int]bool, len(ids))
	for _, id := range ids {
		inView[id] = true
	}

	resp := &models.TimesheetResponse{
		Employees:   []models.Employee{},
		Timesheet:   map[int]map[int]*int{},
		DaysInMonth: DaysIn(first),
		Month:       int(first.Month()),
		Year:        first.Year(),
	}
	prefix := month + "-"
	for _, e := range s.employees {
		if !inView[e.DeptID] {
			continue
		}
		resp.Employees = append(resp.Employees, e)
		row := map[int]*int{}
		for date, code := range s.entries[e.ID] {
			if !strings.HasPrefix(date, prefix) {
				continue
			}
			t, err := time.Parse("2006-01-02", date)
			if err != nil {
				continue
			}
			row[t.Day()] = models.IntPtr(code)
		}
		resp.Timesheet[e.ID] = row
	}
	sort.Slice(resp.Employees, func(i, j int) bool { return resp.Employees[i].ID < resp.Employees[j].ID })
	return resp, nil
}

// Apply writes a batch of changes atomically. A nil work code deletes the
// entry. Nothing is written when any change is invalid.
func (s *Store) Apply(updates []models.PendingChange) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, u := range updates {
		if _, err := time.Parse("2006-01-02", u.Date); err != nil {
			return 0, errors.Errorf("update %d: invalid date %q", i, u.Date)
		}
		if _, ok := s.employees[u.EmployeeID]; !ok {
			return 0, errors.Errorf("update %d: unknown employee %d", i, u.EmployeeID)
		}
		if u.WorkCodeID != nil {
			if _, ok := s.workCodes[*u.WorkCodeID]; !ok {
				return 0, errors.Errorf("update %d: unknown work code %d", i, *u.WorkCodeID)
			}
		}
	}

	for _, u := range updates {
		row, ok := s.entries[u.EmployeeID]
		if u.WorkCodeID == nil {
			if ok {
				delete(row, u.Date)
			}
			continue
		}
		if !ok {
			row = make(map[string]int)
			s.entries[u.EmployeeID] = row
		}
		row[u.Date] = *u.WorkCodeID
	}
	return len(updates), nil
}

// Entry returns the stored work code of an employee on a date
func (s *Store) Entry(employeeID int, date string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code, ok := s.entries[employeeID][date]
	return code, ok
}

// Employees returns the employees of the given departments ordered by id
func (s *Store) Employees(deptIDs []int) []models.Employee {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[int]bool, len(deptIDs))
	for _, id := range deptIDs {
		want[id] = true
	}
	out := make([]models.Employee, 0)
	for _, e := range s.employees {
		if want[e.DeptID] {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortDepartments(ds []models.Department) {
	sort.SliceStable(ds, func(i, j int) bool {
		if ds[i].Tier() != ds[j].Tier() {
			return ds[i].Tier() < ds[j].Tier()
		}
		return ds[i].ID < ds[j].ID
	})
}

// String describes the store contents for logs
func (s *Store) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("store{departments=%d employees=%d work_codes=%d users=%d}",
		len(s.departments), len(s.employees), len(s.workCodes), len(s.users))
}
