package loader

import (
	"context"
	"io"
	"sort"

	"github.com/arnavshah/timesheet-grid-go/pkg/grid"
	"github.com/arnavshah/timesheet-grid-go/pkg/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Source is the subset of the API client the loader needs
type Source interface {
	Timesheet(ctx context.Context, deptID int, month string) (*models.TimesheetResponse, error)
	WorkCodes(ctx context.Context) ([]models.WorkCode, error)
	Departments(ctx context.Context) ([]models.Department, error)
}

// Section is a block of grid rows under one department header
type Section struct {
	Department models.Department
	Title      string
	Primary    bool
	Employees  []models.Employee
}

// Catalog is everything one view needs, fetched together
type Catalog struct {
	DeptID      int
	Month       string
	DaysInMonth int
	Employees   []models.Employee
	Departments []models.Department
	WorkCodes   []models.WorkCode
	Matrix      map[int]map[int]*int
}

// Model builds a fresh grid model from the catalog
func (c *Catalog) Model() *grid.Model {
	return grid.NewModel(c.Month, c.DaysInMonth, c.WorkCodes, c.Matrix)
}

// Sections groups the roster for display: the viewed department first, then
// every other department with at least one employee, by tier then id.
func (c *Catalog) Sections() []Section {
	byDept := make(map[int][]models.Employee)
	for _, e := range c.Employees {
		byDept[e.DeptID] = append(byDept[e.DeptID], e)
	}
	names := make(map[int]string, len(c.Departments))
	for _, d := range c.Departments {
		names[d.ID] = d.Name
	}

	var out []Section
	primary := Section{Department: models.Department{ID: c.DeptID}, Primary: true, Employees: byDept[c.DeptID]}
	for _, d := range c.Departments {
		if d.ID == c.DeptID {
			primary.Department = d
			primary.Title = d.Name
		}
	}
	out = append(out, primary)

	others := make([]models.Department, 0, len(c.Departments))
	for _, d := range c.Departments {
		if d.ID != c.DeptID && len(byDept[d.ID]) > 0 {
			others = append(others, d)
		}
	}
	sort.SliceStable(others, func(i, j int) bool {
		if others[i].Tier() != others[j].Tier() {
			return others[i].Tier() < others[j].Tier()
		}
		return others[i].ID < others[j].ID
	})
	for _, d := range others {
		title := d.Name
		if d.ParentID != nil {
			if p, ok := names[*d.ParentID]; ok {
				title = p + " » " + d.Name
			}
		}
		out = append(out, Section{Department: d, Title: title, Employees: byDept[d.ID]})
	}
	return out
}

// Loader fetches catalogs from a Source
type Loader struct {
	src Source
	log logrus.FieldLogger
}

// New creates a loader. A nil logger discards output.
func New(src Source, log logrus.FieldLogger) *Loader {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Loader{src: src, log: log}
}

// Load fetches the timesheet, the work codes and the departments in
// parallel. Any failure fails the whole load and nothing is returned.
func (l *Loader) Load(ctx context.Context, deptID int, month string) (*Catalog, error) {
	var (
		ts    *models.TimesheetResponse
		codes []models.WorkCode
		depts []models.Department
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ts, err = l.src.Timesheet(gctx, deptID, month)
		return errors.Wrap(err, "fetch timesheet")
	})
	g.Go(func() error {
		var err error
		codes, err = l.src.WorkCodes(gctx)
		return errors.Wrap(err, "fetch work codes")
	})
	g.Go(func() error {
		var err error
		depts, err = l.src.Departments(gctx)
		return errors.Wrap(err, "fetch departments")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if ts == nil {
		return nil, errors.New("fetch timesheet: empty response")
	}

	employees := append([]models.Employee(nil), ts.Employees...)
	SortEmployees(employees)

	c := &Catalog{
		DeptID:      deptID,
		Month:       month,
		DaysInMonth: ts.DaysInMonth,
		Employees:   employees,
		Departments: depts,
		WorkCodes:   codes,
		Matrix:      ts.Timesheet,
	}
	if c.Matrix == nil {
		c.Matrix = map[int]map[int]*int{}
	}

	l.log.WithFields(logrus.Fields{
		"dept_id":    deptID,
		"month":      month,
		"employees":  len(employees),
		"work_codes": len(codes),
	}).Debug("loader.Load")
	return c, nil
}

// SortEmployees orders employees by ascending tier; a missing tier sorts as
// models.DefaultCategory. Equal tiers keep their order.
func SortEmployees(es []models.Employee) {
	sort.SliceStable(es, func(i, j int) bool {
		return es[i].Tier() < es[j].Tier()
	})
}
