package loader

import (
	"context"
	"errors"
	"testing"

	"github.com/arnavshah/timesheet-grid-go/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	ts       *models.TimesheetResponse
	codes    []models.WorkCode
	depts    []models.Department
	codesErr error
}

func (f *fakeSource) Timesheet(ctx context.Context, deptID int, month string) (*models.TimesheetResponse, error) {
	return f.ts, nil
}

func (f *fakeSource) WorkCodes(ctx context.Context) ([]models.WorkCode, error) {
	return f.codes, f.codesErr
}

func (f *fakeSource) Departments(ctx context.Context) ([]models.Department, error) {
	return f.depts, nil
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		ts: &models.TimesheetResponse{
			Employees: []models.Employee{
				{ID: 1, FullName: "No tier", DeptID: 10},
				{ID: 2, FullName: "Tier 3", Category: models.IntPtr(3), DeptID: 11},
				{ID: 3, FullName: "Tier 1", Category: models.IntPtr(1), DeptID: 10},
				{ID: 4, FullName: "Tier 3 later", Category: models.IntPtr(3), DeptID: 12},
			},
			Timesheet:   map[int]map[int]*int{3: {2: models.IntPtr(1)}},
			DaysInMonth: 30,
		},
		codes: []models.WorkCode{{ID: 1, Code: "8", HoursStandard: 8}},
		depts: []models.Department{
			{ID: 10, Name: "Operations", Category: models.IntPtr(4)},
			{ID: 11, Name: "Transport", ParentID: models.IntPtr(10)},
			{ID: 12, Name: "Garage", ParentID: models.IntPtr(10), Category: models.IntPtr(1)},
			{ID: 13, Name: "Empty", ParentID: models.IntPtr(10)},
		},
	}
}

func TestLoadSortsByTier(t *testing.T) {
	c, err := New(newFakeSource(), nil).Load(context.Background(), 10, "2024-04")
	require.NoError(t, err)

	var ids []int
	for _, e := range c.Employees {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []int{3, 2, 4, 1}, ids)

	m := c.Model()
	assert.Equal(t, 30, m.DaysInMonth())
	assert.Equal(t, "2024-04", m.Month())
	assert.Equal(t, 8.0, m.Totals(3).Standard)
}

func TestLoadFailsAsAWhole(t *testing.T) {
	src := newFakeSource()
	src.codesErr = errors.New("boom")

	c, err := New(src, nil).Load(context.Background(), 10, "2024-04")
	assert.Nil(t, c)
	assert.ErrorContains(t, err, "fetch work codes")
}

func TestSections(t *testing.T) {
	c, err := New(newFakeSource(), nil).Load(context.Background(), 10, "2024-04")
	require.NoError(t, err)

	sections := c.Sections()
	require.Len(t, sections, 3)

	assert.True(t, sections[0].Primary)
	assert.Equal(t, "Operations", sections[0].Title)
	assert.Len(t, sections[0].Employees, 2)

	assert.Equal(t, "Operations » Garage", sections[1].Title)
	assert.Equal(t, "Operations » Transport", sections[2].Title)
}
