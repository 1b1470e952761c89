package store

import "github.com/arnavshah/timesheet-grid-go/pkg/models"

// Seed department ids
const (
	DeptManagement = 1
	DeptAccounting = 2
	DeptHR         = 3
	DeptOperations = 4
	DeptTransport  = 5
)

// Seed fills the store with a small demo organisation. passwordHash is the
// bcrypt hash given to both seeded accounts.
func Seed(s *Store, passwordHash string) {
	codes := []models.WorkCode{
		{ID: 1, Code: "8", Label: "Standard 8h", HoursStandard: 8, ColorHex: "#E2E8F0"},
		{ID: 2, Code: "Д", Label: "Day 12h", HoursStandard: 12, ColorHex: "#FEF08A"},
		{ID: 3, Code: "Н", Label: "Night 12h", HoursStandard: 8, HoursNight: 4, ColorHex: "#DDD6FE"},
		{ID: 4, Code: "О", Label: "Vacation", ColorHex: "#BBF7D0"},
		{ID: 5, Code: "К", Label: "Business Trip", ColorHex: "#BFDBFE"},
	}
	for _, wc := range codes {
		s.PutWorkCode(wc)
	}

	s.PutDepartment(models.Department{ID: DeptManagement, Name: "Management", Category: models.IntPtr(1)})
	s.PutDepartment(models.Department{ID: DeptAccounting, Name: "Accounting", Category: models.IntPtr(2)})
	s.PutDepartment(models.Department{ID: DeptHR, Name: "HR", Category: models.IntPtr(3)})
	s.PutDepartment(models.Department{ID: DeptOperations, Name: "Operations", Category: models.IntPtr(4)})
	s.PutDepartment(models.Department{ID: DeptTransport, Name: "Transport Service", ParentID: models.IntPtr(DeptOperations)})

	employees := []models.Employee{
		{ID: 1, FullName: "Ivanov Ivan Ivanovich", TabNumber: "M-001", Category: models.IntPtr(1), DeptID: DeptManagement},
		{ID: 2, FullName: "Petrova Anna Ivanovna", TabNumber: "M-002", Category: models.IntPtr(2), DeptID: DeptManagement},
		{ID: 3, FullName: "Orlov Pavel", TabNumber: "O-001", Category: models.IntPtr(1), DeptID: DeptOperations},
		{ID: 4, FullName: "Smirnov Alexey", TabNumber: "T-001", Category: models.IntPtr(3), DeptID: DeptTransport},
		{ID: 5, FullName: "Kuznetsov Petr", TabNumber: "T-002", DeptID: DeptTransport},
		{ID: 6, FullName: "Sokolov Mikhail", TabNumber: "T-003", Category: models.IntPtr(2), DeptID: DeptTransport},
	}
	for _, e := range employees {
		s.PutEmployee(e)
	}

	s.PutUser(User{Username: "Superuser", PasswordHash: passwordHash, CanExport: true})
	s.PutUser(User{Username: "viewer", PasswordHash: passwordHash})
}
