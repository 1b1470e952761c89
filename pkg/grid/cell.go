package grid

import "fmt"

// Cell is an (employee, day) coordinate in the month in view
type Cell struct {
	EmployeeID int `json:"employee_id"`
	Day        int `json:"day"`
}

func (c Cell) String() string {
	return fmt.Sprintf("%d/%d", c.EmployeeID, c.Day)
}

// DateKey formats a day of month as a full YYYY-MM-DD date
func DateKey(month string, day int) string {
	return fmt.Sprintf("%s-%02d", month, day)
}
