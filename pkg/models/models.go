package models

// DefaultCategory is the tier assigned to employees and departments without one
const DefaultCategory = 99

// WorkCode represents one kind of day (shift, night, vacation...) in the catalog
type WorkCode struct {
	ID            int     `json:"id"`
	Code          string  `json:"code"`
	Label         string  `json:"label"`
	HoursStandard float64 `json:"hours_standard"`
	HoursNight    float64 `json:"hours_night"`
	ColorHex      string  `json:"color_hex"`
}

// Position is the job title attached to an employee
type Position struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Employee represents a row in the attendance grid
type Employee struct {
	ID         int       `json:"id"`
	FullName   string    `json:"full_name"`
	TabNumber  string    `json:"tab_number"`
	Category   *int      `json:"category"`
	PositionID *int      `json:"position_id"`
	Position   *Position `json:"position"`
	DeptID     int       `json:"dept_id"`
}

// Tier returns the display priority, lower sorts first
func (e Employee) Tier() int {
	if e.Category == nil {
		return DefaultCategory
	}
	return *e.Category
}

// Department is a node of the department tree
type Department struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	ParentID *int   `json:"parent_id"`
	Category *int   `json:"category"`
}

// Tier returns the display priority, lower sorts first
func (d Department) Tier() int {
	if d.Category == nil {
		return DefaultCategory
	}
	return *d.Category
}

// PendingChange is one unsaved overwrite of a cell. A nil WorkCodeID clears it.
type PendingChange struct {
	EmployeeID int    `json:"employee_id"`
	Date       string `json:"date"`
	WorkCodeID *int   `json:"work_code_id"`
}

// TimesheetResponse is the payload of GET /timesheet/{dept}/{month}.
// Timesheet keys are employee ids then day-of-month, both as JSON strings.
type TimesheetResponse struct {
	Employees   []Employee           `json:"employees"`
	Timesheet   map[int]map[int]*int `json:"timesheet"`
	DaysInMonth int                  `json:"days_in_month"`
	Month       int                  `json:"month,omitempty"`
	Year        int                  `json:"year,omitempty"`
}

// UpdateRequest is the body of POST /timesheet/update
type UpdateRequest struct {
	Updates []PendingChange `json:"updates"`
}

// UpdateResponse is returned by a successful batch update
type UpdateResponse struct {
	Status       string `json:"status"`
	UpdatedCount int    `json:"updated_count"`
}

// TokenResponse is returned by the login endpoint
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}
