package session

import (
	"fmt"
	"net/http"

	"github.com/arnavshah/timesheet-grid-go/pkg/api"
	"github.com/pkg/errors"
)

var (
	// ErrSuperseded is returned by a load whose result was discarded because a newer load started
	ErrSuperseded = errors.New("load superseded by a newer request")
	// ErrNoView is returned when an operation needs a loaded department month
	ErrNoView = errors.New("no timesheet loaded")
)

// LoadError means one of the catalog fetches failed. The previous view is kept.
type LoadError struct {
	DeptID int
	Month  string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load department %d month %s: %v", e.DeptID, e.Month, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// SaveError means the batch update was rejected or never arrived. The buffer
// is kept verbatim for a retry.
type SaveError struct {
	Pending int
	Err     error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save %d changes: %v", e.Pending, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// ExportError means no spreadsheet was produced
type ExportError struct {
	DeptID int
	Month  string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export department %d month %s: %v", e.DeptID, e.Month, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// Denied reports whether the backend refused the export
func (e *ExportError) Denied() bool {
	return api.HasStatus(e.Err, http.StatusUnauthorized, http.StatusForbidden)
}

// UserMessage is the text shown to the user for this failure
func (e *ExportError) UserMessage() string {
	var se *api.StatusError
	switch {
	case e.Denied():
		return "Export failed. You may not have permission to export this department."
	case errors.As(e.Err, &se):
		return "Export failed. The server could not produce the file."
	default:
		return "Network error. Could not export Excel file."
	}
}
