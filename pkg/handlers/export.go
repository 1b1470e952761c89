package handlers

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/arnavshah/timesheet-grid-go/pkg/models"
	"github.com/arnavshah/timesheet-grid-go/pkg/store"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// XLSXContentType is the media type of exported workbooks
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// fixed columns before the day columns
var exportHeaders = []string{"Employee Name", "Tab No.", "Position", "Category"}

// ExportT13 renders the department month as a T-13 workbook
func (h *Handler) ExportT13(c *gin.Context) {
	user, _ := h.Store.User(c.GetString("username"))
	if !user.CanExport {
		c.JSON(http.StatusForbidden, gin.H{"detail": "Not authorized to export this department's timesheet"})
		return
	}

	deptID, ok := deptParam(c)
	if !ok {
		return
	}
	month := c.Param("month")
	if _, err := store.ParseMonth(month); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid month format. Expected YYYY-MM"})
		return
	}
	if _, ok := h.Store.Department(deptID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Department not found"})
		return
	}

	data, err := h.renderT13(deptID, month)
	if err != nil {
		h.Log.WithError(err).WithField("dept_id", deptID).Error("handlers.ExportT13")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Could not render export"})
		return
	}

	filename := fmt.Sprintf("T-13_%s_%s.xlsx", exportSlug(h.Store.FullName(deptID)), month)
	c.Header("Content-Disposition", "attachment; filename*=utf-8''"+url.PathEscape(filename))
	c.Data(http.StatusOK, XLSXContentType, data)
}

func exportSlug(name string) string {
	return strings.NewReplacer(" ", "_", "»", "-").Replace(name)
}

func (h *Handler) renderT13(deptID int, month string) ([]byte, error) {
	ts, err := h.Store.Timesheet(deptID, month)
	if err != nil {
		return nil, err
	}
	codes := make(map[int]models.WorkCode)
	for _, wc := range h.Store.WorkCodes() {
		codes[wc.ID] = wc
	}
	deptIDs := make(map[int]bool)
	for _, id := range h.Store.HierarchyIDs(deptID) {
		deptIDs[id] = true
	}
	var depts []models.Department
	for _, d := range h.Store.Departments() {
		if deptIDs[d.ID] {
			depts = append(depts, d)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Timesheet " + month
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, errors.Wrap(err, "rename sheet")
	}

	headers := append([]string{}, exportHeaders...)
	for day := 1; day <= ts.DaysInMonth; day++ {
		headers = append(headers, fmt.Sprint(day))
	}
	headers = append(headers, "Std Hrs", "Night Hrs", "Total Hrs")
	lastCol := len(headers)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "1E293B"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F8FAFC"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "header style")
	}
	bannerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: "0F172A"},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E2E8F0"}},
		Border: thinBorder(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "banner style")
	}
	bodyStyle, err := f.NewStyle(&excelize.Style{Border: thinBorder()})
	if err != nil {
		return nil, errors.Wrap(err, "body style")
	}

	row := 1
	if err := writeRow(f, sheet, row, toValues(headers)); err != nil {
		return nil, err
	}
	if err := styleRow(f, sheet, row, lastCol, headerStyle); err != nil {
		return nil, err
	}

	byID := make(map[int]models.Department, len(depts))
	for _, d := range depts {
		byID[d.ID] = d
	}
	for _, d := range depts {
		emps := make([]models.Employee, 0)
		for _, e := range ts.Employees {
			if e.DeptID == d.ID {
				emps = append(emps, e)
			}
		}
		if len(emps) == 0 {
			continue
		}

		row++
		title := d.Name
		if d.ParentID != nil {
			if p, ok := byID[*d.ParentID]; ok {
				title = p.Name + " » " + d.Name
			}
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		end, _ := excelize.CoordinatesToCellName(lastCol, row)
		if err := f.SetCellValue(sheet, start, title); err != nil {
			return nil, errors.Wrap(err, "banner")
		}
		if err := f.MergeCell(sheet, start, end); err != nil {
			return nil, errors.Wrap(err, "merge banner")
		}
		if err := f.SetCellStyle(sheet, start, end, bannerStyle); err != nil {
			return nil, errors.Wrap(err, "style banner")
		}

		sort.SliceStable(emps, func(i, j int) bool {
			if emps[i].Tier() != emps[j].Tier() {
				return emps[i].Tier() < emps[j].Tier()
			}
			return emps[i].FullName < emps[j].FullName
		})
		for _, e := range emps {
			row++
			position := "—"
			if e.Position != nil {
				position = e.Position.Name
			}
			values := []interface{}{e.FullName, e.TabNumber, position, fmt.Sprint(e.Tier())}
			var std, night float64
			for day := 1; day <= ts.DaysInMonth; day++ {
				cell := ""
				if id := ts.Timesheet[e.ID][day]; id != nil {
					if wc, ok := codes[*id]; ok {
						cell = wc.Code
						std += wc.HoursStandard
						night += wc.HoursNight
					}
				}
				values = append(values, cell)
			}
			values = append(values, round1(std), round1(night), round1(std+night))
			if err := writeRow(f, sheet, row, values); err != nil {
				return nil, err
			}
			if err := styleRow(f, sheet, row, lastCol, bodyStyle); err != nil {
				return nil, err
			}
		}
	}

	widths := map[string]float64{"A": 30, "B": 12, "C": 20, "D": 10}
	for col, w := range widths {
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return nil, errors.Wrap(err, "column width")
		}
	}
	firstDay, _ := excelize.ColumnNumberToName(len(exportHeaders) + 1)
	lastDay, _ := excelize.ColumnNumberToName(len(exportHeaders) + ts.DaysInMonth)
	if err := f.SetColWidth(sheet, firstDay, lastDay, 5); err != nil {
		return nil, errors.Wrap(err, "day width")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "write workbook")
	}
	h.Log.WithFields(logrus.Fields{"dept_id": deptID, "month": month, "rows": row}).Debug("handlers.renderT13")
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return errors.Wrap(err, "row cell")
	}
	return errors.Wrapf(f.SetSheetRow(sheet, cell, &values), "write row %d", row)
}

func styleRow(f *excelize.File, sheet string, row, lastCol, style int) error {
	start, _ := excelize.CoordinatesToCellName(1, row)
	end, _ := excelize.CoordinatesToCellName(lastCol, row)
	return errors.Wrapf(f.SetCellStyle(sheet, start, end, style), "style row %d", row)
}

func thinBorder() []excelize.Border {
	sides := []string{"left", "right", "top", "bottom"}
	out := make([]excelize.Border, len(sides))
	for i, s := range sides {
		out[i] = excelize.Border{Type: s, Color: "000000", Style: 1}
	}
	return out
}

func toValues(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
