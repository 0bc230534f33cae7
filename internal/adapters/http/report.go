package http

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"uptimeboard/internal/core/domain"
)

const (
	reportSheet = "Uptime"
	xlsxMIME    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ReportHeader is the first row of the spreadsheet.
var ReportHeader = []string{"Device ID", "Last Seen (UTC)", "Uptime (%)", "Status"}

// font colour per status band
var statusColors = map[string]string{
	domain.StatusOK:       "#008000",
	domain.StatusDegraded: "#FFA500",
	domain.StatusDown:     "#FF0000",
}

// GetReport godoc
// @Summary Uptime table as a spreadsheet
// @Tags devices
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/report.xlsx [get]
func (h *Handler) GetReport(c *gin.Context) {
	now := h.now().UTC()
	data, err := BuildReport(h.svc.Snapshot(now), h.svc.Params(), now)
	if err != nil {
		h.writeError(c, err)
		return
	}

	name := fmt.Sprintf("uptime-%s.xlsx", now.Format("20060102-150405"))
	c.Header("Content-Disposition", attachment(name))
	c.Data(http.StatusOK, xlsxMIME, data)
}

// BuildReport renders rows into an xlsx workbook with one sheet. The uptime
// cell of every row is coloured by its status band.
func BuildReport(rows []domain.ReportRow, params domain.Window, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(reportSheet)
	if err != nil {
		return nil, fmt.Errorf("report: create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("report: delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6E6E6"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("report: header style: %w", err)
	}

	styles := make(map[string]int, len(statusColors))
	for status, color := range statusColors {
		id, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Color: color, Bold: true}})
		if err != nil {
			return nil, fmt.Errorf("report: %s style: %w", status, err)
		}
		styles[status] = id
	}

	for col, title := range ReportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(reportSheet, cell, title); err != nil {
			return nil, fmt.Errorf("report: header %s: %w", cell, err)
		}
	}
	if err := f.SetCellStyle(reportSheet, "A1", "D1", headerStyle); err != nil {
		return nil, fmt.Errorf("report: header style: %w", err)
	}

	for i, r := range rows {
		line := i + 2
		values := []interface{}{
			r.DeviceID,
			r.LastSeen.UTC().Format("2006-01-02 15:04:05"),
			r.UptimePercent,
			r.Status(),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, line)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(reportSheet, cell, v); err != nil {
				return nil, fmt.Errorf("report: cell %s: %w", cell, err)
			}
		}
		cell := fmt.Sprintf("C%d", line)
		if err := f.SetCellStyle(reportSheet, cell, cell, styles[r.Status()]); err != nil {
			return nil, fmt.Errorf("report: style %s: %w", cell, err)
		}
	}

	footer := len(rows) + 3
	note := fmt.Sprintf("Generated %s, interval %s, window %s",
		generatedAt.UTC().Format(time.RFC3339), params.Interval, params.Window)
	if err := f.SetCellValue(reportSheet, fmt.Sprintf("A%d", footer), note); err != nil {
		return nil, fmt.Errorf("report: footer: %w", err)
	}

	for col, width := range []float64{20, 22, 12, 12} {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(reportSheet, name, name, width); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("report: write: %w", err)
	}
	return buf.Bytes(), nil
}
