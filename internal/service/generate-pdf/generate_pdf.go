package generate_pdf

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/go-pdf/fpdf"

	"plantops/internal/service/reporting"
	"plantops/internal/storage"
)

const (
	marginMM  = 12
	lineH     = 6
	fontTitle = 14
	fontBody  = 9
)

// RenderReport prints a daily report on A4: header, metric lines, sections and the child tables.
func RenderReport(r *storage.Report) ([]byte, error) {
	const op = "service.generate_pdf.RenderReport"

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginMM, marginMM, marginMM)
	pdf.SetAutoPageBreak(true, marginMM)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 2*marginMM

	pdf.SetFont("Helvetica", "B", fontTitle)
	pdf.CellFormat(contentW, 8, tr(fmt.Sprintf("Daily report #%d", r.ID)), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", fontBody)
	header := [][2]string{
		{"Date", r.Date.Format("2006-01-02")},
		{"Company", strconv.FormatInt(r.Scope.CompanyID, 10)},
		{"Branch", strconv.FormatInt(r.Scope.BranchID, 10)},
		{"Department", strconv.FormatInt(r.Scope.DepartmentID, 10)},
		{"Manager", strconv.FormatInt(r.ManagerID, 10)},
		{"State", string(r.State)},
	}
	for _, kv := range header {
		pdf.CellFormat(35, lineH, kv[0]+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW-35, lineH, tr(kv[1]), "", 1, "L", false, 0, "")
	}

	block := func(title, body string) {
		if body == "" {
			return
		}
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "B", fontBody+1)
		pdf.CellFormat(contentW, lineH, tr(title), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", fontBody)
		pdf.MultiCell(contentW, 5, tr(body), "", "L", false)
	}
	block("Activities", r.Activities)

	table := func(title string, widths []float64, headers []string, rows [][]string) {
		if len(rows) == 0 {
			return
		}
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "B", fontBody+1)
		pdf.CellFormat(contentW, lineH, tr(title), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", fontBody)
		pdf.SetFillColor(224, 224, 224)
		for i, h := range headers {
			pdf.CellFormat(widths[i]*contentW, lineH, tr(h), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", fontBody)
		for _, row := range rows {
			for i, cell := range row {
				pdf.CellFormat(widths[i]*contentW, lineH, tr(truncate(cell, widths[i])), "1", 0, "L", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	var metrics [][]string
	for _, l := range r.MetricLines {
		required := ""
		if l.Required {
			required = "yes"
		}
		metrics = append(metrics, []string{l.Name, string(l.ValueType), reporting.FormatValue(l.Value), required})
	}
	table("Metrics", []float64{0.45, 0.15, 0.3, 0.1}, []string{"Metric", "Type", "Value", "Req."}, metrics)

	var complaints [][]string
	for _, c := range r.Complaints {
		resolved := "no"
		if c.Resolved {
			resolved = "yes"
		}
		complaints = append(complaints, []string{c.Customer, c.Severity, c.Description, c.ActionTaken, resolved})
	}
	table("Complaints", []float64{0.2, 0.1, 0.35, 0.25, 0.1},
		[]string{"Customer", "Severity", "Description", "Action", "Resolved"}, complaints)

	var staff [][]string
	for _, l := range r.StaffLogs {
		staff = append(staff, []string{l.StaffName, l.Role, l.Shift, l.Attendance, l.Issue})
	}
	table("Staff", []float64{0.25, 0.15, 0.12, 0.13, 0.35},
		[]string{"Name", "Role", "Shift", "Attendance", "Issue"}, staff)

	var ratings [][]string
	for _, c := range r.ContractorRatings {
		ratings = append(ratings, []string{c.Contractor, strconv.FormatFloat(c.Rating, 'f', 1, 64), c.Comment, c.ReferencePeriod})
	}
	table("Contractors", []float64{0.3, 0.1, 0.4, 0.2},
		[]string{"Contractor", "Rating", "Comment", "Period"}, ratings)

	for _, sec := range r.Sections {
		body := sec.Description
		if sec.Subject != "" {
			body = sec.Subject + "\n" + body
		}
		block(sec.Title, body)
	}

	block("Notes", r.Notes)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return buf.Bytes(), nil
}

// truncate keeps a cell on one line; widths are fractions of the content width.
func truncate(s string, width float64) string {
	limit := int(width * 110)
	if len(s) <= limit {
		return s
	}
	return s[:limit-1] + "~"
}
