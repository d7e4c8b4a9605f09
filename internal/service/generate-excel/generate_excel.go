package generate_excel

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"plantops/internal/access"
	"plantops/internal/storage"
)

// InvoiceStorage resolves an invoice the actor may read.
type InvoiceStorage interface {
	GetInvoice(ctx context.Context, actor access.Actor, id int64) (*storage.Invoice, error)
}

type GenerateExcelService struct {
	storage InvoiceStorage
}

func NewGenerateService(storage InvoiceStorage) *GenerateExcelService {
	return &GenerateExcelService{storage: storage}
}

const sheet = "Invoice"

// GenerateExcel renders an invoice draft as a single-sheet workbook: a summary block
// followed by the billing lines and the total.
func (g *GenerateExcelService) GenerateExcel(ctx context.Context, actor access.Actor, invoiceID int64) ([]byte, error) {
	const op = "service.generate_excel.GenerateExcel"

	inv, err := g.storage.GetInvoice(ctx, actor, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch invoice: %w", op, err)
	}

	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 2}},
	})

	summary := [][2]any{
		{"Invoice", inv.Reference},
		{"Customer", inv.Customer},
		{"Invoice date", inv.InvoiceDate.Format("2006-01-02")},
		{"Period", inv.PeriodStart.Format("2006-01-02") + " - " + inv.PeriodEnd.Format("2006-01-02")},
		{"Target qty", inv.TargetQty.InexactFloat64()},
		{"Adjusted target qty", inv.AdjustedQty.InexactFloat64()},
		{"Prime output qty", inv.PrimeOutputQty.InexactFloat64()},
		{"Standby qty", inv.StandbyQty.InexactFloat64()},
		{"Waived hours", inv.WaivedHours.InexactFloat64()},
		{"Chargeable hours", inv.ChargeableHours.InexactFloat64()},
		{"Runtime min", inv.RuntimeMinutes.InexactFloat64()},
		{"Idle min", inv.IdleMinutes.InexactFloat64()},
		{"Dockets", inv.DocketCount},
		{"Cooling period", yesNo(inv.Cooling)},
	}
	for i, kv := range summary {
		row := i + 1
		f.SetCellValue(sheet, cellName(1, row), kv[0])
		f.SetCellValue(sheet, cellName(2, row), kv[1])
	}
	f.SetCellStyle(sheet, "A1", cellName(1, len(summary)), boldStyle)

	headerRow := len(summary) + 2
	headers := []string{"Kind", "Description", "Unit", "Quantity", "Unit price", "Amount"}
	for i, name := range headers {
		f.SetCellValue(sheet, cellName(i+1, headerRow), name)
	}
	f.SetCellStyle(sheet, cellName(1, headerRow), cellName(len(headers), headerRow), headerStyle)

	row := headerRow
	for _, l := range inv.Lines {
		row++
		f.SetCellValue(sheet, cellName(1, row), string(l.Kind))
		f.SetCellValue(sheet, cellName(2, row), l.Name)
		f.SetCellValue(sheet, cellName(3, row), l.Unit)
		f.SetCellValue(sheet, cellName(4, row), l.Quantity.InexactFloat64())
		f.SetCellValue(sheet, cellName(5, row), l.UnitPrice.InexactFloat64())
		f.SetCellValue(sheet, cellName(6, row), l.Amount.InexactFloat64())
	}

	row++
	f.SetCellValue(sheet, cellName(5, row), "Total")
	f.SetCellValue(sheet, cellName(6, row), inv.Total.InexactFloat64())
	f.SetCellStyle(sheet, cellName(5, row), cellName(6, row), boldStyle)

	f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      headerRow,
		TopLeftCell: cellName(1, headerRow+1),
	})
	f.SetColWidth(sheet, "A", "A", 22)
	f.SetColWidth(sheet, "B", "B", 36)
	f.SetColWidth(sheet, "C", "F", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return buf.Bytes(), nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
