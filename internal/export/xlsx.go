// Package export renders stored order items as spreadsheets.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/markdave123-py/fiscalextract/internal/models"
	"github.com/markdave123-py/fiscalextract/internal/orders"
)

// SheetName is the worksheet holding the items.
const SheetName = "Itens"

// Headers is the first row of the sheet.
var Headers = []string{
	"Código",
	"Tipo",
	"CNPJ",
	"CNO",
	"Período Inicial",
	"Período Final",
	"Vencimento",
	"Valor Original",
	"Saldo Atual",
	"Multa",
	"Juros",
	"Saldo Consolidado",
	"Situação",
}

// ItemsXLSX writes one row per item followed by the per-section totals and returns the
// workbook bytes.
func ItemsXLSX(items []models.OrderItem) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// the default sheet is renamed so the workbook has a single tab
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	row := 2
	for _, it := range items {
		values := []any{
			it.Code,
			it.TaxType,
			it.CNPJ,
			it.CNO,
			it.StartPeriod,
			it.EndPeriod,
			it.DueDate,
			it.OriginalValue,
			it.CurrentBalance,
			it.Fine,
			it.Interest,
			it.SaldoDevedorConsolidado,
			it.Status,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", row, err)
		}
		row++
	}

	// blank line, then totals
	row++
	totals := orders.SectionTotals(items)
	for _, s := range orders.Sections {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(SheetName, cell, &[]any{s, totals[s]}); err != nil {
			return nil, fmt.Errorf("write total %s: %w", s, err)
		}
		row++
	}

	_ = f.SetColWidth(SheetName, "A", "A", 28)
	_ = f.SetColWidth(SheetName, "B", "B", 30)
	_ = f.SetColWidth(SheetName, "C", "D", 20)
	_ = f.SetColWidth(SheetName, "E", "G", 14)
	_ = f.SetColWidth(SheetName, "H", "L", 16)
	_ = f.SetColWidth(SheetName, "M", "M", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
