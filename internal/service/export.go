package service

import (
	"bytes"
	"fmt"

	"go-pen-inventory/internal/model"

	"github.com/xuri/excelize/v2"
)

const ledgerSheet = "Ledger"

var ledgerColumns = []struct {
	Title string
	Width float64
}{
	{"Transaction ID", 38},
	{"Type", 12},
	{"Created", 20},
	{"Created By", 38},
	{"Line", 6},
	{"SKU", 48},
	{"Item", 28},
	{"Quantity Change", 16},
	{"Unit Price", 12},
	{"Line Total", 12},
}

// buildLedgerWorkbook renders one row per ledger line.
func buildLedgerWorkbook(batches []model.Transaction) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ledgerSheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	for i, col := range ledgerColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(ledgerSheet, cell, col.Title); err != nil {
			return nil, err
		}
		f.SetCellStyle(ledgerSheet, cell, cell, headerStyle)
		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(ledgerSheet, colName, colName, col.Width)
	}

	row := 2
	for _, batch := range batches {
		for _, line := range batch.Lines {
			sku, name := "(deleted)", "(deleted)"
			if v := line.Variant; v != nil {
				sku = v.SKU
				name = v.DisplayName()
			}
			unit, _ := line.UnitPriceAtSale.Float64()
			total, _ := line.LineTotal().Float64()
			values := []interface{}{
				batch.ID.String(),
				string(batch.Type),
				batch.CreatedAt.Format("2006-01-02 15:04:05"),
				batch.CreatedBy,
				line.LineNo,
				sku,
				name,
				line.QuantityChange,
				unit,
				total,
			}
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(ledgerSheet, cell, &values); err != nil {
				return nil, fmt.Errorf("write ledger row %d: %w", row, err)
			}
			row++
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
