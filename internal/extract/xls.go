package extract

import (
	"bytes"
	"fmt"

	"github.com/shakinm/xlsReader/xls"

	"github.com/dfarias/escrow-etl/internal/table"
)

// readXLS reads the first sheet of a legacy BIFF workbook.
func readXLS(data []byte) (*table.Table, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xls source: %w", err)
	}

	if workbook.GetNumberSheets() == 0 {
		return nil, fmt.Errorf("xls source has no sheets")
	}
	sheet, err := workbook.GetSheet(0)
	if err != nil {
		return nil, fmt.Errorf("read xls sheet: %w", err)
	}

	var records [][]string
	for _, row := range sheet.GetRows() {
		var rec []string
		for _, cell := range row.GetCols() {
			rec = append(rec, cell.GetString())
		}
		records = append(records, rec)
	}
	return tableFromRecords(records)
}
