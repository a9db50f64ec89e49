package docextract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// compound file header shared by every legacy binary Office format
var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// ExtractExcel renders every sheet as a "--- Sheet: <name> ---" header
// followed by its rows, cells separated by tabs. Both .xlsx and legacy .xls
// workbooks are read.
func ExtractExcel(data []byte) (string, error) {
	if bytes.HasPrefix(data, oleSignature) {
		return extractLegacyExcel(data)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: open workbook: %v", ErrInvalidDocument, err)
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q failed: %w", sheet, err)
		}
		writeSheet(&sb, sheet, rows)
	}
	return sb.String(), nil
}

func extractLegacyExcel(data []byte) (text string, err error) {
	// the BIFF reader indexes records without bounds checks
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: xls parse panic: %v", ErrInvalidDocument, r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return "", fmt.Errorf("%w: open xls workbook: %v", ErrInvalidDocument, err)
	}
	if wb == nil {
		return "", fmt.Errorf("%w: no workbook stream", ErrInvalidDocument)
	}

	var sb strings.Builder
	for i := 0; i < wb.NumSheets(); i++ {
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		var rows [][]string
		for r := 0; r <= int(sheet.MaxRow); r++ {
			row := sheet.Row(r)
			if row == nil {
				rows = append(rows, nil)
				continue
			}
			cells := make([]string, 0, row.LastCol())
			for c := 0; c < row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			rows = append(rows, trimTrailingEmpty(cells))
		}
		for len(rows) > 0 && len(rows[len(rows)-1]) == 0 {
			rows = rows[:len(rows)-1]
		}
		writeSheet(&sb, sheet.Name, rows)
	}
	return sb.String(), nil
}

func writeSheet(sb *strings.Builder, name string, rows [][]string) {
	sb.WriteString("--- Sheet: ")
	sb.WriteString(name)
	sb.WriteString(" ---\n")
	for _, row := range rows {
		sb.WriteString(strings.Join(row, "\t"))
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
}

func trimTrailingEmpty(cells []string) []string {
	for len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}
