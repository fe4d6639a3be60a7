// Package report — выгрузка отчётов прослеживаемости в xlsx и загрузка прихода лотов из xlsx.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/batch-trace/internal/domain/errs"
	"github.com/Spok95/batch-trace/internal/domain/inventory"
	"github.com/Spok95/batch-trace/internal/domain/lineage"
	"github.com/Spok95/batch-trace/internal/domain/qty"
)

// ReceiptHeader — обязательные колонки файла прихода. Порядок в файле любой.
var ReceiptHeader = []string{"material", "lot_code", "quantity", "unit"}

// WriteTrace пишет прямую прослеживаемость изделия: шапка с изделием и варкой, ниже — сырьё.
func WriteTrace(w io.Writer, rep *lineage.Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	head := [][]any{
		{"serial_number", rep.Serial},
		{"unit_id", rep.UnitID},
		{"status", string(rep.Status)},
		{"weight", rep.Weight},
		{"run_id", rep.RunID},
		{"run_date", rep.RunDate},
		{"vat_number", rep.VatNumber},
		{"notes", rep.Notes},
	}
	row := 1
	for _, r := range head {
		if err := setRow(f, sheet, row, r); err != nil {
			return err
		}
		row++
	}

	row++ // пустая строка между шапкой и таблицей
	if err := setRow(f, sheet, row, []any{"usage_id", "lot_id", "material", "lot_code", "quantity", "unit"}); err != nil {
		return err
	}
	row++
	for _, ing := range rep.Ingredients {
		if err := setRow(f, sheet, row, []any{ing.UsageID, ing.LotID, ing.Material, ing.LotCode, ing.Quantity.InexactFloat64(), ing.Unit}); err != nil {
			return err
		}
		row++
	}
	return f.Write(w)
}

// WriteRecall — список изделий, затронутых лотом.
func WriteRecall(w io.Writer, lotID int64, units []lineage.UnitSummary) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := setRow(f, sheet, 1, []any{"lot_id", lotID}); err != nil {
		return err
	}
	if err := setRow(f, sheet, 3, []any{"run_id", "run_date", "unit_id", "serial_number", "status", "weight"}); err != nil {
		return err
	}
	for i, u := range units {
		if err := setRow(f, sheet, 4+i, []any{u.RunID, u.RunDate, u.UnitID, u.Serial, string(u.Status), u.Weight}); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// WriteReceiptTemplate — пустой файл прихода с заголовком.
func WriteReceiptTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	header := make([]any, 0, len(ReceiptHeader))
	for _, h := range ReceiptHeader {
		header = append(header, h)
	}
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	return f.Write(w)
}

// ReadReceipts читает приход с активного листа. Пустые строки пропускаются,
// ошибка в любой строке отменяет весь файл.
func ReadReceipts(r io.Reader) ([]inventory.Receipt, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, errs.Validation("file", "no header row")
	}

	col := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, h := range ReceiptHeader {
		if _, ok := col[h]; !ok {
			return nil, errs.Validation("file", "missing column "+h)
		}
	}

	var out []inventory.Receipt
	for i, cells := range rows[1:] {
		line := i + 2
		get := func(name string) string {
			if j := col[name]; j < len(cells) {
				return strings.TrimSpace(cells[j])
			}
			return ""
		}
		if isBlank(cells) {
			continue
		}

		q, err := qty.Parse(fmt.Sprintf("row %d: quantity", line), get("quantity"))
		if err != nil {
			return nil, err
		}
		rc, err := inventory.Receipt{
			Material: get("material"),
			LotCode:  get("lot_code"),
			Quantity: q,
			Unit:     get("unit"),
		}.Normalize()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		out = append(out, rc)
	}
	if len(out) == 0 {
		return nil, errs.Validation("file", "no receipts")
	}
	return out, nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
