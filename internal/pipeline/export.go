// =============================================================================
// export.go - 結果の出力（XLSX / コンソール表）
// =============================================================================
//
// 実行結果の2つのテーブルを出力します。
//
//   - WriteXLSX:    "Media Tracker" / "Access Issues" の2シートを持つExcelファイル
//   - RenderTables: 標準出力への表形式の表示
//
// 列の順序と見出しは ArticleColumns / UnresolvedColumns に従う。
//
// =============================================================================
package pipeline

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/xuri/excelize/v2"
)

// シート名
const (
	SheetMatched    = "Media Tracker"
	SheetUnresolved = "Access Issues"
)

// tableSummaryWidth はコンソール表示での要約列の最大幅
const tableSummaryWidth = 60

// WriteXLSX は結果をExcelファイルに書き出す
func WriteXLSX(path string, res *Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetMatched); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetUnresolved); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	matched := make([][]string, 0, len(res.Matched))
	for _, r := range res.Matched {
		matched = append(matched, r.Row())
	}
	if err := writeSheet(f, SheetMatched, ArticleColumns, matched); err != nil {
		return err
	}

	unresolved := make([][]string, 0, len(res.Unresolved))
	for _, r := range res.Unresolved {
		unresolved = append(unresolved, r.Row())
	}
	if err := writeSheet(f, SheetUnresolved, UnresolvedColumns, unresolved); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]string) error {
	all := append([][]string{header}, rows...)
	for r, row := range all {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("%s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}

// RenderTables は結果を2つの表としてwに書き出す
func RenderTables(w io.Writer, res *Result) {
	fmt.Fprintf(w, "\nFound %d relevant articles\n", len(res.Matched))
	if len(res.Matched) > 0 {
		t := newResultTable(w, ArticleColumns)
		t.SetColumnConfigs([]table.ColumnConfig{
			{Name: "URL", WidthMax: tableSummaryWidth},
			{Name: "Named Entities", WidthMax: tableSummaryWidth / 2},
			{Name: "Summary", WidthMax: tableSummaryWidth, WidthMaxEnforcer: text.WrapSoft},
		})
		for _, r := range res.Matched {
			t.AppendRow(toRow(r.Row()))
		}
		t.Render()
	}

	fmt.Fprintf(w, "\n%d articles could not be accessed\n", len(res.Unresolved))
	if len(res.Unresolved) > 0 {
		t := newResultTable(w, UnresolvedColumns)
		for _, r := range res.Unresolved {
			t.AppendRow(toRow(r.Row()))
		}
		t.Render()
	}
}

func newResultTable(w io.Writer, header []string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(toRow(header))
	return t
}

func toRow(values []string) table.Row {
	row := make(table.Row, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}
