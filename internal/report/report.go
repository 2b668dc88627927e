// Package report renders phase results as CSV, JSON, and XLSX artifacts.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Table is one named result grid. Rows hold pre-formatted cells.
type Table struct {
	Name    string     `json:"name"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// AddRow appends one row, formatting every cell with %v. Float64 cells are
// rendered with four decimals.
func (t *Table) AddRow(cells ...any) {
	row := make([]string, len(cells))
	for i, c := range cells {
		switch v := c.(type) {
		case float64:
			row[i] = fmt.Sprintf("%.4f", v)
		case string:
			row[i] = v
		default:
			row[i] = fmt.Sprintf("%v", v)
		}
	}
	t.Rows = append(t.Rows, row)
}

// WriteCSV writes each table to <dir>/<name>.csv with a header row.
func WriteCSV(dir string, tables []Table) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "report: create output dir")
	}
	for _, t := range tables {
		if err := writeOneCSV(filepath.Join(dir, t.Name+".csv"), t); err != nil {
			return err
		}
	}
	return nil
}

func writeOneCSV(path string, t Table) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		return eris.Wrapf(err, "report: write header %s", t.Name)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return eris.Wrapf(err, "report: write rows %s", t.Name)
	}
	w.Flush()
	return eris.Wrapf(w.Error(), "report: flush %s", t.Name)
}

// WriteJSON marshals the value with indentation to the given path.
// Non-finite floats are rendered as null.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "report: create output dir")
	}
	data, err := json.MarshalIndent(jsonReady(reflect.ValueOf(v)), "", "  ")
	if err != nil {
		return eris.Wrap(err, "report: marshal json")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	return nil
}

// WriteXLSX writes all tables into one workbook, one sheet per table. Sheet
// names are truncated to the 31-character xlsx limit.
func WriteXLSX(path string, tables []Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "report: create output dir")
	}

	f := xlsx.NewFile()
	for _, t := range tables {
		name := t.Name
		if len(name) > 31 {
			name = name[:31]
		}
		sheet, err := f.AddSheet(name)
		if err != nil {
			return eris.Wrapf(err, "report: add sheet %s", name)
		}

		header := sheet.AddRow()
		for _, col := range t.Columns {
			header.AddCell().SetString(col)
		}
		for _, row := range t.Rows {
			r := sheet.AddRow()
			for _, cell := range row {
				r.AddCell().SetString(cell)
			}
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save workbook %s", path)
	}
	return nil
}
