// Package export serializes a dataset view for download.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hussaintmg/Population-Weather-App/internal/dataset"
	"github.com/hussaintmg/Population-Weather-App/internal/utils"
)

// Timestamps are written in UTC. A primary timestamp keeps its source form
// so the loader reads it back; other timestamps use TimeLayout.
const (
	TimeLayout        = "2006-01-02 15:04:05"
	PrimaryTimeLayout = "2006-01-02:15"
)

// Format is a download format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" or "xlsx" in any case. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q (want csv or xlsx)", s)
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Encode serializes v in format f.
func Encode(v *dataset.View, f Format) ([]byte, error) {
	switch f {
	case FormatCSV:
		return CSV(v)
	case FormatXLSX:
		return XLSX(v)
	}
	return nil, fmt.Errorf("unsupported export format %q", f)
}

// CSV renders v as comma-separated text: a header in schema order followed
// by one line per row in view order. The header is written even when v is
// empty.
func CSV(v *dataset.View) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCSV streams the CSV form of v to w.
func WriteCSV(w io.Writer, v *dataset.View) error {
	if v == nil {
		return fmt.Errorf("export: nil view")
	}
	cells, err := cellsOf(v)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(v.Schema().Names()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(cells))
	for i := 0; i < v.Len(); i++ {
		row := v.Row(i)
		for j, cell := range cells {
			rec[j] = cell(row)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// XLSX renders v as a single-sheet workbook with the same header and rows
// as CSV. Numbers are stored as numbers.
func XLSX(v *dataset.View) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("export: nil view")
	}
	cells, err := cellsOf(v)
	if err != nil {
		return nil, err
	}
	f := excelize.NewFile()
	defer f.Close()
	sheet := v.Schema().Name()
	if sheet == "" {
		sheet = "data"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return nil, fmt.Errorf("stream writer: %w", err)
	}

	cols := v.Schema().Columns()
	header := make([]any, len(cols))
	for j, c := range cols {
		header[j] = c.Name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	nums := make([]dataset.NumberColumn, len(cols))
	for j, c := range cols {
		if c.Type == dataset.Numeric {
			if nums[j], err = v.Dataset().Numbers(c.Name); err != nil {
				return nil, err
			}
		}
	}
	rec := make([]any, len(cols))
	for i := 0; i < v.Len(); i++ {
		row := v.Row(i)
		for j, c := range cols {
			if c.Type == dataset.Numeric {
				rec[j] = nums[j].At(row)
			} else {
				rec[j] = cells[j](row)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, rec); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("flush xlsx: %w", err)
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("encode xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes data to path atomically, creating parent directories.
func WriteFile(path string, data []byte) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return utils.SafeWriteFile(path, data)
}

// cellsOf returns one text formatter per schema column.
func cellsOf(v *dataset.View) ([]func(row int) string, error) {
	ds := v.Dataset()
	cols := v.Schema().Columns()
	out := make([]func(int) string, len(cols))
	for j, c := range cols {
		switch c.Type {
		case dataset.Categorical:
			col, err := ds.Strings(c.Name)
			if err != nil {
				return nil, err
			}
			out[j] = col.At
		case dataset.Numeric:
			col, err := ds.Numbers(c.Name)
			if err != nil {
				return nil, err
			}
			out[j] = func(row int) string { return strconv.FormatFloat(col.At(row), 'f', -1, 64) }
		case dataset.Timestamp:
			col, err := ds.Times(c.Name)
			if err != nil {
				return nil, err
			}
			layout := TimeLayout
			if c.Primary {
				layout = PrimaryTimeLayout
			}
			out[j] = func(row int) string {
				t, ok := col.At(row)
				if !ok {
					return ""
				}
				return t.UTC().Format(layout)
			}
		}
	}
	return out, nil
}
