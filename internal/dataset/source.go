package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// recordReader yields raw rows, header first. Read returns io.EOF after
// the last row.
type recordReader interface {
	Read() ([]string, error)
	Close() error
}

// sourceReader opens a raw source of one file format.
type sourceReader interface {
	CanRead(sourceID string) bool
	Open(r io.Reader, opt LoadOptions) (recordReader, error)
}

var readers []sourceReader

// registerReader adds a format. Readers are tried in registration order
// and the last one acts as the fallback.
func registerReader(r sourceReader) {
	readers = append(readers, r)
}

func init() {
	registerReader(xlsxReader{})
	registerReader(delimitedReader{})
}

func readerFor(sourceID string) sourceReader {
	for _, r := range readers {
		if r.CanRead(sourceID) {
			return r
		}
	}
	return delimitedReader{}
}

type delimitedReader struct{}

func (delimitedReader) CanRead(sourceID string) bool {
	name := strings.ToLower(sourceID)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv") || strings.HasSuffix(name, ".txt")
}

func (delimitedReader) Open(r io.Reader, opt LoadOptions) (recordReader, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.Comma = opt.delimiter()
	return csvRecords{cr}, nil
}

type csvRecords struct{ r *csv.Reader }

func (c csvRecords) Read() ([]string, error) { return c.r.Read() }
func (csvRecords) Close() error              { return nil }

type xlsxReader struct{}

func (xlsxReader) CanRead(sourceID string) bool {
	return strings.HasSuffix(strings.ToLower(sourceID), ".xlsx")
}

func (xlsxReader) Open(r io.Reader, opt LoadOptions) (recordReader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	sheet := opt.Sheet
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			_ = f.Close()
			return nil, fmt.Errorf("open xlsx: workbook has no sheets")
		}
		sheet = list[0]
	}
	rows, err := f.Rows(sheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open sheet %q: %w", sheet, err)
	}
	return &xlsxRecords{f: f, rows: rows}, nil
}

type xlsxRecords struct {
	f    *excelize.File
	rows *excelize.Rows
}

func (x *xlsxRecords) Read() ([]string, error) {
	if !x.rows.Next() {
		if err := x.rows.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return x.rows.Columns()
}

func (x *xlsxRecords) Close() error {
	err := x.rows.Close()
	if cerr := x.f.Close(); err == nil {
		err = cerr
	}
	return err
}
