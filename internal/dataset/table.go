// Package dataset holds the time step by puma tables exchanged between the
// data sources, the profile generator and the output sink.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var ErrEmptyTable = errors.New("empty table")

// Table is a dense numeric table: rows are time steps, columns are pumas.
type Table struct {
	Columns []string
	Data    *mat.Dense
}

// New allocates a zeroed table. rows and len(columns) must be positive.
func New(columns []string, rows int) *Table {
	cols := append([]string(nil), columns...)
	return &Table{Columns: cols, Data: mat.NewDense(rows, len(cols), nil)}
}

func (t *Table) Rows() int {
	r, _ := t.Data.Dims()
	return r
}

// ColumnIndex returns the position of name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column copies the values of column j.
func (t *Table) Column(j int) []float64 {
	return mat.Col(nil, j, t.Data)
}

func (t *Table) SetColumn(j int, values []float64) {
	t.Data.SetCol(j, values)
}

// ReadCSV decodes a header row of column names followed by numeric rows.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyTable
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) == 0 {
		return nil, ErrEmptyTable
	}
	cols := make([]string, len(header))
	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := seen[h]; dup {
			return nil, fmt.Errorf("duplicate column %q", h)
		}
		seen[h] = struct{}{}
		cols[i] = h
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv records: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyTable
	}

	values := make([]float64, 0, len(records)*len(cols))
	for i, rec := range records {
		for j, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				// +2: one for the header, one for 1-based lines
				return nil, fmt.Errorf("line %d column %q: invalid value %q", i+2, cols[j], field)
			}
			values = append(values, v)
		}
	}
	return &Table{Columns: cols, Data: mat.NewDense(len(records), len(cols), values)}, nil
}

// WriteCSV encodes the table with a header row and no index column. Values
// use the shortest representation that round-trips, so output is stable.
func (t *Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	rows, cols := t.Data.Dims()
	record := make([]string, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			record[j] = strconv.FormatFloat(t.Data.At(i, j), 'g', -1, 64)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
