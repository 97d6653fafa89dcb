package dataset

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestReadCSV(t *testing.T) {
	in := "puma_a,puma_b\n-10,1.5\n0,2\n20, 3.25\n"
	tbl, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if tbl.Rows() != 3 || len(tbl.Columns) != 2 {
		t.Fatalf("dims: rows=%d cols=%v", tbl.Rows(), tbl.Columns)
	}
	if got := tbl.Column(tbl.ColumnIndex("puma_b")); got[2] != 3.25 {
		t.Fatalf("puma_b=%v", got)
	}
	if tbl.ColumnIndex("puma_c") != -1 {
		t.Fatal("expected -1 for missing column")
	}
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"header only", "puma_a\n"},
		{"not a number", "puma_a\nwarm\n"},
		{"ragged", "puma_a,puma_b\n1\n"},
		{"duplicate column", "puma_a,puma_a\n1,2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadCSV(strings.NewReader(tt.in)); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	if _, err := ReadCSV(strings.NewReader("")); !errors.Is(err, ErrEmptyTable) {
		t.Fatalf("expected ErrEmptyTable, got %v", err)
	}
}

func TestWriteCSV(t *testing.T) {
	tbl := New([]string{"p1", "p2"}, 2)
	tbl.SetColumn(0, []float64{0, 0.1})
	tbl.SetColumn(1, []float64{12.5, 1e-7})

	var buf bytes.Buffer
	if err := tbl.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "p1,p2\n0,12.5\n0.1,1e-07\n"
	if buf.String() != want {
		t.Fatalf("got %q want %q", buf.String(), want)
	}
}

func TestNewCopiesColumns(t *testing.T) {
	cols := []string{"a", "b"}
	tbl := New(cols, 1)
	cols[0] = "z"
	if tbl.Columns[0] != "a" {
		t.Fatal("New must not alias the caller's column slice")
	}
}
