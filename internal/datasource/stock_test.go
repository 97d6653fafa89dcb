package datasource

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Agrid-Dev/hpelec/internal/profile"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func stockDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, PumaDataFile,
		"puma,state,res_area_2019_m2,com_area_2019_m2,frac_ff_sh_res_2019,frac_ff_sh_com_2019\n"+
			"p1,VT,100,50,1.0,0.5\n"+
			"p2,VT,200,80,0.25,0.75\n"+
			"p3,NY,300,90,0.5,0.5\n")
	writeFile(t, dir, "puma_slopes_ff_res.csv",
		"puma,state,htg_slope_res_mmbtu_m2_degC\n"+
			"p1,VT,1.0\n"+
			"p2,VT,0.5\n"+
			"p3,NY,0.75\n")
	return dir
}

func TestCSVStockSource(t *testing.T) {
	src := NewCSVStockSource(stockDir(t), 2019)

	got, err := src.Stock(context.Background(), "VT", profile.ClassResidential)
	if err != nil {
		t.Fatalf("Stock: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 pumas, got %v", got)
	}
	want := profile.PumaStock{HeatingSlope: 0.5, FloorArea: 200, FossilFraction: 0.25}
	if got["p2"] != want {
		t.Fatalf("p2=%+v want %+v", got["p2"], want)
	}
	if _, ok := got["p3"]; ok {
		t.Fatal("NY puma leaked into VT")
	}
}

func TestCSVStockSourceMissingClassFile(t *testing.T) {
	src := NewCSVStockSource(stockDir(t), 2019)
	if _, err := src.Stock(context.Background(), "VT", profile.ClassCommercial); err == nil {
		t.Fatal("expected error for missing commercial slopes file")
	}
}

func TestCSVStockSourceUnknownState(t *testing.T) {
	src := NewCSVStockSource(stockDir(t), 2019)
	if _, err := src.Stock(context.Background(), "TX", profile.ClassResidential); err == nil {
		t.Fatal("expected error for state without pumas")
	}
}

func TestCSVStockSourceWrongBaseYear(t *testing.T) {
	src := NewCSVStockSource(stockDir(t), 2018)
	if _, err := src.Stock(context.Background(), "VT", profile.ClassResidential); err == nil {
		t.Fatal("expected missing column error")
	}
}

func TestDirTemperatureSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, TemperatureFileName("VT", 2019), tempsCSV)

	src := DirTemperatureSource{Dir: dir}
	tbl, err := src.Temperatures(context.Background(), "VT", 2019)
	if err != nil {
		t.Fatalf("Temperatures: %v", err)
	}
	if tbl.Rows() != 3 {
		t.Fatalf("rows=%d", tbl.Rows())
	}
	if _, err := src.Temperatures(context.Background(), "VT", 2020); err == nil {
		t.Fatal("expected error for missing file")
	}
}
