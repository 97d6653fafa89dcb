package datasource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/Agrid-Dev/hpelec/internal/profile"
)

const PumaDataFile = "puma_data.csv"

func SlopesFileName(class profile.BuildingClass) string {
	return fmt.Sprintf("puma_slopes_ff_%s.csv", class)
}

// CSVStockSource joins the puma metadata table with the per-class heating
// slope table. Parsed tables are cached for the lifetime of the source.
type CSVStockSource struct {
	Dir      string
	BaseYear int

	mu     sync.Mutex
	data   []row
	slopes map[profile.BuildingClass][]row
}

func NewCSVStockSource(dir string, baseYear int) *CSVStockSource {
	return &CSVStockSource{Dir: dir, BaseYear: baseYear, slopes: map[profile.BuildingClass][]row{}}
}

type row struct {
	puma   string
	state  string
	fields map[string]string
}

func (s *CSVStockSource) Stock(_ context.Context, state string, class profile.BuildingClass) (map[string]profile.PumaStock, error) {
	if !class.Valid() {
		return nil, fmt.Errorf("invalid building class %q", class)
	}
	data, slopes, err := s.load(class)
	if err != nil {
		return nil, err
	}

	areaCol := fmt.Sprintf("%s_area_%d_m2", class, s.BaseYear)
	fracCol := fmt.Sprintf("frac_ff_sh_%s_%d", class, s.BaseYear)
	slopeCol := fmt.Sprintf("htg_slope_%s_mmbtu_m2_degC", class)

	slopeByPuma := make(map[string]float64)
	for _, r := range slopes {
		if r.state != state {
			continue
		}
		v, err := r.float(slopeCol)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", SlopesFileName(class), err)
		}
		slopeByPuma[r.puma] = v
	}

	out := make(map[string]profile.PumaStock)
	for _, r := range data {
		if r.state != state {
			continue
		}
		slope, ok := slopeByPuma[r.puma]
		if !ok {
			continue
		}
		area, err := r.float(areaCol)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", PumaDataFile, err)
		}
		frac, err := r.float(fracCol)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", PumaDataFile, err)
		}
		out[r.puma] = profile.PumaStock{HeatingSlope: slope, FloorArea: area, FossilFraction: frac}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no building stock data for state %s", state)
	}
	return out, nil
}

func (s *CSVStockSource) load(class profile.BuildingClass) ([]row, []row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		rows, err := readRows(filepath.Join(s.Dir, PumaDataFile))
		if err != nil {
			return nil, nil, err
		}
		s.data = rows
	}
	if s.slopes == nil {
		s.slopes = map[profile.BuildingClass][]row{}
	}
	slopes, ok := s.slopes[class]
	if !ok {
		rows, err := readRows(filepath.Join(s.Dir, SlopesFileName(class)))
		if err != nil {
			return nil, nil, err
		}
		s.slopes[class] = rows
		slopes = rows
	}
	return s.data, slopes, nil
}

func (r row) float(col string) (float64, error) {
	raw, ok := r.fields[col]
	if !ok {
		return 0, fmt.Errorf("missing column %q", col)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("puma %s column %q: invalid value %q", r.puma, col, raw)
	}
	return v, nil
}

// readRows reads a csv keyed by "puma" and "state" columns.
func readRows(path string) ([]row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stock table: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty file", path)
		}
		return nil, fmt.Errorf("%s: read csv header: %w", path, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	pumaIdx, stateIdx := -1, -1
	for i, h := range header {
		switch h {
		case "puma":
			pumaIdx = i
		case "state":
			stateIdx = i
		}
	}
	if pumaIdx < 0 || stateIdx < 0 {
		return nil, fmt.Errorf("%s: missing required csv header puma/state", path)
	}

	var rows []row
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: line %d: %w", path, line, err)
		}
		fields := make(map[string]string, len(header))
		for i, h := range header {
			fields[h] = strings.TrimSpace(record[i])
		}
		rows = append(rows, row{puma: fields["puma"], state: fields["state"], fields: fields})
	}
	return rows, nil
}
