package datasource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Agrid-Dev/hpelec/internal/dataset"
)

// DirTemperatureSource reads temps_pumas_{state}_{year}.csv snapshots from
// a local directory.
type DirTemperatureSource struct {
	Dir string
}

func TemperatureFileName(state string, year int) string {
	return fmt.Sprintf("temps_pumas_%s_%d.csv", state, year)
}

func (s DirTemperatureSource) Temperatures(_ context.Context, state string, year int) (*dataset.Table, error) {
	path := filepath.Join(s.Dir, TemperatureFileName(state, year))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open temperatures: %w", err)
	}
	defer f.Close()

	t, err := dataset.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return t, nil
}
