package profile

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/Agrid-Dev/hpelec/internal/dataset"
	"github.com/Agrid-Dev/hpelec/internal/heatpump"
)

// FileName is the output artifact name of one (class, state, year, model).
func FileName(class BuildingClass, state string, year int, model heatpump.Model) string {
	return fmt.Sprintf("elec_htg_ff2hp_%s_%s_%d_%s_mw.csv", class, state, year, model)
}

// HeatingDegrees is the reference temperature deficit, zero at or above
// the reference.
func HeatingDegrees(refTemp, temp float64) float64 {
	return math.Max(refTemp-temp, 0)
}

// ComputeLoad turns a state's temperature table into electric heat pump
// load in MW. Each puma column is independent of the others.
func ComputeLoad(cfg Config, params heatpump.Table, temps *dataset.Table, stock map[string]PumaStock,
	class BuildingClass, model heatpump.Model) (*dataset.Table, error) {
	if temps == nil || temps.Data == nil {
		return nil, fmt.Errorf("%w: empty temperature table", ErrDataAccess)
	}
	rows, cols := temps.Data.Dims()
	if rows == 0 || cols != len(temps.Columns) {
		return nil, fmt.Errorf("%w: temperature table has %d rows, %d values per row for %d pumas",
			ErrDataAccess, rows, cols, len(temps.Columns))
	}
	ref := cfg.ReferenceTemperature(class)

	degrees := mat.NewDense(rows, cols, nil)
	degrees.Apply(func(_, _ int, v float64) float64 {
		return HeatingDegrees(ref, v)
	}, temps.Data)

	out := dataset.New(temps.Columns, rows)
	factor := make([]float64, rows)
	for j, puma := range temps.Columns {
		s, ok := stock[puma]
		if !ok {
			return nil, fmt.Errorf("%w: no building stock data for puma %s", ErrDataAccess, puma)
		}
		cop, err := params.COP(temps.Column(j), model)
		if err != nil {
			return nil, err
		}
		for i, v := range cop {
			factor[i] = 1 / v
		}
		load := mat.Col(nil, j, degrees)
		floats.Mul(load, factor)
		floats.Scale(cfg.Multiplier(s), load)
		out.SetColumn(j, load)
	}
	return out, nil
}
