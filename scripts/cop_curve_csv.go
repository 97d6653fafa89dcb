package main

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"

	"github.com/Agrid-Dev/hpelec/internal/heatpump"
)

// WriteCurves sweeps outdoor temperatures and writes, per model, the
// unblended COP and capacity ratio next to the blended COP.
func WriteCurves(filename string, from, to, step float64) error {
	table := heatpump.DefaultTable()

	var temps []float64
	for t := from; t <= to; t += step {
		temps = append(temps, t)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"TempC"}
	for _, m := range heatpump.Models {
		header = append(header, m.String()+"_cop_base", m.String()+"_cr_base", m.String()+"_cop")
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	cols := make([][]float64, 0, 3*len(heatpump.Models))
	for _, m := range heatpump.Models {
		p, err := table.Lookup(m)
		if err != nil {
			return err
		}
		copBase, crBase := heatpump.Curve(temps, p)
		blended, err := table.COP(temps, m)
		if err != nil {
			return err
		}
		cols = append(cols, copBase, crBase, blended)
	}

	for i, t := range temps {
		record := []string{fmt.Sprintf("%.2f", t)}
		for _, c := range cols {
			record = append(record, fmt.Sprintf("%.4f", c[i]))
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %v", err)
		}
	}
	return nil
}

func main() {
	if err := WriteCurves("cop_curves.csv", -35, 25, 0.5); err != nil {
		log.Fatal(err)
	}
}
