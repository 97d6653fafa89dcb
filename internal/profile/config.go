package profile

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/Agrid-Dev/hpelec/internal/heatpump"
)

// Config carries the constants of a generation run. It is copied on
// construction and never mutated afterwards.
type Config struct {
	States    []string
	YearFirst int
	YearLast  int
	BaseYear  int // reference year of the building stock tables

	ReferenceTempRes float64 // degC
	ReferenceTempCom float64 // degC

	ConvMMBtuToKWh     float64
	ConvKWToMW         float64
	BaselineEfficiency float64 // efficiency of the replaced fossil equipment

	Workers         int
	ContinueOnError bool
}

// ContiguousStates are the 48 contiguous states plus DC.
var ContiguousStates = []string{
	"AL", "AR", "AZ", "CA", "CO", "CT", "DC", "DE", "FL", "GA",
	"IA", "ID", "IL", "IN", "KS", "KY", "LA", "MA", "MD", "ME",
	"MI", "MN", "MO", "MS", "MT", "NC", "ND", "NE", "NH", "NJ",
	"NM", "NV", "NY", "OH", "OK", "OR", "PA", "RI", "SC", "SD",
	"TN", "TX", "UT", "VA", "VT", "WA", "WI", "WV", "WY",
}

func DefaultConfig() Config {
	return Config{
		States:             slices.Clone(ContiguousStates),
		YearFirst:          2008,
		YearLast:           2021,
		BaseYear:           2019,
		ReferenceTempRes:   15,
		ReferenceTempCom:   14,
		ConvMMBtuToKWh:     293.0711,
		ConvKWToMW:         0.001,
		BaselineEfficiency: 0.83,
		Workers:            4,
	}
}

func (c Config) Validate() error {
	if len(c.States) == 0 {
		return fmt.Errorf("%w: state list is empty", ErrInvalidConfig)
	}
	if c.YearFirst > c.YearLast {
		return fmt.Errorf("%w: year range %d-%d is empty", ErrInvalidConfig, c.YearFirst, c.YearLast)
	}
	if c.BaseYear <= 0 {
		return fmt.Errorf("%w: base year must be positive", ErrInvalidConfig)
	}
	if !finite(c.ReferenceTempRes) || !finite(c.ReferenceTempCom) {
		return fmt.Errorf("%w: reference temperatures must be finite (res %g, com %g)",
			ErrInvalidConfig, c.ReferenceTempRes, c.ReferenceTempCom)
	}
	if !positive(c.ConvMMBtuToKWh) || !positive(c.ConvKWToMW) {
		return fmt.Errorf("%w: conversion factors must be positive", ErrInvalidConfig)
	}
	if !positive(c.BaselineEfficiency) {
		return fmt.Errorf("%w: baseline efficiency must be positive", ErrInvalidConfig)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1", ErrInvalidConfig)
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func positive(v float64) bool { return finite(v) && v > 0 }

// NormalizeStates upper-cases and trims state codes, dropping blanks and
// repeats while keeping first-seen order.
func NormalizeStates(states []string) []string {
	out := make([]string, 0, len(states))
	for _, s := range states {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || slices.Contains(out, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (c Config) ReferenceTemperature(class BuildingClass) float64 {
	if class == ClassCommercial {
		return c.ReferenceTempCom
	}
	return c.ReferenceTempRes
}

// Multiplier is the static per-puma scale turning COP-weighted heating
// degrees into megawatts of electric load.
func (c Config) Multiplier(s PumaStock) float64 {
	return s.HeatingSlope * s.FloorArea * s.FossilFraction *
		(c.ConvMMBtuToKWh * c.ConvKWToMW) * c.BaselineEfficiency
}

// DefaultRequest is a residential, advanced heat pump request for the base
// year over every configured state.
func (c Config) DefaultRequest() Request {
	return Request{Year: c.BaseYear, Class: ClassResidential.String(), Model: heatpump.ModelAdvPerf.String()}
}

func (c Config) clone() Config {
	c.States = slices.Clone(c.States)
	return c
}
