package profile

import (
	"fmt"
	"time"

	"github.com/Agrid-Dev/hpelec/internal/heatpump"
)

// BuildingClass is an integer enum.
type BuildingClass int

const (
	ClassUnknown BuildingClass = iota
	ClassResidential
	ClassCommercial
)

func (c BuildingClass) Valid() bool {
	return c == ClassResidential || c == ClassCommercial
}

func (c BuildingClass) String() string {
	switch c {
	case ClassResidential:
		return "res"
	case ClassCommercial:
		return "com"
	default:
		return "unknown"
	}
}

func ParseBuildingClass(s string) (BuildingClass, error) {
	switch s {
	case "res":
		return ClassResidential, nil
	case "com":
		return ClassCommercial, nil
	default:
		return ClassUnknown, fmt.Errorf("%w: building class must be one of: res (residential), com (commercial); got %q",
			ErrValidation, s)
	}
}

// Request selects what to generate. Fields carry the caller's raw values
// and are validated by Generator.Generate.
type Request struct {
	Year   int
	States []string // empty means every configured state
	Class  string
	Model  string
}

// PumaStock holds the static building stock scalars of one puma.
type PumaStock struct {
	HeatingSlope   float64 // mmBtu per m2 per degC
	FloorArea      float64 // m2
	FossilFraction float64 // share of space heating served by fossil fuel
}

// StateResult describes the outcome of one state's generation.
type StateResult struct {
	State    string
	Path     string
	Pumas    int
	Steps    int
	Duration time.Duration
	Skipped  bool
	Err      error
}

// Report lists the state results of one run, in request order.
type Report struct {
	RunID   string
	Year    int
	Class   BuildingClass
	Model   heatpump.Model
	Results []StateResult
}

// Failed returns the results that ended in error.
func (r Report) Failed() []StateResult {
	var out []StateResult
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

type request struct {
	year   int
	states []string
	class  BuildingClass
	model  heatpump.Model
}
