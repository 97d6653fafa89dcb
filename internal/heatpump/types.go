package heatpump

import "fmt"

// Model is an integer enum of the known heat pump performance classes.
type Model int

const (
	ModelUnknown Model = iota
	ModelMidPerf
	ModelAdvPerf
	ModelFuture
)

// Models lists every valid model in a stable order.
var Models = []Model{ModelMidPerf, ModelAdvPerf, ModelFuture}

func (m Model) Valid() bool {
	return m == ModelMidPerf || m == ModelAdvPerf || m == ModelFuture
}

func (m Model) String() string {
	switch m {
	case ModelMidPerf:
		return "midperfhp"
	case ModelAdvPerf:
		return "advperfhp"
	case ModelFuture:
		return "futurehp"
	default:
		return "unknown"
	}
}

// Description is the human readable label used in validation messages.
func (m Model) Description() string {
	switch m {
	case ModelMidPerf:
		return "mid-performance cold climate heat pump"
	case ModelAdvPerf:
		return "advanced performance cold climate heat pump"
	case ModelFuture:
		return "future performance heat pump"
	default:
		return "unknown"
	}
}

func ParseModel(s string) (Model, error) {
	switch s {
	case "midperfhp":
		return ModelMidPerf, nil
	case "advperfhp":
		return ModelAdvPerf, nil
	case "futurehp":
		return ModelFuture, nil
	default:
		return ModelUnknown, fmt.Errorf("%w: %q", ErrInvalidModel, s)
	}
}

// Point is the heat pump operating state at one outdoor temperature.
type Point struct {
	COP           float64
	CapacityRatio float64
	AuxFraction   float64
}
