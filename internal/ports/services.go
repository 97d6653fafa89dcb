package ports

import (
	"context"

	"github.com/Agrid-Dev/hpelec/internal/heatpump"
	"github.com/Agrid-Dev/hpelec/internal/profile"
)

// ProfileService is the control-plane port used by controllers (HTTP/MQTT/etc).
type ProfileService interface {
	Generate(ctx context.Context, req profile.Request) (profile.Report, error)
	DefaultRequest() profile.Request
}

// COPService evaluates heat pump models. heatpump.Table implements it.
type COPService interface {
	COP(temps []float64, m heatpump.Model) ([]float64, error)
	Evaluate(tempC float64, m heatpump.Model) (heatpump.Point, error)
}
