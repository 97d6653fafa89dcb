package profile

import (
	"context"

	"github.com/Agrid-Dev/hpelec/internal/dataset"
)

// TemperatureSource fetches the hourly outdoor temperatures (degC) of every
// puma in a state for one year.
type TemperatureSource interface {
	Temperatures(ctx context.Context, state string, year int) (*dataset.Table, error)
}

// StockSource returns the building stock scalars of a state's pumas.
type StockSource interface {
	Stock(ctx context.Context, state string, class BuildingClass) (map[string]PumaStock, error)
}

// Sink persists one state's profile under name and returns its location.
// A sink must never leave a partially written profile behind.
type Sink interface {
	WriteProfile(ctx context.Context, name string, t *dataset.Table) (string, error)
}

// Notifier observes a run. Calls may come from several goroutines.
type Notifier interface {
	StateDone(ctx context.Context, runID string, res StateResult)
	RunDone(ctx context.Context, rep Report)
}
