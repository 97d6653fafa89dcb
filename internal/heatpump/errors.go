package heatpump

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks an inconsistency in the parameter table.
	ErrConfiguration = errors.New("heat pump configuration error")
	ErrUnknownModel  = fmt.Errorf("%w: unknown heat pump model", ErrConfiguration)
	ErrInvalidModel  = errors.New("invalid heat pump model")
)
