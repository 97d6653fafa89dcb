package app

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Agrid-Dev/hpelec/internal/datasource"
	"github.com/Agrid-Dev/hpelec/internal/heatpump"
	"github.com/Agrid-Dev/hpelec/internal/output"
	"github.com/Agrid-Dev/hpelec/internal/profile"
)

// NewLogger builds the process logger from the log section.
func NewLogger(cfg LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.Format)
	}
}

// ParamsTable returns the configured heat pump parameter table, the
// built-in one unless a params file is set.
func (c Config) ParamsTable() (heatpump.Table, error) {
	if c.HeatPump.ParamsFile == "" {
		return heatpump.DefaultTable(), nil
	}
	return heatpump.LoadTableFile(c.HeatPump.ParamsFile)
}

// TemperatureSource picks the local snapshot directory when configured,
// the remote dataset store otherwise.
func (c Config) TemperatureSource(log *slog.Logger) profile.TemperatureSource {
	if c.Sources.TemperatureDir != "" {
		return datasource.DirTemperatureSource{Dir: c.Sources.TemperatureDir}
	}
	src := datasource.NewHTTPTemperatureSource(&http.Client{Timeout: c.Sources.Timeout}, c.Sources.TemperatureURL)
	src.Retries = c.Sources.Retries
	src.Backoff = c.Sources.RetryBackoff
	if log != nil {
		src.Log = log
	}
	return src
}

// NewGenerator wires the generator with file-backed sources and sink.
func (c Config) NewGenerator(log *slog.Logger, notifiers ...profile.Notifier) (*profile.Generator, error) {
	if log == nil {
		log = slog.Default()
	}
	params, err := c.ParamsTable()
	if err != nil {
		return nil, err
	}
	opts := []profile.Option{profile.WithLogger(log)}
	for _, n := range notifiers {
		opts = append(opts, profile.WithNotifier(n))
	}
	return profile.New(
		c.ProfileConfig(),
		params,
		c.TemperatureSource(log),
		datasource.NewCSVStockSource(c.Sources.StockDir, c.Profiles.BaseYear),
		output.FileSink{Dir: c.Profiles.OutputDir},
		opts...,
	)
}
