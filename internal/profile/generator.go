package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Agrid-Dev/hpelec/internal/heatpump"
)

// Generator converts fossil space heating demand into heat pump electric
// load profiles, one output table per state.
type Generator struct {
	cfg       Config
	params    heatpump.Table
	temps     TemperatureSource
	stock     StockSource
	sink      Sink
	notifiers []Notifier
	log       *slog.Logger
	newRunID  func() string
}

type Option func(*Generator)

func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.log = l }
}

// WithNotifier adds an observer of state and run completion.
func WithNotifier(n Notifier) Option {
	return func(g *Generator) { g.notifiers = append(g.notifiers, n) }
}

func New(cfg Config, params heatpump.Table, temps TemperatureSource, stock StockSource, sink Sink, opts ...Option) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if temps == nil || stock == nil || sink == nil {
		return nil, errors.New("profile: temperature source, stock source and sink are required")
	}
	g := &Generator{
		cfg:      cfg.clone(),
		params:   params,
		temps:    temps,
		stock:    stock,
		sink:     sink,
		log:      slog.Default(),
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *Generator) Config() Config {
	return g.cfg.clone()
}

func (g *Generator) validate(req Request) (request, error) {
	if req.Year < g.cfg.YearFirst || req.Year > g.cfg.YearLast {
		return request{}, fmt.Errorf("%w: year must be among available temperature years: %d-%d; got %d",
			ErrValidation, g.cfg.YearFirst, g.cfg.YearLast, req.Year)
	}
	class, err := ParseBuildingClass(req.Class)
	if err != nil {
		return request{}, err
	}
	model, err := heatpump.ParseModel(req.Model)
	if err != nil {
		choices := make([]string, 0, len(heatpump.Models))
		for _, m := range heatpump.Models {
			choices = append(choices, fmt.Sprintf("%s (%s)", m, m.Description()))
		}
		return request{}, fmt.Errorf("%w: heat pump model must be one of: %s; got %q",
			ErrValidation, strings.Join(choices, ", "), req.Model)
	}

	if len(req.States) == 0 {
		return request{year: req.Year, states: g.cfg.States, class: class, model: model}, nil
	}
	states := NormalizeStates(req.States)
	if len(states) == 0 {
		return request{}, fmt.Errorf("%w: state list is blank", ErrValidation)
	}
	for _, s := range states {
		if !slices.Contains(g.cfg.States, s) {
			return request{}, fmt.Errorf("%w: unknown state %q", ErrValidation, s)
		}
	}
	return request{year: req.Year, states: states, class: class, model: model}, nil
}

// Generate validates req, then computes and writes one profile per state.
// The returned error joins every state failure; the report always lists
// every requested state.
func (g *Generator) Generate(ctx context.Context, req Request) (Report, error) {
	r, err := g.validate(req)
	if err != nil {
		return Report{}, err
	}

	rep := Report{
		RunID:   g.newRunID(),
		Year:    r.year,
		Class:   r.class,
		Model:   r.model,
		Results: make([]StateResult, len(r.states)),
	}
	log := g.log.With(slog.String("run_id", rep.RunID))
	log.InfoContext(ctx, "generation started",
		slog.Int("year", r.year),
		slog.String("building_class", r.class.String()),
		slog.String("hp_model", r.model.String()),
		slog.Int("states", len(r.states)))

	var stop atomic.Bool
	var eg errgroup.Group
	eg.SetLimit(g.cfg.Workers)
	for i, state := range r.states {
		if stop.Load() || ctx.Err() != nil {
			rep.Results[i] = StateResult{State: state, Skipped: true}
			continue
		}
		eg.Go(func() error {
			if stop.Load() || ctx.Err() != nil {
				rep.Results[i] = StateResult{State: state, Skipped: true}
				return nil
			}
			res := g.runState(ctx, log, r, state)
			rep.Results[i] = res
			if res.Err != nil && !g.cfg.ContinueOnError {
				stop.Store(true)
			}
			for _, n := range g.notifiers {
				n.StateDone(ctx, rep.RunID, res)
			}
			return nil
		})
	}
	_ = eg.Wait()

	var errs []error
	for _, res := range rep.Results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}

	for _, n := range g.notifiers {
		n.RunDone(ctx, rep)
	}
	log.InfoContext(ctx, "generation finished",
		slog.Int("states", len(rep.Results)),
		slog.Int("failed", len(rep.Failed())))
	return rep, errors.Join(errs...)
}

func (g *Generator) runState(ctx context.Context, log *slog.Logger, r request, state string) StateResult {
	start := time.Now()
	res := StateResult{State: state}
	log = log.With(slog.String("state", state))
	log.DebugContext(ctx, "state started")

	fail := func(err error) StateResult {
		res.Err = fmt.Errorf("state %s: %w", state, err)
		res.Duration = time.Since(start)
		log.ErrorContext(ctx, "state failed", slog.Any("error", err))
		return res
	}

	temps, err := g.temps.Temperatures(ctx, state, r.year)
	if err != nil {
		return fail(fmt.Errorf("%w: fetch temperatures: %w", ErrDataAccess, err))
	}
	stock, err := g.stock.Stock(ctx, state, r.class)
	if err != nil {
		return fail(fmt.Errorf("%w: load building stock: %w", ErrDataAccess, err))
	}

	load, err := ComputeLoad(g.cfg, g.params, temps, stock, r.class, r.model)
	if err != nil {
		return fail(err)
	}

	path, err := g.sink.WriteProfile(ctx, FileName(r.class, state, r.year, r.model), load)
	if err != nil {
		return fail(fmt.Errorf("write profile: %w", err))
	}

	res.Path = path
	res.Pumas = len(load.Columns)
	res.Steps = load.Rows()
	res.Duration = time.Since(start)
	log.InfoContext(ctx, "state done",
		slog.String("path", path),
		slog.Int("pumas", res.Pumas),
		slog.Int("steps", res.Steps),
		slog.Duration("duration", res.Duration))
	return res
}

// DefaultRequest returns the configured default request.
func (g *Generator) DefaultRequest() Request {
	return g.cfg.DefaultRequest()
}
