package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Agrid-Dev/hpelec/cmd/app"
	httpctrl "github.com/Agrid-Dev/hpelec/internal/controllers/http"
	modbusctrl "github.com/Agrid-Dev/hpelec/internal/controllers/modbus"
	mqttctrl "github.com/Agrid-Dev/hpelec/internal/controllers/mqtt"
	"github.com/Agrid-Dev/hpelec/internal/heatpump"
	"github.com/Agrid-Dev/hpelec/internal/profile"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "hpelec",
		Short:         "Heat pump electrification load profiles from fossil heating demand",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file (.yaml/.yml/.json)")

	rootCmd.AddCommand(generateCmd(&configPath))
	rootCmd.AddCommand(copCmd(&configPath))
	rootCmd.AddCommand(serveCmd(&configPath))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		cancel()
		os.Exit(1)
	}
}

func load(configPath string) (app.Config, *slog.Logger, error) {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return app.Config{}, nil, err
	}
	log, err := app.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return app.Config{}, nil, err
	}
	return cfg, log, nil
}

func generateCmd(configPath *string) *cobra.Command {
	var (
		req       profile.Request
		noBar     bool
		outDir    string
		keepGoing bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write hourly heat pump electric load profiles, one CSV per state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := load(*configPath)
			if err != nil {
				return err
			}
			if outDir != "" {
				cfg.Profiles.OutputDir = outDir
			}
			if cmd.Flags().Changed("continue-on-error") {
				cfg.Profiles.ContinueOnError = keepGoing
			}

			def := cfg.ProfileConfig().DefaultRequest()
			if !cmd.Flags().Changed("year") {
				req.Year = def.Year
			}

			req.States = profile.NormalizeStates(req.States)

			var notifiers []profile.Notifier
			if !noBar {
				notifiers = append(notifiers, newProgressNotifier(progressTotal(req, cfg.Profiles.States), os.Stderr))
			}

			gen, err := cfg.NewGenerator(log, notifiers...)
			if err != nil {
				return err
			}
			rep, err := gen.Generate(cmd.Context(), req)
			printReport(cmd, rep)
			return err
		},
	}

	f := cmd.Flags()
	f.IntVar(&req.Year, "year", 0, "weather year (default: configured base year)")
	f.StringSliceVar(&req.States, "states", nil, "two-letter state codes (default: every configured state)")
	f.StringVar(&req.Class, "class", profile.ClassResidential.String(), "building class: res or com")
	f.StringVar(&req.Model, "model", heatpump.ModelAdvPerf.String(), "heat pump model: midperfhp, advperfhp or futurehp")
	f.StringVar(&outDir, "output-dir", "", "output directory (overrides profiles.output_dir)")
	f.BoolVar(&keepGoing, "continue-on-error", false, "keep processing states after a failure")
	f.BoolVar(&noBar, "no-progress", false, "disable the progress bar")
	return cmd
}

// progressTotal is the number of states a run will report on.
func progressTotal(req profile.Request, configured []string) int {
	if len(req.States) > 0 {
		return len(req.States)
	}
	return len(configured)
}

func printReport(cmd *cobra.Command, rep profile.Report) {
	out := cmd.OutOrStdout()
	for _, res := range rep.Results {
		switch {
		case res.Skipped:
			fmt.Fprintf(out, "%s\tskipped\n", res.State)
		case res.Err != nil:
			fmt.Fprintf(out, "%s\tfailed\t%v\n", res.State, res.Err)
		default:
			fmt.Fprintf(out, "%s\t%s\t%d pumas\n", res.State, res.Path, res.Pumas)
		}
	}
}

func copCmd(configPath *string) *cobra.Command {
	var (
		model string
		temps []float64
	)

	cmd := &cobra.Command{
		Use:   "cop",
		Short: "Print COP, capacity ratio and auxiliary fraction over outdoor temperatures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := load(*configPath)
			if err != nil {
				return err
			}
			tbl, err := cfg.ParamsTable()
			if err != nil {
				return err
			}
			m, err := heatpump.ParseModel(model)
			if err != nil {
				return err
			}
			if len(temps) == 0 {
				for t := -30.0; t <= 20; t += 5 {
					temps = append(temps, t)
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "temp_c,cop,capacity_ratio,aux_fraction")
			for _, t := range temps {
				pt, err := tbl.Evaluate(t, m)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%g,%.4f,%.4f,%.4f\n", t, pt.COP, pt.CapacityRatio, pt.AuxFraction)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", heatpump.ModelAdvPerf.String(), "heat pump model")
	cmd.Flags().Float64SliceVar(&temps, "temps", nil, "outdoor temperatures in degC (default: -30..20 step 5)")
	return cmd
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve generation and COP lookups over the enabled controllers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := load(*configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg app.Config, log *slog.Logger) error {
	ctrls := cfg.Controllers

	var notifiers []profile.Notifier
	var mq *mqttctrl.Controller
	if ctrls.MQTT.Enabled {
		var err error
		mq, err = mqttctrl.New(mqttctrl.Config{
			BrokerURL:     ctrls.MQTT.BrokerURL,
			ClientID:      ctrls.MQTT.ClientID,
			BaseTopic:     ctrls.MQTT.BaseTopic,
			QoS:           ctrls.MQTT.QoS,
			RetainResults: ctrls.MQTT.RetainResults,
			Username:      ctrls.MQTT.Username,
			Password:      ctrls.MQTT.Password,
		}, log.With(slog.String("controller", "mqtt")))
		if err != nil {
			return err
		}
		notifiers = append(notifiers, mq)
	}

	gen, err := cfg.NewGenerator(log, notifiers...)
	if err != nil {
		return err
	}
	params, err := cfg.ParamsTable()
	if err != nil {
		return err
	}

	var mb *modbusctrl.Controller
	if ctrls.Modbus.Enabled {
		m, err := heatpump.ParseModel(ctrls.Modbus.Model)
		if err != nil {
			return err
		}
		mb, err = modbusctrl.New(params, modbusctrl.Config{
			Addr:        ctrls.Modbus.Addr,
			UnitID:      ctrls.Modbus.UnitID,
			Temperature: ctrls.Modbus.Temperature,
			Model:       m,
		})
		if err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	if ctrls.HTTP.Enabled {
		srv := httpctrl.New(gen, params, ctrls.HTTP.Addr, log.With(slog.String("controller", "http")))
		g.Go(func() error {
			log.Info("http listening", slog.String("addr", ctrls.HTTP.Addr))
			return srv.Run(ctx)
		})
	}
	if mq != nil {
		g.Go(func() error {
			log.Info("mqtt connecting", slog.String("broker", ctrls.MQTT.BrokerURL))
			return mq.Run(ctx, gen)
		})
	}
	if mb != nil {
		g.Go(func() error {
			log.Info("modbus listening", slog.String("addr", ctrls.Modbus.Addr))
			return mb.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
