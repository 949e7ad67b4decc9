package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sarchlab/chainsim/metrics"
	"github.com/sarchlab/chainsim/monitoring"
	"github.com/sarchlab/chainsim/sim/simulation"
	"github.com/sarchlab/chainsim/sim/timing"
)

func (a *app) newRunCommand() *cobra.Command {
	var asJSON bool

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation and print the occupancy report.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := a.setup()
			if err != nil {
				return err
			}

			params, err := cfg.Simulation()
			if err != nil {
				return err
			}

			collector := metrics.NewCollector()

			b := simulation.MakeBuilder().
				WithConfig(params).
				WithClock(timing.NewWallClock(cfg.TimeUnit)).
				WithLogger(logger).
				WithHook(simulation.NewLogHook(logger)).
				WithHook(collector)
			if cfg.Seed != 0 {
				b = b.WithSeed(cfg.Seed)
			}

			s, err := b.Build("ChainSim")
			if err != nil {
				return err
			}

			var m *monitoring.Monitor
			if cfg.Monitor.Enabled {
				m = monitoring.NewMonitor().
					WithLogger(logger).
					WithPortNumber(cfg.Monitor.Port).
					WithBrowser(cfg.Monitor.OpenBrowser).
					WithCollector(collector)
				m.RegisterSimulation(s)

				if _, err := m.StartServer(); err != nil {
					return err
				}

				defer stopMonitor(m, logger)
			}

			result, err := s.Run(cmd.Context())
			if m != nil {
				m.CompleteSimulation(s)
			}

			if err != nil {
				return err
			}

			return printResult(cmd.OutOrStdout(), result, asJSON)
		},
	}

	flags := runCmd.Flags()
	flags.Int("buffer-size", 4, "maximum number of processes per chain")
	flags.Int("processes", 200, "number of processes to generate")
	flags.Int("min-arrival", 2, "minimum arrival interval, inclusive")
	flags.Int("max-arrival", 5, "maximum arrival interval, exclusive")
	flags.Int("min-service", 2, "minimum service time, inclusive")
	flags.Int("max-service", 5, "maximum service time, exclusive")
	flags.Duration("time-unit", time.Millisecond, "length of one time unit")
	flags.String("drain-order", "fifo", "order within a chain, fifo or lifo")
	flags.String("arrival-policy", "tail",
		"chain that receives arrivals, tail or head")
	flags.Bool("monitor", false, "serve the monitoring API while running")
	flags.Int("monitor-port", 0, "monitoring port, 0 for a random one")
	flags.Bool("open-browser", false, "open the monitoring page")
	flags.BoolVar(&asJSON, "json", false, "print the result as JSON")

	a.bind(flags, "bufferSize", "buffer-size")
	a.bind(flags, "processCount", "processes")
	a.bind(flags, "minArrivalInterval", "min-arrival")
	a.bind(flags, "maxArrivalInterval", "max-arrival")
	a.bind(flags, "minServiceTime", "min-service")
	a.bind(flags, "maxServiceTime", "max-service")
	a.bind(flags, "timeUnit", "time-unit")
	a.bind(flags, "drainOrder", "drain-order")
	a.bind(flags, "arrivalPolicy", "arrival-policy")
	a.bind(flags, "monitor.enabled", "monitor")
	a.bind(flags, "monitor.port", "monitor-port")
	a.bind(flags, "monitor.openBrowser", "open-browser")

	return runCmd
}

func stopMonitor(m *monitoring.Monitor, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.StopServer(ctx); err != nil {
		logger.Warn("cannot stop monitoring server", zap.Error(err))
	}
}
