package cmd

import (
	"math/rand"

	"github.com/jaswdr/faker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sarchlab/chainsim/bench"
)

func (a *app) newBenchCommand() *cobra.Command {
	var asJSON bool

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "Compare concurrent and sequential salary reductions.",
		Long: "`bench` generates random vacancies and times the average and " +
			"the maximum salary computed on a worker pool and in a loop.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := a.setup()
			if err != nil {
				return err
			}

			f := faker.New()
			if cfg.Seed != 0 {
				f = faker.NewWithSeed(rand.NewSource(int64(cfg.Seed)))
			}

			vacancies := bench.NewGenerator(f).Generate(cfg.Bench.Elements)

			c, err := bench.Run(cmd.Context(), vacancies, cfg.Bench.Workers)
			if err != nil {
				return err
			}

			logger.Debug("benchmark finished",
				zap.Uint64("average_salary", c.AverageSalary),
				zap.Uint64("max_salary", c.MaxSalary))

			return printResult(cmd.OutOrStdout(), c, asJSON)
		},
	}

	flags := benchCmd.Flags()
	flags.Int("elements", 10, "number of vacancies")
	flags.Int("workers", 4, "maximum number of concurrent workers")
	flags.BoolVar(&asJSON, "json", false, "print the comparison as JSON")

	a.bind(flags, "bench.elements", "elements")
	a.bind(flags, "bench.workers", "workers")

	return benchCmd
}
