// Package cmd provides the command-line interface for chainsim.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
	"go.uber.org/zap"

	"github.com/sarchlab/chainsim/config"
	"github.com/sarchlab/chainsim/logging"
)

type app struct {
	loader  *config.Loader
	cfgFile string
}

// NewRootCommand creates the command tree. Every call starts from a fresh
// configuration loader.
func NewRootCommand() *cobra.Command {
	a := &app{loader: config.NewLoader()}

	rootCmd := &cobra.Command{
		Use:   "chainsim",
		Short: "Simulates a single server fed through a chain-buffered queue.",
		Long: `chainsim runs a process generator and a single server ` +
			`concurrently. Arriving processes are grouped into chains of ` +
			`bounded size, and the server takes whole chains out of the ` +
			`queue. The run reports how many chains were buffered on ` +
			`average and at peak.`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "YAML configuration file")
	flags.String("log-level", "info", "debug, info, warn or error")
	flags.String("log-format", logging.FormatConsole, "console or json")
	flags.Uint64("seed", 0, "random seed, 0 for a time-based seed")
	a.bind(flags, "logLevel", "log-level")
	a.bind(flags, "logFormat", "log-format")
	a.bind(flags, "seed", "seed")

	rootCmd.AddCommand(a.newRunCommand())
	rootCmd.AddCommand(a.newBenchCommand())

	return rootCmd
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM)

	err := NewRootCommand().ExecuteContext(ctx)
	stop()

	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func (a *app) bind(flags *pflag.FlagSet, key, flag string) {
	if err := a.loader.Viper().BindPFlag(key, flags.Lookup(flag)); err != nil {
		panic(err)
	}
}

func (a *app) setup() (*config.Config, *zap.Logger, error) {
	cfg, err := a.loader.Load(a.cfgFile)
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}

	logging.RegisterSync(logger)

	return cfg, logger, nil
}

func printResult(w io.Writer, v fmt.Stringer, asJSON bool) error {
	if !asJSON {
		_, err := fmt.Fprintln(w, v)
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
