package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"actinvoting/adapters/excel"
	"actinvoting/internal/config"
	"actinvoting/internal/container"
	"actinvoting/internal/scenario"
)

// globalFlags override the environment configuration
type globalFlags struct {
	logLevel string
	jobs     int
	force    bool
	store    string
	dsn      string
}

func main() {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:   "actinvoting",
		Short: "Asymptotic probabilities that a candidate wins an election with random voters",
		Long: `actinvoting computes the probability that a candidate is the Condorcet
winner (or an alpha-winner) when n voters draw their rankings from a culture.

A scenario is a YAML or JSON file, or the name of a built-in scenario
(see "actinvoting scenarios").`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "ERROR, WARN, INFO, DEBUG or TRACE (default from LOG_LEVEL)")
	rootCmd.PersistentFlags().IntVar(&flags.jobs, "jobs", 0, "Parallel evaluations (default from ACTINVOTING_JOBS)")
	rootCmd.PersistentFlags().BoolVar(&flags.force, "force", false, "Recompute series even when they are cached")
	rootCmd.PersistentFlags().StringVar(&flags.store, "store", "", "Result store driver: sqlite, postgres or none")
	rootCmd.PersistentFlags().StringVar(&flags.dsn, "dsn", "", "Result store data source name")

	rootCmd.AddCommand(
		newScenariosCmd(),
		newValidateCmd(&flags),
		newEquivalentCmd(&flags),
		newExactCmd(&flags),
		newAsymptoticsCmd(&flags),
		newMonteCarloCmd(&flags),
		newReportCmd(&flags),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration, applies the flags and opens the store.
func setup(ctx context.Context, flags *globalFlags) (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if flags.jobs > 0 {
		cfg.Batch.Jobs = flags.jobs
	}
	if flags.store != "" {
		cfg.Store.Driver = flags.store
	}
	if flags.dsn != "" {
		cfg.Store.DSN = flags.dsn
	}

	c, err := container.New(cfg)
	if err != nil {
		return nil, err
	}
	c.Runner.ForceRecompute = flags.force
	if err := c.InitStore(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// loadScenario reads a scenario and the profile file it may reference,
// relative to the scenario file.
func loadScenario(c *container.Container, arg string, ns []int) (*scenario.Scenario, error) {
	sc, err := scenario.Load(arg)
	if err != nil {
		return nil, err
	}
	if file := sc.Culture.File; file != "" {
		if !filepath.IsAbs(file) {
			file = filepath.Join(filepath.Dir(arg), file)
		}
		rankings, weights, err := excel.NewProfileReader(file, "", c.Logger.Named("excel")).Read()
		if err != nil {
			return nil, err
		}
		sc.Culture.Rankings, sc.Culture.Weights = rankings, weights
	}
	if len(ns) > 0 {
		sc.Ns = ns
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

func newScenariosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List the built-in scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range scenario.Builtins() {
				sc, err := scenario.LoadBuiltin(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s, candidate %d, ns %v\n",
					name, sc.Culture.Kind, sc.Candidate, sc.Ns)
			}
			return nil
		},
	}
}
