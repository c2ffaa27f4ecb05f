package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"actinvoting/adapters/excel"
	"actinvoting/domain/culture"
	"actinvoting/internal/batch"
	"actinvoting/internal/container"
	"actinvoting/internal/report"
	"actinvoting/internal/scenario"
)

// withContainer runs f with the wired dependencies and closes them after.
func withContainer(cmd *cobra.Command, flags *globalFlags, f func(ctx context.Context, c *container.Container) error) error {
	c, err := setup(cmd.Context(), flags)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Shutdown(context.Background()); err != nil {
			c.Logger.Warn("shutdown: %v", err)
		}
	}()
	return f(cmd.Context(), c)
}

func printSeries(w io.Writer, s *batch.Series) {
	cached := ""
	if s.Cached {
		cached = " (cached)"
	}
	fmt.Fprintf(w, "%s%s in %s\n", s.Key, cached, s.Elapsed)
	for i, n := range s.Ns {
		if s.StdErrs != nil {
			fmt.Fprintf(w, "  n=%-6d %.10g ± %.3g\n", n, s.Values[i], s.StdErrs[i])
		} else {
			fmt.Fprintf(w, "  n=%-6d %.10g\n", n, s.Values[i])
		}
	}
}

func newValidateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [scenario]",
		Short: "Check that the culture of a scenario is a probability distribution",
		Long: `Check, for every candidate, that the culture's probabilities of
high/low partitions sum to one and agree with its probabilities of rankings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, flags, func(ctx context.Context, c *container.Container) error {
				sc, err := loadScenario(c, args[0], nil)
				if err != nil {
					return err
				}
				cul, err := sc.BuildCulture()
				if err != nil {
					return err
				}
				if err := culture.Validate(cul); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", cul)
				return nil
			})
		},
	}
}

func newEquivalentCmd(flags *globalFlags) *cobra.Command {
	var ns []int

	cmd := &cobra.Command{
		Use:   "equivalent [scenario]",
		Short: "Compute the asymptotic equivalent of the winning probability",
		Long: `Locate the saddle point of the scenario, classify the adversaries and
evaluate the asymptotic equivalent for every number of voters.

Example: actinvoting equivalent ic3_mixed --ns 101,1001`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, flags, func(ctx context.Context, c *container.Container) error {
				sc, err := loadScenario(c, args[0], ns)
				if err != nil {
					return err
				}
				st, err := sc.Open(c.SessionOptions()...)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if err := describeStudy(out, st); err != nil {
					return err
				}
				series, err := c.Runner.Equivalents(ctx, st, sc.Ns)
				if err != nil {
					return err
				}
				printSeries(out, series)
				return nil
			})
		},
	}

	cmd.Flags().IntSliceVar(&ns, "ns", nil, "Numbers of voters (default from the scenario)")
	return cmd
}

func describeStudy(w io.Writer, st scenario.Study) error {
	tau, err := st.Tau()
	if err != nil {
		return err
	}
	zeta, err := st.Zeta()
	if err != nil {
		return err
	}
	cl, err := st.Classification()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "culture:        %s (ring %s)\n", st.Culture(), st.RingName())
	fmt.Fprintf(w, "candidate:      %d\n", st.Candidate())
	fmt.Fprintf(w, "tau:            %v\n", tau)
	fmt.Fprintf(w, "zeta:           %v\n", zeta)
	fmt.Fprintf(w, "subcritical:    %v\n", cl.Subcritical)
	fmt.Fprintf(w, "critical:       %v\n", cl.Critical)
	fmt.Fprintf(w, "supercritical:  %v\n", cl.Supercritical)
	if len(cl.Supercritical) > 0 {
		return nil
	}
	det, err := st.DetHessianOfKAtTau()
	if err != nil {
		return err
	}
	integral, err := st.GaussianIntegral()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "det hessian K:  %.10g\n", det)
	fmt.Fprintf(w, "integral:       %.10g (± %.2g)\n", integral.Value, integral.AbsError)
	return nil
}

func newExactCmd(flags *globalFlags) *cobra.Command {
	var ns []int
	var fraction bool

	cmd := &cobra.Command{
		Use:   "exact [scenario]",
		Short: "Compute the exact winning probability from the characteristic polynomial",
		Long: `Expand the characteristic polynomial to the power n, truncated at the
thresholds of the adversaries, and sum its coefficients.

With --fraction and the exact ring, the probabilities are printed as fractions.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, flags, func(ctx context.Context, c *container.Container) error {
				sc, err := loadScenario(c, args[0], ns)
				if err != nil {
					return err
				}
				st, err := sc.Open(c.SessionOptions()...)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if fraction {
					for _, n := range sc.Ns {
						p, err := st.ExactProbabilityString(n)
						if err != nil {
							return err
						}
						fmt.Fprintf(out, "n=%-6d %s\n", n, p)
					}
					return nil
				}
				series, err := c.Runner.Exact(ctx, st, sc.Ns)
				if err != nil {
					return err
				}
				printSeries(out, series)
				return nil
			})
		},
	}

	cmd.Flags().IntSliceVar(&ns, "ns", nil, "Numbers of voters (default from the scenario)")
	cmd.Flags().BoolVar(&fraction, "fraction", false, "Print the probabilities in the ring of the scenario, sequentially and uncached")
	return cmd
}

func newAsymptoticsCmd(flags *globalFlags) *cobra.Command {
	var ns []int

	cmd := &cobra.Command{
		Use:   "asymptotics [scenario]",
		Short: "Two-term expansion for the Condorcet winner under the Impartial Culture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, flags, func(ctx context.Context, c *container.Container) error {
				sc, err := loadScenario(c, args[0], ns)
				if err != nil {
					return err
				}
				st, err := sc.Open(c.SessionOptions()...)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, n := range sc.Ns {
					eq, err := st.Equivalent(n)
					if err != nil {
						return err
					}
					asym, err := st.Asymptotics(n)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "n=%-6d equivalent %.10g  asymptotics %.10g\n", n, eq, asym)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntSliceVar(&ns, "ns", nil, "Numbers of voters (default from the scenario)")
	return cmd
}

func newMonteCarloCmd(flags *globalFlags) *cobra.Command {
	var ns []int
	var samples int
	var seed uint64

	cmd := &cobra.Command{
		Use:   "montecarlo [scenario]",
		Short: "Estimate the winning probability by sampling profiles",
		Long: `Draw profiles of n voters from the culture and count those where the
candidate is an alpha-winner. Every n uses its own random stream derived
from the seed, so results do not depend on --jobs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, flags, func(ctx context.Context, c *container.Container) error {
				sc, err := loadScenario(c, args[0], ns)
				if err != nil {
					return err
				}
				if samples == 0 {
					samples = sc.Samples
				}
				if !cmd.Flags().Changed("seed") {
					seed = c.Config.Batch.Seed
				}
				series, err := runMonteCarlo(ctx, c, sc, samples, seed)
				if err != nil {
					return err
				}
				printSeries(cmd.OutOrStdout(), series)
				return nil
			})
		},
	}

	cmd.Flags().IntSliceVar(&ns, "ns", nil, "Numbers of voters (default from the scenario)")
	cmd.Flags().IntVar(&samples, "samples", 0, "Profiles per number of voters (default from the scenario)")
	cmd.Flags().Uint64Var(&seed, "seed", 42, "Random seed (default from ACTINVOTING_SEED)")
	return cmd
}

func runMonteCarlo(ctx context.Context, c *container.Container, sc *scenario.Scenario, samples int, seed uint64) (*batch.Series, error) {
	if samples < 1 {
		return nil, fmt.Errorf("scenario %q: no Monte Carlo samples requested", sc.Name)
	}
	cul, err := sc.BuildCulture()
	if err != nil {
		return nil, err
	}
	alpha, err := sc.AlphaRats()
	if err != nil {
		return nil, err
	}
	return c.Runner.MonteCarlo(ctx, cul, sc.Candidate, alpha, sc.Ns, samples, seed)
}

func newReportCmd(flags *globalFlags) *cobra.Command {
	var ns []int
	var exact bool
	var samples int
	var format string
	var output string
	var xlsx string

	cmd := &cobra.Command{
		Use:   "report [scenario]",
		Short: "Compare the equivalent with exact and Monte Carlo probabilities",
		Long: `Compute the equivalent, the exact probabilities (unless --exact=false)
and Monte Carlo estimates (with --samples), then render a table of relative
errors as markdown or HTML, optionally also as an .xlsx workbook.

Example: actinvoting report mallows3_last --samples 20000 --format html -o report.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "markdown" && format != "html" {
				return fmt.Errorf("unknown format %q, want markdown or html", format)
			}
			return withContainer(cmd, flags, func(ctx context.Context, c *container.Container) error {
				sc, err := loadScenario(c, args[0], ns)
				if err != nil {
					return err
				}
				st, err := sc.Open(c.SessionOptions()...)
				if err != nil {
					return err
				}
				r, err := buildReport(ctx, c, sc, st, exact, samples)
				if err != nil {
					return err
				}

				body := r.Markdown()
				if format == "html" {
					body = r.HTML()
				}
				if output == "" {
					_, err = cmd.OutOrStdout().Write(body)
				} else {
					err = os.WriteFile(output, body, 0o644)
				}
				if err != nil {
					return err
				}
				if xlsx != "" {
					if err := excel.SaveReport(xlsx, r); err != nil {
						return err
					}
					c.Logger.Info("workbook written to %s", xlsx)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntSliceVar(&ns, "ns", nil, "Numbers of voters (default from the scenario)")
	cmd.Flags().BoolVar(&exact, "exact", true, "Include the exact probabilities")
	cmd.Flags().IntVar(&samples, "samples", 0, "Include Monte Carlo estimates with this many profiles per n")
	cmd.Flags().StringVar(&format, "format", "markdown", "markdown or html")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVar(&xlsx, "xlsx", "", "Also write the report as an .xlsx workbook")
	return cmd
}

func buildReport(ctx context.Context, c *container.Container, sc *scenario.Scenario, st scenario.Study, exact bool, samples int) (*report.Report, error) {
	title := sc.Name
	if title == "" {
		title = st.Culture().String()
	}
	alpha := "1/2 (Condorcet)"
	if a := sc.Alpha; a != nil {
		alpha = strings.Join(a, ", ")
	}
	r := &report.Report{
		Title:    title,
		Subtitle: fmt.Sprintf("%s, candidate %d, alpha %s", st.Culture(), st.Candidate(), alpha),
		Ns:       sc.Ns,
	}

	eq, err := c.Runner.Equivalents(ctx, st, sc.Ns)
	if err != nil {
		return nil, err
	}
	r.Equivalent = eq.Values
	if exact {
		ex, err := c.Runner.Exact(ctx, st, sc.Ns)
		if err != nil {
			return nil, err
		}
		r.Exact = ex.Values
	}
	if samples > 0 {
		mc, err := runMonteCarlo(ctx, c, sc, samples, c.Config.Batch.Seed)
		if err != nil {
			return nil, err
		}
		r.MonteCarlo, r.StdErr = mc.Values, mc.StdErrs
	}
	return r, nil
}
