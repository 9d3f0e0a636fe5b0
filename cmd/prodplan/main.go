package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prodplan/pkg/plan"
	"prodplan/pkg/scenario"
)

var verbose bool

func main() {
	if err := buildRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "prodplan",
		Short: "Hourly production and procurement scheduler",
		Long: `prodplan computes a minimum-cost factory schedule from a YAML scenario:
which equipment runs which formula each hour and which materials to buy
when, subject to operating windows, batch sizes, continuous-run limits
and purchase lead times.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.AddCommand(buildSolveCommand())
	root.AddCommand(buildCheckCommand())
	return root
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func buildSolveCommand() *cobra.Command {
	var (
		format      string
		timeBudget  time.Duration
		nodeBudget  int64
		workers     int
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "solve <scenario.yaml>",
		Short: "Compute a minimum-cost schedule for a scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(args[0], format, timeBudget, nodeBudget, workers, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json")
	cmd.Flags().DurationVar(&timeBudget, "time-budget", 0, "Wall-clock search budget (0 = solve to optimality)")
	cmd.Flags().Int64Var(&nodeBudget, "node-budget", 0, "Branch-and-bound node budget (0 = unbounded)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel search workers (0 = all CPUs)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while solving")

	return cmd
}

func runSolve(path, format string, timeBudget time.Duration, nodeBudget int64, workers int, metricsAddr string) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	p, err := scenario.Load(path)
	if err != nil {
		return err
	}

	// Ctrl-C stops the search and reports the best schedule found so far.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := plan.SolveOptions{
		TimeBudget: timeBudget,
		NodeBudget: nodeBudget,
		Workers:    workers,
		Logger:     logger,
	}
	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts.Metrics = plan.NewSolverMetrics(reg)

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			if serveErr := srv.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
				logger.Warn("metrics server stopped", zap.Error(serveErr))
			}
		}()
		defer srv.Close()
	}

	sol, err := plan.Solve(ctx, p, opts)
	if err != nil {
		return err
	}
	return renderSolution(os.Stdout, format, p, sol)
}

func buildCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <scenario.yaml>",
		Short: "Validate a scenario file without solving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			renderCheck(os.Stdout, args[0], p)
			return nil
		},
	}
	return cmd
}
