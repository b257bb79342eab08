package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/harness/internal/components/button"
	"github.com/conneroisu/harness/internal/config"
	"github.com/conneroisu/harness/internal/errors"
	"github.com/conneroisu/harness/internal/harness"
	"github.com/conneroisu/harness/internal/harness/testbed"
	"github.com/conneroisu/harness/internal/logging"
	"github.com/conneroisu/harness/internal/scheduler"
	"github.com/conneroisu/harness/internal/stabilize"
)

var benchCmd = &cobra.Command{
	Use:     "bench",
	Aliases: []string{"b"},
	Short:   "Benchmark sequential and batched harness actions",
	Long: `Render a row of buttons in-process and click every one of them through
its harness, first one after another and then batched with Parallel. Each
mode runs --runs times on a fresh fixture and the average is printed.

Examples:
  harness bench                        # 100 buttons, 5 runs
  harness bench --buttons 500 -r 10
  HARNESS_STABILIZE_MODE=virtual harness bench`,
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().IntP("runs", "r", 5, "Runs per mode")
	benchCmd.Flags().IntP("buttons", "n", 100, "Buttons in the fixture")
	_ = viper.BindPFlag("bench.runs", benchCmd.Flags().Lookup("runs"))
	_ = viper.BindPFlag("bench.buttons", benchCmd.Flags().Lookup("buttons"))
}

// BenchResult holds the averages of one benchmark.
type BenchResult struct {
	Mode       string
	Buttons    int
	Runs       int
	Sequential time.Duration
	Parallel   time.Duration
}

// Speedup is how many times faster the batched run was.
func (r *BenchResult) Speedup() float64 {
	if r.Parallel == 0 {
		return 0
	}
	return float64(r.Sequential) / float64(r.Parallel)
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	result, err := runBenchmark(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	printBench(cmd.OutOrStdout(), result)
	return nil
}

func printBench(w io.Writer, r *BenchResult) {
	fmt.Fprintf(w, "%d buttons, %d runs, %s scheduling\n", r.Buttons, r.Runs, r.Mode)
	fmt.Fprintf(w, "  sequential: %v\n", r.Sequential)
	fmt.Fprintf(w, "  parallel:   %v\n", r.Parallel)
	fmt.Fprintf(w, "  speedup:    %.1fx\n", r.Speedup())
}

// runBenchmark clicks cfg.Bench.Buttons buttons cfg.Bench.Runs times per
// mode. Every run checks that each button registered exactly one click.
func runBenchmark(ctx context.Context, cfg *config.Config, logger logging.Logger) (*BenchResult, error) {
	mode, err := scheduler.ParseMode(cfg.Stabilize.Mode)
	if err != nil {
		return nil, err
	}

	collector := errors.NewErrorCollector()
	var sequential, parallel time.Duration
	for run := range cfg.Bench.Runs {
		d, err := benchRun(ctx, cfg, mode, logger, false)
		collector.Add(fmt.Sprintf("sequential run %d", run+1), err)
		sequential += d

		d, err = benchRun(ctx, cfg, mode, logger, true)
		collector.Add(fmt.Sprintf("parallel run %d", run+1), err)
		parallel += d

		if collector.HasFatal() {
			break
		}
	}
	if collector.HasErrors() {
		logger.Error(ctx, collector.Err(), "benchmark failed", "failures", len(collector.GetErrors()))
		return nil, collector.Err()
	}

	runs := time.Duration(cfg.Bench.Runs)
	return &BenchResult{
		Mode:       mode.String(),
		Buttons:    cfg.Bench.Buttons,
		Runs:       cfg.Bench.Runs,
		Sequential: sequential / runs,
		Parallel:   parallel / runs,
	}, nil
}

func benchRun(ctx context.Context, cfg *config.Config, mode scheduler.Mode, logger logging.Logger, batched bool) (time.Duration, error) {
	f, err := testbed.NewFixture(ctx, button.Row("bench", cfg.Bench.Buttons),
		testbed.WithScheduler(scheduler.New(mode, cfg.Stabilize.FlushLimit)))
	if err != nil {
		return 0, err
	}
	defer f.Destroy()

	bus := stabilize.New()
	loader, err := testbed.Loader(f, testbed.WithBus(bus), testbed.WithLogger(logger))
	if err != nil {
		return 0, err
	}
	buttons, err := harness.GetAllHarnesses[*button.Harness](ctx, loader, button.HarnessType)
	if err != nil {
		return 0, err
	}

	name := "sequential clicks"
	if batched {
		name = "parallel clicks"
	}
	op := logging.StartOperation(logger, name)

	if batched {
		clicks := make([]func(ctx context.Context) error, len(buttons))
		for i, b := range buttons {
			clicks[i] = b.Click
		}
		err = stabilize.ParallelDo(ctx, bus, clicks...)
	} else {
		for _, b := range buttons {
			if err = b.Click(ctx); err != nil {
				break
			}
		}
	}
	if err != nil {
		return op.EndWithError(ctx, err), err
	}
	elapsed := op.End(ctx)

	counts := make([]func(ctx context.Context) (int, error), len(buttons))
	for i, b := range buttons {
		counts[i] = b.GetClicks
	}
	got, err := stabilize.Parallel(ctx, bus, counts...)
	if err != nil {
		return elapsed, err
	}
	for i, n := range got {
		if n != 1 {
			return elapsed, errors.NewInternalError(fmt.Sprintf("button %d registered %d clicks", i+1, n), nil)
		}
	}
	return elapsed, nil
}
