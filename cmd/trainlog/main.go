// Command trainlog manages saved training runs from the shell.
//
// Usage:
//
//	trainlog seed                         write the reference runs for the four variants
//	trainlog list                         list saved runs
//	trainlog summary <key>                print the summary of one run
//	trainlog compare [flags] [key ...]    export a comparison (all runs when no keys)
//	trainlog simulate [flags]             record a synthetic run through the recorder
//
// Storage and comparison settings come from the same environment variables as
// the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/aristath/trainlog/internal/config"
	"github.com/aristath/trainlog/internal/di"
	"github.com/aristath/trainlog/internal/modules/aggregate"
	"github.com/aristath/trainlog/internal/modules/comparison"
	"github.com/aristath/trainlog/internal/modules/runlog"
	"github.com/aristath/trainlog/internal/modules/seed"
	"github.com/aristath/trainlog/pkg/logger"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "trainlog:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command (seed, list, summary, compare, simulate)")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
		Output: stderr,
	})

	container, _, err := di.Wire(cfg, log)
	if err != nil {
		return err
	}
	defer container.Close()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "seed":
		return runSeed(ctx, container, stdout, log)
	case "list":
		return runList(ctx, container, stdout)
	case "summary":
		return runSummary(ctx, container, rest, stdout)
	case "compare":
		return runCompare(ctx, container, rest, stdout, stderr)
	case "simulate":
		return runSimulate(ctx, container, rest, stdout, stderr, log)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runSeed(ctx context.Context, c *di.Container, stdout io.Writer, log zerolog.Logger) error {
	keys, err := seed.Seed(ctx, c.RunRepository, time.Now(), log)
	if err != nil {
		return err
	}
	for _, key := range keys {
		fmt.Fprintf(stdout, "seeded %s\n", key)
	}
	return nil
}

func runList(ctx context.Context, c *di.Container, stdout io.Writer) error {
	keys, err := c.ComparisonService.AvailableKeys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		record, err := c.RunRepository.Get(ctx, key)
		if err != nil {
			fmt.Fprintf(stdout, "%-12s unreadable: %v\n", key, err)
			continue
		}
		fmt.Fprintf(stdout, "%-12s %-16s %6d episodes\n", key, record.Algorithm, record.Len())
	}
	return nil
}

func runSummary(ctx context.Context, c *di.Container, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("summary takes exactly one run key")
	}

	record, err := c.ComparisonService.LoadRun(ctx, runlog.Key(args[0]))
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, record.Summarize().String())
	return nil
}

func runCompare(ctx context.Context, c *di.Container, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("compare", flag.ContinueOnError)
	fs.SetOutput(stderr)
	formatName := fs.String("format", "json", "output format: json or msgpack")
	outPath := fs.String("o", "", "write to file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	format, err := comparison.ParseFormat(*formatName)
	if err != nil {
		return err
	}

	keys := make([]runlog.Key, 0, fs.NArg())
	for _, arg := range fs.Args() {
		keys = append(keys, runlog.Key(arg))
	}
	if len(keys) == 0 {
		if keys, err = c.ComparisonService.AvailableKeys(ctx); err != nil {
			return err
		}
	}

	result, err := c.ComparisonService.BuildComparison(ctx, keys)
	if err != nil {
		return err
	}
	for _, skipped := range result.Skipped() {
		fmt.Fprintf(stderr, "skipped %s (%s)\n", skipped.Key, skipped.Status)
	}

	if *outPath == "" {
		return comparison.Encode(stdout, result, format)
	}
	return writeComparisonFile(*outPath, result, format)
}

// writeComparisonFile encodes result into path. A failed close is reported
// since buffered data may not have reached the file.
func writeComparisonFile(path string, result *comparison.Comparison, format comparison.Format) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err := comparison.Encode(f, result, format); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// runSimulate feeds a noisy learning curve through a Recorder, the way a
// training loop would.
func runSimulate(ctx context.Context, c *di.Container, args []string, stdout, stderr io.Writer, log zerolog.Logger) error {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	algorithm := fs.String("algorithm", "Vanilla DQN", "algorithm name")
	episodes := fs.Int("episodes", 500, "number of episodes")
	seedValue := fs.Int64("seed", 1, "random seed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(*seedValue))
	rec := runlog.NewRecorder(*algorithm, c.RunRepository, log)

	const window = 100
	recent := make([]float64, 0, window)
	best := math.Inf(-1)
	epsilon := 1.0
	for ep := 1; ep <= *episodes; ep++ {
		progress := float64(ep) / float64(*episodes)
		reward := -150 + 400*progress + rng.NormFloat64()*60

		recent = append(recent, reward)
		if len(recent) > window {
			recent = recent[1:]
		}
		avg := aggregate.Mean(recent)
		best = math.Max(best, reward)

		var loss *float64
		if ep > 10 {
			l := 30*math.Exp(-3*progress) + rng.Float64()*5
			loss = &l
		}

		if err := rec.LogEpisode(ep, reward, avg, best, loss, epsilon); err != nil {
			return err
		}
		epsilon = math.Max(0.01, epsilon*0.995)

		if ep%100 == 0 {
			if err := rec.LogTest(ep, avg+rng.NormFloat64()*30); err != nil {
				return err
			}
		}
	}

	final := make([]float64, 3)
	for i := range final {
		final[i] = -150 + 400 + rng.NormFloat64()*30
	}
	if err := rec.LogFinalTests(final); err != nil {
		return err
	}

	if err := rec.Save(ctx); err != nil {
		return err
	}
	fmt.Fprintln(stdout, rec.Summarize().String())
	return nil
}
