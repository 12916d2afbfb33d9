// Package cmd provides command-line interface commands for scrub.
package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"scrub/bootstrap"
	"scrub/fuzzer"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
)

// Flags for the fuzz command
var (
	flagDuration time.Duration
	flagMaxExecs uint64
	flagExecRate int
	flagSeed     int64
	flagQuiet    bool
	flagNoColor  bool
)

// NewFuzzCmd creates the fuzz command tree.
func NewFuzzCmd() *cobra.Command {
	fuzzCmd := &cobra.Command{
		Use:   "fuzz",
		Short: "Run the standalone fuzzing loop against the sanitizer",
		Long: `Runs a corpus-driven mutation loop against the JSON sanitizer.
Expected rejections (decode errors, malformed input) are counted silently;
anything else is persisted as a crasher for later replay.`,
		RunE: runFuzz,
	}

	fuzzCmd.Flags().DurationVar(&flagDuration, "duration", 0, "stop after this much wall time (0 = run until interrupted)")
	fuzzCmd.Flags().Uint64Var(&flagMaxExecs, "max-execs", 0, "stop after this many executions (0 = unbounded)")
	fuzzCmd.Flags().IntVar(&flagExecRate, "rate", 0, "cap executions per second (0 = unpaced)")
	fuzzCmd.Flags().Int64Var(&flagSeed, "seed", 0, "mutator seed (0 = derive from clock)")
	fuzzCmd.Flags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress progress output")
	fuzzCmd.Flags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")

	fuzzCmd.AddCommand(newCrashersCmd())

	return fuzzCmd
}

func runFuzz(cmd *cobra.Command, args []string) error {
	if flagNoColor {
		color.NoColor = true
	}

	logger, sugar, err := buildLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := bootstrap.InitConfig(sugar)
	if err != nil {
		return err
	}
	if err := bootstrap.EnsureDataDirectories(cfg); err != nil {
		return err
	}

	// CLI flags win over config file values.
	if flagDuration > 0 {
		cfg.Fuzz.Duration = flagDuration
	}
	if flagMaxExecs > 0 {
		cfg.Fuzz.MaxExecs = flagMaxExecs
	}
	if flagExecRate > 0 {
		cfg.Fuzz.ExecRate = flagExecRate
	}
	if flagSeed != 0 {
		cfg.Fuzz.Seed = flagSeed
	}

	sanitizer, err := bootstrap.BuildSanitizer(cfg, sugar)
	if err != nil {
		return err
	}

	corpus, err := fuzzer.LoadCorpus(cfg.DataPaths.CorpusDir, cfg.Fuzz.MaxCorpusEntries, sugar)
	if err != nil {
		return err
	}

	store, err := fuzzer.NewCrashStore(cfg.DataPaths.DBPath, cfg.DataPaths.CrashersDir, cfg.Fuzz.DedupCacheSize, sugar)
	if err != nil {
		return err
	}
	defer store.Close()

	h, err := bootstrap.BuildHarness(cfg, sanitizer, sugar)
	if err != nil {
		return err
	}

	driver := fuzzer.NewDriver(
		h,
		corpus,
		store,
		fuzzer.Options{
			Seed:          cfg.Fuzz.Seed,
			MaxExecs:      cfg.Fuzz.MaxExecs,
			Duration:      cfg.Fuzz.Duration,
			ExecRate:      cfg.Fuzz.ExecRate,
			MaxInputBytes: cfg.Sanitizer.MaxInputBytes,
		},
		sugar,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var spin *spinner.Spinner
	if !flagQuiet && !flagNoColor {
		spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		spin.Suffix = " fuzzing..."
		spin.Start()
	}

	stats, err := driver.Run(ctx)

	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		return err
	}

	printSummary(stats)
	if stats.NewCrashers > 0 {
		return fmt.Errorf("%d new crasher(s) recorded", stats.NewCrashers)
	}
	return nil
}

// buildLogger returns a nop logger in quiet mode so only the final summary
// reaches the terminal.
func buildLogger() (*zap.Logger, *zap.SugaredLogger, error) {
	if flagQuiet {
		logger := zap.NewNop()
		return logger, logger.Sugar(), nil
	}
	return bootstrap.InitLogger("info")
}

func printSummary(stats *fuzzer.Stats) {
	infoColor.Println("\n=== Fuzzing summary ===")
	fmt.Printf("  seed:         %d\n", stats.Seed)
	fmt.Printf("  elapsed:      %s\n", stats.Elapsed.Round(time.Millisecond))
	fmt.Printf("  executions:   %d\n", stats.Execs)
	fmt.Printf("  ok:           %d\n", stats.OK)
	fmt.Printf("  rejected:     %d\n", stats.Rejected)
	if stats.Crashes > 0 {
		errorColor.Printf("  crashes:      %d (%d new)\n", stats.Crashes, stats.NewCrashers)
	} else {
		successColor.Println("  crashes:      0")
	}
}

// newCrashersCmd lists persisted crashers.
func newCrashersCmd() *cobra.Command {
	var limit int

	crashersCmd := &cobra.Command{
		Use:   "crashers",
		Short: "List recorded crashers",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zap.NewNop().Sugar()

			cfg, err := bootstrap.InitConfig(logger)
			if err != nil {
				return err
			}

			store, err := fuzzer.NewCrashStore(cfg.DataPaths.DBPath, cfg.DataPaths.CrashersDir, cfg.Fuzz.DedupCacheSize, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			crashers, err := store.List(limit)
			if err != nil {
				return err
			}
			if len(crashers) == 0 {
				successColor.Println("No crashers recorded")
				return nil
			}

			warningColor.Printf("%d crasher(s):\n", len(crashers))
			for _, c := range crashers {
				fmt.Printf("  %s  %s  reason=%s\n", c.CreatedAt.Format(time.RFC3339), c.ID, c.Reason)
				fmt.Printf("      error: %s\n", c.Error)
				fmt.Printf("      input: %s (%s)\n", c.Diagnostic, c.InputFile)
			}
			return nil
		},
	}

	crashersCmd.Flags().IntVar(&limit, "limit", 20, "maximum number of crashers to show")
	return crashersCmd
}
