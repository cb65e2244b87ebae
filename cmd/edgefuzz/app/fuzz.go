package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/sourcegraph/conc/panics"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/edgefuzz/edgefuzz/internal/backend"
	"github.com/edgefuzz/edgefuzz/internal/config"
	"github.com/edgefuzz/edgefuzz/internal/coverage"
	"github.com/edgefuzz/edgefuzz/internal/fuzz"
	"github.com/edgefuzz/edgefuzz/internal/logger"
	"github.com/edgefuzz/edgefuzz/internal/report"
	"github.com/edgefuzz/edgefuzz/internal/state"
	"github.com/edgefuzz/edgefuzz/internal/testcase"
)

// NewFuzzCommand creates the "fuzz" subcommand.
func NewFuzzCommand() *cobra.Command {
	var (
		target       string
		qemuRunner   string
		valgrindTool string
		seedDir      string
		outputDir    string
		timeout      int
		verbose      bool
		statInterval int
		logFile      string
	)

	cmd := &cobra.Command{
		Use:   "fuzz",
		Short: "Run the coverage-guided fuzzing loop against a target.",
		Long: `fuzz drives the five deterministic mutation strategies against a seed
corpus, executing each mutated input through either a fork-server
co-process (--qemu) or a per-execution trace-parse co-process
(--valgrind), and enqueues any input that grows edge coverage.

Defaults may be set in edgefuzz.yaml in the working directory; flags
explicitly set on the command line always win. A .env file in the working
directory adds environment variables (e.g. AFL_QEMU_DEBUG) that are not
already set.

Examples:
  edgefuzz fuzz --target ./target --qemu ./afl-qemu-trace --seeds seeds/
  edgefuzz fuzz --target ./target --valgrind /usr/bin/valgrind --seeds seeds/ --output out`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDefaults()
			if err != nil {
				return fmt.Errorf("load defaults: %w", err)
			}
			if err := config.LoadDotEnv("."); err != nil {
				return fmt.Errorf("load .env: %w", err)
			}

			// Command-line flags override config-file defaults only when
			// explicitly set; otherwise the value loaded from edgefuzz.yaml
			// (if any) stands, falling back to each flag's own default.
			if cmd.Flags().Changed("target") || cfg.Target == "" {
				cfg.Target = target
			}
			if cmd.Flags().Changed("seeds") || cfg.SeedDir == "" {
				cfg.SeedDir = seedDir
			}
			if cmd.Flags().Changed("output") || cfg.OutputDir == "" {
				cfg.OutputDir = outputDir
			}
			if cmd.Flags().Changed("timeout") || cfg.Timeout == 0 {
				cfg.Timeout = timeout
			}
			if cmd.Flags().Changed("verbose") {
				cfg.Verbose = verbose
			}
			if cmd.Flags().Changed("stat-interval") || cfg.StatInterval == 0 {
				cfg.StatInterval = statInterval
			}
			if cmd.Flags().Changed("log-file") || cfg.LogFile == "" {
				cfg.LogFile = logFile
			}
			switch {
			case cmd.Flags().Changed("qemu"):
				cfg.Backend = config.BackendQEMU
				cfg.RunnerPath = qemuRunner
			case cmd.Flags().Changed("valgrind"):
				cfg.Backend = config.BackendValgrind
				cfg.RunnerPath = valgrindTool
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			return runFuzz(cfg)
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "path to the target executable")
	cmd.Flags().StringVar(&qemuRunner, "qemu", "", "fork-server-patched QEMU runner for the fork-server backend")
	cmd.Flags().StringVar(&valgrindTool, "valgrind", "", "Valgrind binary for the trace-parse backend")
	cmd.MarkFlagsMutuallyExclusive("qemu", "valgrind")
	cmd.Flags().StringVar(&seedDir, "seeds", "", "directory of seed inputs")
	cmd.Flags().StringVar(&outputDir, "output", "output", "directory for crashing inputs, crash reports, and metrics")
	cmd.Flags().IntVar(&timeout, "timeout", 5, "per-execution timeout in seconds (hang detection)")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable debug-level logging")
	cmd.Flags().IntVar(&statInterval, "stat-interval", 1, "executions between status-line updates")
	cmd.Flags().StringVar(&logFile, "log-file", "", "directory to mirror a timestamped log file into, in addition to stdout")

	return cmd
}

func runFuzz(cfg *config.Config) error {
	logLevel := "info"
	if cfg.Verbose {
		logLevel = "debug"
	}
	if cfg.LogFile != "" {
		if err := logger.InitWithFile(logLevel, cfg.LogFile); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
	} else {
		logger.Init(logLevel)
	}

	logger.Info("target: %s", cfg.Target)
	logger.Info("backend: %s (%s)", cfg.Backend, cfg.RunnerPath)
	logger.Info("output directory: %s", cfg.OutputDir)

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	seeds, err := loadSeeds(cfg.SeedDir)
	if err != nil {
		return err
	}
	if len(seeds) == 0 {
		return fmt.Errorf("no seeds found in %s", cfg.SeedDir)
	}
	logger.Info("loaded %d seeds", len(seeds))

	be, cleanupBackend, err := newBackend(cfg)
	if err != nil {
		return err
	}
	defer cleanupBackend()

	ui := state.NewTerminalUI()
	ui.SetEnabled(!cfg.Verbose)
	metrics := state.NewFileMetricsManager(cfg.OutputDir)

	engine := fuzz.New(be, seeds, cfg.OutputDir, cfg.StatInterval, func(s fuzz.Stats) {
		ui.Render(s)
		if err := metrics.Snapshot(s); err != nil {
			logger.Warn("metrics snapshot: %v", err)
		}
	})
	engine.SetReporter(report.NewMarkdownReporter(filepath.Join(cfg.OutputDir, "crashes")))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	engineDone := make(chan struct{})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			logger.Info("shutdown signal received, stopping after current execution")
			engine.Stop()
		case <-engineDone:
		}
		return nil
	})
	g.Go(func() error {
		defer close(engineDone)
		// A mutation strategy or backend bug panicking must not take down
		// the whole process without a report: recover it, attach the
		// original stack, and surface it as a normal run error.
		var catcher panics.Catcher
		var runErr error
		catcher.Try(func() { runErr = engine.Run() })
		if recovered := catcher.Recovered(); recovered != nil {
			return fmt.Errorf("engine panic: %w", recovered.AsError())
		}
		return runErr
	})

	runErr := g.Wait()
	ui.Finish()
	if runErr != nil {
		return fmt.Errorf("fuzz run: %w", runErr)
	}

	stats := engine.Stats()
	logger.Info("finished: executions=%d paths=%d crashes=%d", stats.Executions, stats.Paths, stats.Crashes)
	return nil
}

// loadSeeds reads every regular file directly under dir as a seed input.
func loadSeeds(dir string) ([]*testcase.TestCase, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read seed directory %s: %w", dir, err)
	}

	var seeds []*testcase.TestCase
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		tc, err := testcase.LoadFrom(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		seeds = append(seeds, tc)
	}

	// Sort by name so a run's seed processing order is reproducible
	// across platforms and directory listing orders.
	slices.SortFunc(seeds, func(a, b *testcase.TestCase) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})

	return seeds, nil
}

// newBackend constructs the backend selected by cfg and a cleanup func
// that releases resources newBackend itself allocated (the engine closes
// the backend's own co-process resources via Backend.Cleanup).
func newBackend(cfg *config.Config) (backend.Backend, func(), error) {
	timeout := time.Duration(cfg.Timeout) * time.Second

	switch cfg.Backend {
	case config.BackendQEMU:
		shm, err := coverage.NewSharedMap()
		if err != nil {
			return nil, nil, fmt.Errorf("create shared coverage map: %w", err)
		}
		fs := backend.NewForkServer(backend.ForkServerConfig{
			Runner:  cfg.RunnerPath,
			Target:  cfg.Target,
			WorkDir: filepath.Join(cfg.OutputDir, "forksrv"),
			Timeout: timeout,
		}, shm)
		return fs, func() {
			if err := shm.Close(); err != nil {
				logger.Warn("close shared map: %v", err)
			}
		}, nil

	case config.BackendValgrind:
		tp := backend.NewTraceParse(backend.TraceParseConfig{
			Tool:    cfg.RunnerPath,
			Target:  cfg.Target,
			WorkDir: cfg.OutputDir,
			Timeout: timeout,
		})
		return tp, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
