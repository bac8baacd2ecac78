package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/zjrosen/regswap/internal/closure"
	"github.com/zjrosen/regswap/internal/engine"
	"github.com/zjrosen/regswap/internal/guard"
	"github.com/zjrosen/regswap/internal/infrastructure/sqlite"
	"github.com/zjrosen/regswap/internal/presentation"
	"github.com/zjrosen/regswap/internal/registry"
	"github.com/zjrosen/regswap/internal/scenario"
	"github.com/zjrosen/regswap/internal/tracing"
	"github.com/zjrosen/regswap/internal/watcher"
)

var runWatch bool

var runCmd = &cobra.Command{
	Use:   "run <scenario.yaml>",
	Short: "Run a substitution scenario",
	Long: `Run a substitution scenario and report each step's outcome as JSON.

The scenario seeds a registry with initial entries, performs each
substitution through the engine, and verifies the registry was restored
to its seeded state afterward.

Examples:
  # Run a scenario once
  regswap run scenario.yaml

  # Re-run whenever the file changes
  regswap run scenario.yaml --watch

  # Inspect the restored flag with jq
  regswap run scenario.yaml | jq '.restored'`,
	Args: cobra.ExactArgs(1),
	RunE: runScenario,
}

func init() {
	runCmd.Flags().BoolVarP(&runWatch, "watch", "w", false,
		"re-run the scenario when the file changes")
	rootCmd.AddCommand(runCmd)
}

func runScenario(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("configuring tracing: %w", err)
	}
	defer func() { _ = provider.Shutdown(context.Background()) }()

	var history *sqlite.DB
	if cfg.History.Enabled {
		history, err = sqlite.Open(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("opening run history: %w", err)
		}
		defer func() { _ = history.Close() }()
	}

	if err := runOnce(ctx, path, provider, history); err != nil {
		return err
	}
	if !runWatch {
		return nil
	}

	w, err := watcher.New(watcher.DefaultConfig(path))
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = w.Stop() }()

	changes, err := w.Start()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}

	fmt.Fprintf(os.Stderr, "watching %s for changes...\n", path)
	for {
		select {
		case <-changes:
			if err := runOnce(ctx, path, provider, history); err != nil {
				// Keep watching; a broken edit should not end the session.
				fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func runOnce(ctx context.Context, path string, provider *tracing.Provider, history *sqlite.DB) error {
	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}

	// Fresh collaborators per run so repeat runs in watch mode behave like
	// first runs.
	reg := registry.NewInMemory()
	eng := engine.New(reg, closure.NewCache(), guard.New(),
		engine.WithTracer(provider.Tracer()))
	runner := scenario.NewRunner(reg, eng)

	start := time.Now()
	result, err := runner.Run(ctx, sc)
	if err != nil {
		return fmt.Errorf("running scenario: %w", err)
	}

	if history != nil {
		recordRuns(history, sc.Name, result, time.Since(start))
	}

	formatter := presentation.NewFormatter(os.Stdout)
	return formatter.FormatJSON(result)
}

func recordRuns(history *sqlite.DB, name string, result *scenario.Result, elapsed time.Duration) {
	perStep := float64(elapsed.Microseconds()) / 1000.0
	if n := len(result.Steps); n > 0 {
		perStep /= float64(n)
	}

	for _, step := range result.Steps {
		outcome := sqlite.OutcomeOK
		if step.Err != "" {
			outcome = sqlite.OutcomeFailed
		}
		run := &sqlite.Run{
			ScopeID:    step.ScopeID,
			Scenario:   name,
			Name:       step.Name,
			Root:       step.Root,
			Cached:     step.Cached,
			Outcome:    outcome,
			Error:      step.Err,
			DurationMs: perStep,
		}
		if err := history.Runs().Record(run); err != nil {
			fmt.Fprintf(os.Stderr, "recording run history: %v\n", err)
		}
	}
}
