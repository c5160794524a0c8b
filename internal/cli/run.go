package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pepperonas/Affentanz/internal/adapters"
	"github.com/pepperonas/Affentanz/internal/config"
	"github.com/pepperonas/Affentanz/internal/db"
	"github.com/pepperonas/Affentanz/internal/events"
	"github.com/pepperonas/Affentanz/internal/logging"
	"github.com/pepperonas/Affentanz/internal/metrics"
	"github.com/pepperonas/Affentanz/internal/models"
	"github.com/pepperonas/Affentanz/internal/playback"
	"github.com/pepperonas/Affentanz/internal/tui"
	"github.com/pepperonas/Affentanz/internal/workflow"
)

var (
	runLoop        bool
	runBackend     string
	runDelay       time.Duration
	runMetricsAddr string
	runNoTUI       bool
	runNoHistory   bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runLoop, "loop", false, "repeat the workflow until stopped (overrides the workflow setting)")
	runCmd.Flags().StringVar(&runBackend, "backend", "", "desktop backend: robotgo or dry-run (default from config)")
	runCmd.Flags().DurationVar(&runDelay, "delay", 0, "pause between actions (default from config)")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "serve Prometheus metrics and run status on this address")
	runCmd.Flags().BoolVar(&runNoTUI, "no-tui", false, "print plain progress instead of the run monitor")
	runCmd.Flags().BoolVar(&runNoHistory, "no-history", false, "do not record the run in the history database")
}

var runCmd = &cobra.Command{
	Use:   "run <file|name>",
	Short: "Play back a workflow",
	Long: `Play back a workflow file or a named workflow from the search paths.

The run can be paused, resumed and stopped from the run monitor. Without a
terminal, or with --no-tui, progress is printed line by line and Ctrl+C
stops the run.`,
	Example: `  affentanz run login.json
  affentanz run focus-and-save --backend dry-run
  affentanz run nightly.yaml --loop --metrics-addr 127.0.0.1:9464
  affentanz run login.json --jsonl > events.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg := currentConfig()
		wf, source, err := resolveWorkflow(args[0])
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("loop") {
			wf.Settings.Loop = runLoop
		}
		delay := cfg.Playback.ActionDelay
		if cmd.Flags().Changed("delay") {
			delay = runDelay
		}
		backendName := cfg.Playback.Backend
		if runBackend != "" {
			backendName = runBackend
		}

		useTUI := !runNoTUI && hasTTY() && !IsJSONOutput() && !IsJSONLOutput()
		if useTUI {
			restore, err := logToFile(cfg)
			if err != nil {
				return err
			}
			defer restore()
		}

		var backend *adapters.Backend
		err = withProgress(fmt.Sprintf("Opening %s backend", backendName), func() error {
			var openErr error
			backend, openErr = adapters.Open(backendName, adapters.Options{
				OCRLanguage: cfg.OCR.Language,
				DisableOCR:  !cfg.OCR.Enabled,
			})
			return openErr
		})
		if err != nil {
			if errors.Is(err, adapters.ErrUnknownBackend) {
				return &PreflightError{
					Message:  err.Error(),
					Hint:     fmt.Sprintf("available backends: %v", adapters.Names()),
					NextStep: fmt.Sprintf("affentanz run %s --backend dry-run", args[0]),
				}
			}
			return err
		}
		defer backend.Close()

		out := cmd.OutOrStdout()

		sinks := playback.MultiSink{}
		if !runNoHistory {
			sink, err := openHistorySink(ctx, wf, source)
			if err != nil {
				return err
			}
			sinks = append(sinks, sink)
		}
		switch {
		case IsJSONLOutput():
			sinks = append(sinks, newJSONLSink(out))
		case !useTUI && !IsJSONOutput():
			sinks = append(sinks, newConsoleSink(out, wf))
		}
		defer sinks.Close()

		runMetrics := playback.NewMetrics(nil)
		engine := playback.New(
			playback.Config{ActionDelay: delay},
			backend.Injector,
			backend.Desktop,
			playback.WithEventSink(sinks),
			playback.WithMetrics(runMetrics),
			playback.WithLogger(logging.Component("playback")),
		)

		metricsAddr := cfg.Metrics.Addr
		if runMetricsAddr != "" {
			metricsAddr = runMetricsAddr
		}
		if metricsAddr != "" {
			shutdown, err := serveMetrics(metricsAddr, runMetrics, engine)
			if err != nil {
				return err
			}
			defer shutdown()
		}

		if _, err := engine.Start(ctx, wf); err != nil {
			return err
		}

		if useTUI {
			if _, err := tui.Run(tui.Config{
				Controller:      engine,
				Workflow:        wf,
				Theme:           cfg.TUI.Theme,
				RefreshInterval: cfg.TUI.RefreshInterval,
			}); err != nil {
				stopAfterMonitorError(engine, err, logging.Component("cli"))
			}
		}
		status, err := engine.Wait(context.Background())
		if err != nil {
			return err
		}
		return reportRun(out, status)
	},
}

// stopAfterMonitorError stops the run once the run monitor has failed. A run
// that already ended is not reported.
func stopAfterMonitorError(engine interface{ Stop() error }, monitorErr error, logger zerolog.Logger) {
	logger.Warn().Err(monitorErr).Msg("run monitor failed")
	if err := engine.Stop(); err != nil && !errors.Is(err, playback.ErrNotRunning) {
		logger.Error().Err(err).Msg("failed to stop run")
	}
}

// openHistorySink records the run in the history database and marks the
// workflow as recently opened.
func openHistorySink(ctx context.Context, wf *models.Workflow, source string) (*playback.DatabaseEventSink, error) {
	database, err := openDatabase(ctx)
	if err != nil {
		return nil, err
	}
	if source != workflow.BuiltinSource {
		recent := db.NewRecentRepository(database, currentConfig().Workflows.RecentLimit)
		if err := recent.Touch(ctx, source); err != nil {
			database.Close()
			return nil, err
		}
		if err := events.LogWorkflowOpened(ctx, db.NewEventRepository(database), source, wf.Name); err != nil {
			database.Close()
			return nil, err
		}
	}
	return playback.NewDatabaseEventSink(database, source).OwnDatabase(), nil
}

func serveMetrics(addr string, runMetrics *playback.Metrics, engine *playback.Engine) (func(), error) {
	exporter := metrics.NewExporter(addr, runMetrics.Collectors()...).
		WithStatus(func() any { return engine.Status() })
	bound, err := exporter.Listen()
	if err != nil {
		return nil, fmt.Errorf("failed to start metrics exporter: %w", err)
	}
	logger := logging.Component("cli")
	logger.Info().Str("addr", bound.String()).Msg("serving metrics")
	go func() {
		if err := exporter.Serve(); err != nil {
			logger.Warn().Err(err).Msg("metrics exporter stopped")
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = exporter.Shutdown(ctx)
	}, nil
}

// logToFile sends logs to the data directory while the run monitor owns the
// terminal. The returned func restores logging to stderr.
func logToFile(cfg *config.Config) (func(), error) {
	if err := os.MkdirAll(cfg.Global.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(cfg.Global.DataDir, "affentanz.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	logging.InitWithWriter(cfg.Logging, f)
	return func() {
		logging.Init(cfg.Logging)
		f.Close()
	}, nil
}

func reportRun(out io.Writer, status models.RunStatus) error {
	if IsJSONOutput() {
		if err := WriteOutput(out, status); err != nil {
			return err
		}
	} else if !IsJSONLOutput() {
		fmt.Fprintf(out, "%s %s: %d/%d actions in %s",
			formatRunState(status.State),
			status.WorkflowName,
			status.CompletedActions,
			status.TotalActions,
			formatDuration(status.Elapsed(time.Now())),
		)
		if status.Iteration > 1 {
			fmt.Fprintf(out, ", %d iterations", status.Iteration)
		}
		fmt.Fprintln(out)
		if status.Failure != nil {
			fmt.Fprintf(out, "  %s\n", formatFailure(status.Failure))
		}
	}

	if status.State == models.RunStateFailed {
		return fmt.Errorf("run %s failed: %s", shortID(status.RunID), formatFailure(status.Failure))
	}
	return nil
}
