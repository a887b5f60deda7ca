package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/jackzampolin/lqa/internal/batch"
	"github.com/jackzampolin/lqa/internal/config"
	"github.com/jackzampolin/lqa/internal/home"
	"github.com/jackzampolin/lqa/internal/manifest"
	"github.com/jackzampolin/lqa/internal/observability"
	"github.com/jackzampolin/lqa/internal/output"
	"github.com/jackzampolin/lqa/internal/providers"
)

// errRunIncomplete makes the exit status non-zero when items failed or
// the run was cancelled. The summary is still printed.
var errRunIncomplete = errors.New("batch did not complete cleanly")

var runFlags struct {
	concurrency int
	retries     int
	deadline    time.Duration
	retryDelay  time.Duration
	maxItems    int
	analyzer    string
	out         string
	resume      string
	metricsAddr string
}

var runCmd = &cobra.Command{
	Use:   "run <manifest>",
	Short: "Analyze every pending item of a manifest",
	Long: `Run a batch over the items listed in a YAML or JSON manifest.

Items are analyzed by a fixed pool of workers in manifest order. Each item
gets up to retries+1 attempts, each bounded by the attempt deadline.
Press Ctrl+C once to stop starting new items; in-flight items finish and
their results are kept. Press it again to abort immediately.

Reports are written as <id>.json with a summary.json into --out, or into
~/.lqa/reports/<run-id> by default. Pass a previous summary.json with
--resume to skip items that already completed.

Examples:
  lqa run batch.yaml
  lqa run batch.yaml --concurrency 10 --retries 1 --deadline 45s
  lqa run batch.yaml --analyzer mock -o json
  lqa run batch.yaml --resume ~/.lqa/reports/<run-id>/summary.json`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&runFlags.concurrency, "concurrency", batch.DefaultConcurrency, "number of workers")
	f.IntVar(&runFlags.retries, "retries", batch.DefaultRetryBudget, "retries after the first attempt")
	f.DurationVar(&runFlags.deadline, "deadline", batch.DefaultDeadline, "per-attempt deadline")
	f.DurationVar(&runFlags.retryDelay, "retry-delay", 0, "base exponential back-off between attempts")
	f.IntVar(&runFlags.maxItems, "max-items", batch.DefaultMaxItems, "refuse batches with more eligible items (0 = no cap)")
	f.StringVar(&runFlags.analyzer, "analyzer", "", "analyzer name from config (default: batch.analyzer)")
	f.StringVar(&runFlags.out, "out", "", "report directory (default: ~/.lqa/reports/<run-id>)")
	f.StringVar(&runFlags.resume, "resume", "", "summary.json of a previous run")
	f.StringVar(&runFlags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9464)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	mgr, err := config.NewManager(resolveConfigFile())
	if err != nil {
		return err
	}
	mgr.SetLogger(logger)
	cfg := mgr.Get()

	opts, maxItems, analyzerName, metricsAddr := resolveRunSettings(cmd, cfg)

	reg := providers.NewRegistryFromConfig(cfg.ToProviderRegistryConfig())
	reg.SetLogger(logger)
	if !reg.Has(analyzerName) {
		return fmt.Errorf("analyzer %q is not configured or has no API key (available: %v)", analyzerName, reg.List())
	}
	// Rotated keys or model changes apply to the next attempt.
	mgr.OnChange(func(c *config.Config) {
		reg.Reload(c.ToProviderRegistryConfig())
	})
	if mgr.ConfigFile() != "" {
		mgr.WatchConfig()
	}

	items, err := manifest.Load(args[0])
	if err != nil {
		return err
	}
	if runFlags.resume != "" {
		prev, err := manifest.LoadSummary(runFlags.resume)
		if err != nil {
			return err
		}
		matched := manifest.ApplyPrevious(items, prev)
		logger.Info("resuming previous run", "run", prev.State.RunID, "matched", matched)
	}
	eligible, err := batch.Eligible(items, maxItems)
	if err != nil {
		return err
	}

	meter, shutdown, err := setupMetrics(ctx, metricsAddr, logger)
	if err != nil {
		return err
	}
	defer shutdown()
	metrics, err := observability.NewBatchMetrics(meter)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	byID := make(map[string]*batch.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	showProgress := !output.IsStructured()

	run, err := batch.Start(ctx, batch.Config{
		Options: opts,
		Analyze: batch.FromRegistry(reg, analyzerName),
		Update: func(id string, u batch.Update) {
			mu.Lock()
			defer mu.Unlock()
			if it, ok := byID[id]; ok {
				it.Apply(u)
			}
		},
		OnProgress: func(s batch.RunState) {
			if showProgress && s.IsProcessing {
				fmt.Fprintf(cmd.ErrOrStderr(), "\r%d/%d done (%d failed)", s.Completed, s.Total, s.Failed)
			}
		},
		Logger:  logger,
		Metrics: metrics,
	}, eligible)
	if err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() {
		logger.Warn("cancelling batch; waiting for in-flight items (Ctrl+C again to abort)", "batch", run.ID())
		stopSignals()
	})
	defer stop()

	state := run.Wait()
	if showProgress {
		fmt.Fprintln(cmd.ErrOrStderr())
	}
	logAnalyzerStats(logger, reg, analyzerName)

	dir := runFlags.out
	if dir == "" {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		dir = h.RunDir(state.RunID)
	}
	mu.Lock()
	err = manifest.WriteReports(dir, items, state)
	mu.Unlock()
	if err != nil {
		return err
	}

	if err := output.WriteTo(cmd.OutOrStdout(), output.GetFormat(), output.RunSummary{
		State:     state,
		Items:     items,
		ReportDir: dir,
	}); err != nil {
		return err
	}

	if state.Failed > 0 || state.Cancelled {
		return errRunIncomplete
	}
	return nil
}

// statsReporter is implemented by analyzers that count their calls.
type statsReporter interface {
	Stats() providers.AnalyzerStats
}

func logAnalyzerStats(logger *slog.Logger, reg *providers.Registry, name string) {
	a, err := reg.Get(name)
	if err != nil {
		return
	}
	if sr, ok := a.(statsReporter); ok {
		st := sr.Stats()
		logger.Info("analyzer stats", "analyzer", name,
			"requests", st.Requests, "failures", st.Failures,
			"rate_limited", st.RateLimited, "total_time", st.TotalTime)
	}
}

// resolveRunSettings layers explicitly set flags over the config file.
func resolveRunSettings(cmd *cobra.Command, cfg *config.Config) (batch.Options, int, string, string) {
	opts := cfg.BatchOptions()
	maxItems := cfg.Batch.MaxItems
	analyzer := cfg.Batch.Analyzer
	metricsAddr := cfg.Metrics.Addr

	f := cmd.Flags()
	if f.Changed("concurrency") {
		opts.Concurrency = runFlags.concurrency
	}
	if f.Changed("retries") {
		opts.RetryBudget = runFlags.retries
	}
	if f.Changed("deadline") {
		opts.Deadline = runFlags.deadline
	}
	if f.Changed("retry-delay") {
		opts.RetryDelay = runFlags.retryDelay
	}
	if f.Changed("max-items") {
		maxItems = runFlags.maxItems
	}
	if runFlags.analyzer != "" {
		analyzer = runFlags.analyzer
	}
	if runFlags.metricsAddr != "" {
		metricsAddr = runFlags.metricsAddr
	}
	return opts, maxItems, analyzer, metricsAddr
}

// setupMetrics serves /metrics on addr, or returns a noop meter when addr is empty.
func setupMetrics(ctx context.Context, addr string, logger *slog.Logger) (metric.Meter, func(), error) {
	if addr == "" {
		return noop.NewMeterProvider().Meter("lqa"), func() {}, nil
	}

	provider, handler, err := observability.PrometheusHandler()
	if err != nil {
		return nil, nil, err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	shutdown := func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}
	return provider.Meter("lqa"), shutdown, nil
}
