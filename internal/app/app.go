// Package app wires all monitor subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the ingest listeners and the scoring loop, and
// Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithReportStore,
// WithReference, etc.). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/hangulab/scriptlive/internal/align"
	"github.com/hangulab/scriptlive/internal/config"
	"github.com/hangulab/scriptlive/internal/health"
	"github.com/hangulab/scriptlive/internal/hypothesis"
	"github.com/hangulab/scriptlive/internal/monitor"
	"github.com/hangulab/scriptlive/internal/observe"
	"github.com/hangulab/scriptlive/internal/render"
	"github.com/hangulab/scriptlive/internal/report"
	"github.com/hangulab/scriptlive/internal/script"
	"github.com/hangulab/scriptlive/pkg/caption"
)

// App owns all subsystem lifetimes and drives the score-as-you-speak loop.
type App struct {
	cfg      *config.Config
	engine   *align.Engine
	log      *hypothesis.Log
	store    report.Store
	forward  *caption.Client
	metrics  *observe.Metrics
	renderer *render.Terminal
	server   *monitor.Server
	watcher  *script.Watcher
	health   *health.Handler

	output io.Writer

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once

	mu          sync.Mutex
	reference   string
	spans       []align.TokenSpan
	lastHyp     string
	sessionOpen bool
	startedAt   time.Time
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithReportStore injects a report store instead of creating one from config.
func WithReportStore(s report.Store) Option {
	return func(a *App) { a.store = s }
}

// WithMetrics injects a metrics bundle instead of using the package default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithOutput redirects caption rendering away from stdout.
func WithOutput(w io.Writer) Option {
	return func(a *App) { a.output = w }
}

// WithReference injects the reference text directly, bypassing the script
// file and its watcher.
func WithReference(text string) Option {
	return func(a *App) { a.reference = text }
}

// New creates an App by wiring all subsystems together. It performs all
// initialisation synchronously: script loading, report store connection,
// engine construction, and ingest server assembly.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:    cfg,
		log:    hypothesis.NewLog(),
		output: os.Stdout,
	}
	for _, o := range opts {
		o(a)
	}

	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	a.initEngine()

	if err := a.initScript(); err != nil {
		return nil, fmt.Errorf("app: init script: %w", err)
	}
	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init report store: %w", err)
	}

	a.renderer = render.New(a.output)

	if cfg.Sink.Enabled {
		a.forward = caption.New(cfg.Sink.Addr, int32(cfg.Sink.Checkcode))
		a.closers = append(a.closers, a.forward.Close)
	}

	a.server = monitor.NewServer(monitor.ServerConfig{
		Log:           a.log,
		Checkcode:     int32(cfg.Server.Checkcode),
		RespCheckcode: int32(cfg.Server.RespCheckcode),
		Forward:       a.forward,
		Metrics:       a.metrics,
	})

	a.health = health.New(
		health.Named("script", func(context.Context) error {
			a.mu.Lock()
			defer a.mu.Unlock()
			if a.reference == "" {
				return script.ErrEmpty
			}
			return nil
		}),
		health.Named("report-store", func(ctx context.Context) error {
			_, err := a.store.List(ctx)
			return err
		}),
	)

	return a, nil
}

// initEngine builds the alignment engine from the scoring config.
func (a *App) initEngine() {
	var opts []align.Option
	if a.cfg.Scoring.Threshold > 0 {
		opts = append(opts, align.WithThreshold(a.cfg.Scoring.Threshold))
	}
	if a.cfg.Scoring.Strategy == config.StrategyChunked {
		opts = append(opts, align.WithStrategy(align.Chunked{}))
	} else if a.cfg.Scoring.Lookahead > 0 {
		opts = append(opts, align.WithLookahead(a.cfg.Scoring.Lookahead))
	}
	a.engine = align.New(opts...)
}

// initScript loads the reference text, either from the injected value or
// from the configured script file with a change watcher attached.
func (a *App) initScript() error {
	if a.reference == "" {
		w, err := script.NewWatcher(a.cfg.Scoring.ReferencePath, a.onScriptChange)
		if err != nil {
			return err
		}
		a.watcher = w
		a.reference = w.Current()
		a.closers = append(a.closers, func() error {
			w.Stop()
			return nil
		})
	}
	a.spans = align.Spans(a.reference)
	return nil
}

// initStore sets up the report store or uses an injected one.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	switch a.cfg.Reports.Store {
	case config.ReportStorePostgres:
		store, err := report.NewPostgresStore(ctx, a.cfg.Reports.PostgresDSN)
		if err != nil {
			return err
		}
		a.store = store
		a.closers = append(a.closers, func() error {
			store.Close()
			return nil
		})
	default:
		a.store = report.NewMemStore()
	}
	return nil
}

// onScriptChange swaps in a corrected reference script and restarts the
// scoring session from scratch. The session scored so far is reported
// before it is discarded.
func (a *App) onScriptChange(_, text string) {
	a.finalize(context.Background(), "script swapped")

	a.mu.Lock()
	a.reference = text
	a.spans = align.Spans(text)
	a.lastHyp = ""
	a.sessionOpen = true
	a.startedAt = time.Now()
	a.mu.Unlock()

	a.log.Reset()
	slog.Info("reference script swapped, session restarted")
}

// Addr returns the TCP ingest listener address once Run has bound it, or
// nil before that.
func (a *App) Addr() net.Addr {
	return a.server.Addr()
}

// Run starts the ingest listeners and the scoring loop, blocking until ctx
// is cancelled or a subsystem fails. It returns context.Canceled on a clean
// shutdown.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	a.sessionOpen = true
	a.startedAt = time.Now()
	a.mu.Unlock()

	if a.forward != nil {
		if err := a.forward.Connect(ctx); err != nil {
			// The client redials on the next send.
			slog.Warn("caption sink not reachable yet", "addr", a.cfg.Sink.Addr, "err", err)
		}
	}

	ln, err := net.Listen("tcp", a.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("app: listen %q: %w", a.cfg.Server.ListenAddr, err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.server.Serve(ctx, ln)
	})

	if a.cfg.Server.HTTPAddr != "" {
		g.Go(func() error {
			return a.serveHTTP(ctx)
		})
	}

	g.Go(func() error {
		return a.scoreLoop(ctx)
	})

	slog.Info("monitor running",
		"listen_addr", ln.Addr().String(),
		"http_addr", a.cfg.Server.HTTPAddr,
		"tokens", len(a.spans),
	)

	return g.Wait()
}

// serveHTTP runs the HTTP server carrying the WebSocket ingest endpoint,
// health probes, and the Prometheus scrape endpoint.
func (a *App) serveHTTP(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/ingest", a.server.WSHandler())
	mux.Handle("GET /metrics", promhttp.Handler())
	a.health.Register(mux)

	srv := &http.Server{
		Addr:              a.cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("app: http server: %w", err)
	}
}

// scoreLoop re-scores the accumulated hypothesis on every tick until ctx
// is cancelled.
func (a *App) scoreLoop(ctx context.Context) error {
	tick := a.cfg.Scoring.TickInterval.Std()
	if tick <= 0 {
		tick = config.DefaultTickInterval
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.scoreOnce(ctx)
		}
	}
}

// scoreOnce runs one scoring pass if the hypothesis changed since the last
// tick, renders the result, and finalises the session once every reference
// token has been resolved.
func (a *App) scoreOnce(ctx context.Context) {
	hyp := a.log.Snapshot()

	a.mu.Lock()
	if !a.sessionOpen || hyp == a.lastHyp {
		a.mu.Unlock()
		return
	}
	a.lastHyp = hyp
	ref := a.reference
	spans := a.spans
	startedAt := a.startedAt
	a.mu.Unlock()

	start := time.Now()
	tokens, metrics := a.engine.ScoreSpans(spans, ref, hyp)
	a.metrics.RecordScore(ctx, time.Since(start).Seconds(), metrics.WER, metrics.CER)

	if err := a.renderer.Tokens(tokens); err != nil {
		slog.Warn("render failed", "err", err)
	}
	if err := a.renderer.Metrics(metrics); err != nil {
		slog.Warn("render failed", "err", err)
	}

	if !align.Completed(tokens) {
		return
	}

	a.saveReport(ctx, report.Build(ref, hyp, tokens, metrics, startedAt, time.Now()), "session completed")
	a.metrics.RecordSessionCompleted(ctx)

	a.mu.Lock()
	a.sessionOpen = false
	a.mu.Unlock()
}

// finalize reports an in-progress session that ends before the script does,
// such as a script swap or a monitor shutdown. Sessions with no speech are
// discarded silently.
func (a *App) finalize(ctx context.Context, reason string) {
	hyp := a.log.Snapshot()

	a.mu.Lock()
	if !a.sessionOpen || hyp == "" {
		a.mu.Unlock()
		return
	}
	a.sessionOpen = false
	ref := a.reference
	spans := a.spans
	startedAt := a.startedAt
	a.mu.Unlock()

	tokens, metrics := a.engine.ScoreSpans(spans, ref, hyp)
	a.saveReport(ctx, report.Build(ref, hyp, tokens, metrics, startedAt, time.Now()), reason)
}

// saveReport persists r and logs the outcome.
func (a *App) saveReport(ctx context.Context, r report.Report, reason string) {
	saved, err := a.store.Save(ctx, r)
	if err != nil {
		slog.Error("failed to save session report", "reason", reason, "err", err)
		return
	}
	slog.Info("session report saved",
		"reason", reason,
		"report_id", saved.ID,
		"completed", saved.Completed,
		"wer", fmt.Sprintf("%.4f", saved.Metrics.WER),
		"cer", fmt.Sprintf("%.4f", saved.Metrics.CER),
		"similarity", fmt.Sprintf("%.4f", saved.Similarity),
	)
}

// Shutdown tears down all subsystems in init order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		a.finalize(ctx, "shutdown")

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
