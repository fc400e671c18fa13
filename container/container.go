// Package container wires a txn.Controller, one or more named
// registry.Registry instances, and the ambient mscmetrics/msccron/msclog
// stack into a single object that an operator builds once and runs for
// the life of the process.
//
// Grounded on server.Server's New(cfg, opts ...Option) shape: a
// functional-options constructor that loads config, builds its metrics
// registry and cron manager, and exposes a Run(ctx) that serves an HTTP
// endpoint and the cron scheduler until ctx is cancelled. Here there is no
// hot-reload path (server.Server.Reload swaps serverDeps atomically): the
// set of registries is fixed for the container's lifetime, consistent
// with the container itself being a Non-goal for hot reload.
package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/nomis52/msc/mscconfig"
	"github.com/nomis52/msc/mscmetrics"
	"github.com/nomis52/msc/msccron"
	"github.com/nomis52/msc/registry"
	"github.com/nomis52/msc/service"
	"github.com/nomis52/msc/task"
	"github.com/nomis52/msc/txn"
)

const defaultShutdownTimeout = 5 * time.Second

// Container owns everything a running instance of this module needs:
// the transactional root, the named registries services are installed
// into, and the ambient logging/metrics/cron stack.
type Container struct {
	logger *slog.Logger

	txnController *txn.Controller
	executor      task.Executor

	registries map[string]*registry.Registry

	metricsRegistry *mscmetrics.ScrapeRegistry
	pushClient      *mscmetrics.PushClient
	txnCounters     *mscmetrics.TransactionCounters
	sweeper         *msccron.Sweeper

	httpServer *http.Server
	addr       string
}

// Option configures a Container during New.
type Option func(*Container)

// WithExecutor overrides the task.Executor used for every transaction this
// container creates (default task.GoExecutor{}).
func WithExecutor(exec task.Executor) Option {
	return func(c *Container) { c.executor = exec }
}

// WithListenAddr sets the address the metrics scrape endpoint listens on,
// taking precedence over cfg.Metrics.ScrapeAddr. If neither is set, Run does
// not start an HTTP server.
func WithListenAddr(addr string) Option {
	return func(c *Container) { c.addr = addr }
}

// New builds a Container from cfg: a single registry named "default"
// (mscconfig describes no other registries), the metrics stack per
// cfg.Metrics, and the cron sweeps per cfg.Cron.
func New(cfg mscconfig.Config, logger *slog.Logger, opts ...Option) (*Container, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{}))
	}
	logger = logger.With("component", "container.Container")

	c := &Container{
		logger:        logger,
		txnController: txn.NewController(logger),
		executor:      task.GoExecutor{},
		registries:    map[string]*registry.Registry{"default": registry.NewRegistry("default")},
	}

	for _, opt := range opts {
		opt(c)
	}

	metricsRegistry, err := mscmetrics.NewScrapeRegistry()
	if err != nil {
		return nil, fmt.Errorf("creating metrics registry: %w", err)
	}
	if err := metricsRegistry.PrometheusRegistry().Register(mscmetrics.NewControllerCollector(c)); err != nil {
		return nil, fmt.Errorf("registering controller collector: %w", err)
	}
	c.metricsRegistry = metricsRegistry

	txnCounters, err := mscmetrics.NewTransactionCounters(metricsRegistry)
	if err != nil {
		return nil, fmt.Errorf("registering transaction counters: %w", err)
	}
	c.txnCounters = txnCounters

	if cfg.Metrics.PushURL != "" {
		c.pushClient = mscmetrics.NewPushClient(cfg.Metrics.PushURL, cfg.Metrics.Prefix)
	}

	sweeper := msccron.NewSweeper(c.txnController, c.executor, c, logger)
	if err := sweeper.AddRetrySchedule(cfg.Cron.RetrySchedule); err != nil {
		return nil, fmt.Errorf("scheduling retry sweep %q: %w", cfg.Cron.RetrySchedule, err)
	}
	if err := sweeper.AddAuditSchedule(cfg.Cron.AuditSchedule); err != nil {
		return nil, fmt.Errorf("scheduling audit sweep %q: %w", cfg.Cron.AuditSchedule, err)
	}
	c.sweeper = sweeper

	if cfg.Metrics.ScrapeAddr != "" && c.addr == "" {
		c.addr = cfg.Metrics.ScrapeAddr
	}

	return c, nil
}

// Logger returns the container's base logger.
func (c *Container) Logger() *slog.Logger { return c.logger }

// TxnController returns the container's root transaction controller,
// used by callers to open the read/update transactions builder.Install
// and service.Controller operations run against.
func (c *Container) TxnController() *txn.Controller { return c.txnController }

// Executor returns the task.Executor new transactions should use.
func (c *Container) Executor() task.Executor { return c.executor }

// Registry returns the named registry, creating an empty registry under that
// name on first access if it was not pre-declared.
func (c *Container) Registry(name string) *registry.Registry {
	if r, ok := c.registries[name]; ok {
		return r
	}
	r := registry.NewRegistry(name)
	c.registries[name] = r
	return r
}

// Registries returns every registry this container owns, in no
// particular order; used by builder.NewServiceContext's known-registries
// set.
func (c *Container) Registries() []*registry.Registry {
	all := make([]*registry.Registry, 0, len(c.registries))
	for _, r := range c.registries {
		all = append(all, r)
	}
	return all
}

// Controllers implements mscmetrics.ControllerLister and
// msccron.ControllerLister: every controller currently installed into any
// of this container's registries.
func (c *Container) Controllers() []*service.Controller {
	var out []*service.Controller
	for _, r := range c.registries {
		for _, reg := range r.All() {
			holder, ok := reg.Holder()
			if !ok {
				continue
			}
			if ctrl, ok := holder.(*service.Controller); ok {
				out = append(out, ctrl)
			}
		}
	}
	return out
}

// CreateUpdate opens a new update transaction against this container's
// txn.Controller using its configured executor, and wires every registry's
// ValidateRequiredDependencies as a post-prepare listener so a required
// dependency left unsatisfied blocks commit with a MISSING_DEPENDENCY
// problem (spec.md §4.3).
func (c *Container) CreateUpdate() (*txn.Transaction, error) {
	tx, err := c.txnController.CreateUpdate(c.executor)
	if err != nil {
		return nil, err
	}
	for _, r := range c.registries {
		r := r
		tx.AddPostPrepareListener(func(t *txn.Transaction) {
			r.ValidateRequiredDependencies(t.Report())
		})
	}
	return tx, nil
}

// Commit prepares and commits tx, recording the outcome against the
// committed/aborted transaction counters either way: a PREPARE or COMMIT
// failure (including a blocked commit) aborts tx and counts as an abort.
func (c *Container) Commit(ctx context.Context, tx *txn.Transaction) error {
	if err := tx.Prepare(ctx); err != nil {
		c.recordAbort()
		return err
	}
	if !tx.CanCommit() {
		c.recordAbort()
		return tx.Abort(ctx)
	}
	if err := tx.Commit(ctx); err != nil {
		c.recordAbort()
		return err
	}
	c.recordCommit()
	return nil
}

// Abort aborts tx and records it against the aborted-transaction counter.
func (c *Container) Abort(ctx context.Context, tx *txn.Transaction) error {
	c.recordAbort()
	return tx.Abort(ctx)
}

func (c *Container) recordCommit() {
	if c.txnCounters != nil {
		c.txnCounters.Committed.Inc()
	}
}

func (c *Container) recordAbort() {
	if c.txnCounters != nil {
		c.txnCounters.Aborted.Inc()
	}
}

// PushMetrics builds a service_up and a service_unsatisfied sample from
// each installed controller's snapshot and pushes them to the configured
// VictoriaMetrics endpoint. A no-op if no push URL was configured.
func (c *Container) PushMetrics(ctx context.Context) error {
	if c.pushClient == nil {
		return nil
	}
	snaps := c.Controllers()
	samples := make([]mscmetrics.Sample, 0, len(snaps)*2)
	for _, ctrl := range snaps {
		snap := ctrl.Snapshot()
		up := 0.0
		if snap.State == service.StateUp {
			up = 1
		}
		samples = append(samples,
			mscmetrics.Sample{Name: "service_up", Value: up, Labels: map[string]string{"service": snap.Name}},
			mscmetrics.Sample{Name: "service_unsatisfied", Value: float64(snap.Unsatisfied), Labels: map[string]string{"service": snap.Name}},
		)
	}
	return c.pushClient.Push(ctx, samples)
}

// Run serves the metrics scrape endpoint (if an address was configured)
// and the cron sweeps until ctx is cancelled, then shuts both down.
func (c *Container) Run(ctx context.Context) error {
	c.sweeper.Start(ctx)

	if c.addr == "" {
		<-ctx.Done()
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", c.metricsRegistry.Handler())
	c.httpServer = &http.Server{Addr: c.addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		c.logger.Info("starting metrics endpoint", "addr", c.addr)
		if err := c.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		c.logger.Info("shutting down container")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		return c.httpServer.Shutdown(shutdownCtx)
	}
}
