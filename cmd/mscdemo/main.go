// Command mscdemo loads a static service topology from a YAML config file,
// installs it into a container.Container, and runs until interrupted,
// logging every service's start/stop through the container's logger.
//
// Grounded on cmd/server/main.go: flag-parsed config path, LoadConfig,
// functional-options construction, SIGINT/SIGTERM-driven context
// cancellation handed to Run.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nomis52/msc/builder"
	"github.com/nomis52/msc/container"
	"github.com/nomis52/msc/msclog"
	"github.com/nomis52/msc/mscconfig"
	"github.com/nomis52/msc/name"
	"github.com/nomis52/msc/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to a mscconfig YAML topology file")
	listenAddr := flag.String("listen", "", "Address to serve /metrics on, overriding the config file")
	flag.Parse()

	if *configPath == "" {
		return fmt.Errorf("-config is required")
	}

	cfg, err := mscconfig.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg.Logging)
	logger.Info("configuration loaded", "config_path", *configPath, "services", len(cfg.Services))

	var opts []container.Option
	if *listenAddr != "" {
		opts = append(opts, container.WithListenAddr(*listenAddr))
	}

	c, err := container.New(cfg, logger, opts...)
	if err != nil {
		return fmt.Errorf("creating container: %w", err)
	}

	if err := installTopology(c, cfg); err != nil {
		return fmt.Errorf("installing topology: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	return c.Run(ctx)
}

func newLogger(cfg mscconfig.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	_ = level.UnmarshalText([]byte(cfg.Level))

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return msclog.New(slog.New(handler), "mscdemo")
}

// installTopology opens a single update transaction and installs every
// service named in cfg, wiring its aliases and dependency edges, then
// commits.
func installTopology(c *container.Container, cfg mscconfig.Config) error {
	tx, err := c.CreateUpdate()
	if err != nil {
		return err
	}

	reg := c.Registry("default")
	sc := builder.NewServiceContext(tx, c.Registries()...)

	for _, spec := range cfg.Services {
		sb := sc.AddService(reg, name.Of(spec.Name)).
			SetMode(spec.ResolveMode()).
			SetService(&demoService{name: spec.Name, logger: c.Logger()})

		if len(spec.Aliases) > 0 {
			aliases := make([]name.Name, 0, len(spec.Aliases))
			for _, a := range spec.Aliases {
				aliases = append(aliases, name.Of(a))
			}
			sb.AddAliases(aliases...)
		}

		for _, dep := range spec.Dependencies {
			sb.AddDependency(reg, name.Of(dep.Name), dep.ResolveOptions())
		}

		if _, err := sb.Install(); err != nil {
			return fmt.Errorf("installing service %q: %w", spec.Name, err)
		}
	}

	return c.Commit(context.Background(), tx)
}

// demoService is a placeholder Service used to demonstrate the topology:
// it logs and completes immediately on Start/Stop. Real deployments
// implement service.Service with actual startup/shutdown logic and wire
// it in from Go code, since the YAML topology only describes names, modes,
// and dependency edges, never executable behavior.
type demoService struct {
	name   string
	logger *slog.Logger
}

func (d *demoService) Start(ctx context.Context, sc *service.StartContext) {
	d.logger.Info("starting", "service", d.name, "time", time.Now().Format(time.RFC3339))
	sc.Complete()
}

func (d *demoService) Stop(ctx context.Context, sc *service.StopContext) {
	d.logger.Info("stopping", "service", d.name)
	sc.Complete()
}
