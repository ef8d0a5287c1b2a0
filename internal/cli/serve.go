package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/courses/internal/catalog"
	"github.com/mesh-intelligence/courses/internal/observability"
	"github.com/mesh-intelligence/courses/internal/seed"
	"github.com/mesh-intelligence/courses/internal/server"
	"github.com/mesh-intelligence/courses/internal/web"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Long: `Serves the learner and teacher UI, the JSON API, /healthz and /metrics.
Flags override config.yaml and COURSES_* environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for flag, key := range map[string]string{
				"host":      cfgKeyHost,
				"port":      cfgKeyPort,
				"reset":     cfgKeyResetOnStart,
				"log-level": cfgKeyLogLevel,
			} {
				if err := a.v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return sysError("bind flag %s: %w", flag, err)
				}
			}
			return a.serve(cmd)
		},
	}
	cmd.Flags().String("host", "", "interface to bind (default 0.0.0.0)")
	cmd.Flags().Int("port", 0, "TCP port to listen on (default 8000)")
	cmd.Flags().Bool("reset", true, "replace the catalog with the demo courses on start")
	cmd.Flags().String("log-level", "", "debug, info, warn or error")
	return cmd
}

func (a *app) serve(cmd *cobra.Command) error {
	s, err := a.settings()
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cmd.OutOrStdout(), observability.LogOptions{
		Service: s.ServiceName,
		Level:   s.LogLevel,
		Format:  s.LogFormat,
	})
	if err != nil {
		return userError("logger: %w", err)
	}

	backend, dataDir, err := a.attach()
	if err != nil {
		return err
	}
	defer backend.Detach()

	if s.ResetOnStart {
		sum, err := seed.Load(backend)
		if err != nil {
			return sysError("seed: %w", err)
		}
		logger.Info("Demo catalog loaded", "courses", sum.Courses, "lessons", sum.Lessons, "quizzes", sum.Quizzes)
	}

	registry := prometheus.NewRegistry()
	collector := observability.NewCollector(s.ServiceName)
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collector,
	)

	handler, err := web.New(web.Options{
		Catalog:     catalog.New(backend, logger),
		Logger:      logger,
		Collector:   collector,
		Gatherer:    registry,
		DefaultUser: s.DefaultUser,
	})
	if err != nil {
		return sysError("web: %w", err)
	}

	srv, err := server.New(server.Config{
		Host:            s.Host,
		Port:            s.Port,
		ShutdownTimeout: s.ShutdownTimeout,
	}, handler, logger)
	if err != nil {
		return userError("%w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		logger.Error("Server failed to start", "err", err)
		return sysError("start server: %w", err)
	}
	logger.Info("Service started", "data_dir", dataDir, "address", srv.Address())

	return run(ctx, srv, logger)
}

// run blocks until ctx is done or the server fails, then stops the server.
func run(ctx context.Context, srv *server.Server, logger *log.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case err := <-srv.Err():
			return err
		case <-gctx.Done():
			return nil
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		return srv.Stop()
	})
	if err := g.Wait(); err != nil {
		return sysError("serve: %w", err)
	}
	return nil
}
