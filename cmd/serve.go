package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"mlwh-sync/core/loader"
	"mlwh-sync/core/logger"
	"mlwh-sync/core/metrics"
	"mlwh-sync/core/middleware/auth"
	"mlwh-sync/core/middleware/rayid"
	"mlwh-sync/core/server"
	"mlwh-sync/feature/integrity"
	"mlwh-sync/feature/platforms"
	syncfeature "mlwh-sync/feature/sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"start"},
	Short:   "Start the HTTP server",
	Long: `Starts the HTTP server exposing sync triggers, integrity checks, health and
Prometheus metrics. When server.sync_interval is set, runs are also scheduled.`,
	RunE: runServe,
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

// newApp builds the fiber application: request id, request logging, API key
// auth, then the features. /health and /metrics are public.
func newApp(cfg server.Config, logg *zap.Logger, gatherer prometheus.Gatherer, features ...loader.Feature) (*fiber.App, []string, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// RayID must be first to trace everything.
	app.Use(rayid.New())

	app.Use(func(c *fiber.Ctx) error {
		l := logger.WithRayID(logg, c)
		l.Info("Request started",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
		)
		err := c.Next()
		if err != nil {
			l.Error("Request error", zap.Error(err))
		}
		return err
	})

	app.Use(auth.New(auth.Config{ApiKey: cfg.ApiKey, Public: []string{"/health", "/metrics"}}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	mgr := loader.NewManager()
	for _, f := range features {
		mgr.Register(f)
	}
	loaded, err := mgr.LoadAll(app)
	if err != nil {
		return nil, loaded, err
	}
	return app, loaded, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap(ctx, needs{warehouse: true, target: true, archive: true})
	if err != nil {
		return err
	}
	defer rt.Close()
	logg := rt.log
	zap.ReplaceGlobals(logg)

	interval, err := rt.cfg.Server.Interval()
	if err != nil {
		return fmt.Errorf("invalid server.sync_interval: %w", err)
	}

	if rt.archive != nil {
		if err := rt.archive.EnsureBucket(ctx); err != nil {
			logg.Warn("Report bucket unavailable", zap.Error(err))
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	syncSvc := syncfeature.NewService(syncfeature.Deps{
		Warehouse: rt.warehouse,
		Target:    rt.target,
		Defaults:  rt.cfg.Sync,
		Archive:   rt.archive,
		Metrics:   metrics.New(reg),
		Logger:    logg,
	})
	checkSvc := integrity.NewService(rt.warehouse, platforms.Tables(platforms.All()), rt.target.Store, rt.archive, logg)

	app, loaded, err := newApp(rt.cfg.Server, logg, reg,
		syncfeature.NewFeature(syncSvc, logg),
		integrity.NewFeature(checkSvc),
	)
	if err != nil {
		return fmt.Errorf("failed to load features: %w", err)
	}
	logg.Info("Features loaded", zap.Strings("features", loaded))

	if interval > 0 {
		logg.Info("Scheduling sync runs", zap.Duration("interval", interval))
		go syncSvc.Schedule(ctx, interval)
	}

	errc := make(chan error, 1)
	go func() {
		logg.Info("Starting server", zap.String("port", rt.cfg.Server.Port))
		errc <- app.Listen(":" + rt.cfg.Server.Port)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logg.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(rt.cfg.Server.ShutdownTimeout()); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
