package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/venturescope/scout/internal/monitoring"
	"github.com/venturescope/scout/internal/server"
	"github.com/venturescope/scout/internal/service"
	"github.com/venturescope/scout/internal/worker"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the discovery API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		queue, cleanup, err := buildQueue(ctx, env)
		if err != nil {
			return err
		}
		defer cleanup()

		quota := service.NewMonthlyRunQuota(env.Store, service.DefaultTierLimits())
		svc := service.New(env.Store, queue, quota, env.Enricher)
		srv := server.New(svc, env.Store)

		if cfg.Monitoring.Enabled {
			collector := monitoring.NewCollector(env.Store, env.Spend,
				time.Duration(cfg.Monitoring.StuckPendingMins)*time.Minute)
			checker := monitoring.NewChecker(collector, monitoring.NewAlerter(cfg.Monitoring), cfg.Monitoring)
			go checker.Run(ctx)
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srv.Handler(),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.String("queue_backend", cfg.Queue.Backend))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildQueue selects the job queue backend. Inline runs jobs in this
// process; temporal only enqueues, with execution owned by `scout worker`.
func buildQueue(ctx context.Context, env *appEnv) (service.Queue, func(), error) {
	switch cfg.Queue.Backend {
	case "temporal":
		tcfg := temporalConfig()
		c, err := worker.NewTemporalClient(tcfg)
		if err != nil {
			return nil, nil, eris.Wrap(err, "connect temporal")
		}
		return worker.NewTemporalQueue(c, tcfg), c.Close, nil
	default:
		pool := worker.NewInlinePool(env.Pipeline, worker.InlineConfig{
			Concurrency:  cfg.Worker.Concurrency,
			MaxAttempts:  cfg.Worker.MaxAttempts,
			Backoff:      time.Duration(cfg.Worker.BackoffSecs) * time.Second,
			Wallclock:    time.Duration(cfg.Worker.WallclockSecs) * time.Second,
			DrainTimeout: time.Duration(cfg.Worker.DrainTimeoutSecs) * time.Second,
		})
		pool.Start(ctx)
		return pool, pool.Shutdown, nil
	}
}

func temporalConfig() worker.TemporalConfig {
	return worker.TemporalConfig{
		HostPort:    cfg.Queue.TemporalHostPort,
		Namespace:   cfg.Queue.TemporalNS,
		TaskQueue:   cfg.Queue.TaskQueue,
		Concurrency: cfg.Worker.Concurrency,
		JobBudget:   time.Duration(cfg.Worker.WallclockSecs) * time.Second,
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
