package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"spotwatch/internal/engine"
	"spotwatch/internal/handler/api"
	"spotwatch/internal/usecase"
	pkgch "spotwatch/pkg/clickhouse"
	"spotwatch/pkg/config"
	xhttp "spotwatch/pkg/http"
	pkgkafka "spotwatch/pkg/kafka"
	applogger "spotwatch/pkg/logger"
	"spotwatch/pkg/scheduler"
)

// App encapsulates the entire application lifecycle: the status poller,
// the daily reference refresh, the HTTP surface and the optional Kafka
// and ClickHouse infrastructure.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	poller    *engine.Poller
	refresher *usecase.ReferenceRefresher
	sched     *scheduler.Scheduler
	handler   *api.StatusHandler
	hub       *api.StatusHub

	producer *pkgkafka.Producer // nil when Kafka is disabled
	chClient *pkgch.Client      // nil when ClickHouse is disabled

	httpServer *xhttp.Server
}

// New creates an App with all dependencies wired.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	poller *engine.Poller,
	refresher *usecase.ReferenceRefresher,
	sched *scheduler.Scheduler,
	handler *api.StatusHandler,
	hub *api.StatusHub,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		poller:    poller,
		refresher: refresher,
		sched:     sched,
		handler:   handler,
		hub:       hub,
		producer:  producer,
		chClient:  chClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.producer != nil {
		a.log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   a.cfg.Log.CollectInterval,
			CountThreshold: a.cfg.Log.CollectThreshold,
			Topic:          a.cfg.Kafka.LogTopic,
			Publisher:      a.producer,
		})
	}

	// Resolve references before the first tick so deltas and quotes are
	// available from the start, then keep them fresh on the daily cron.
	if err := a.sched.RunNow(a.refresher); err != nil {
		a.log.Warn("initial reference refresh failed", applogger.Error(err))
	}
	if err := a.sched.AddJob(a.cfg.Reference.RefreshCron, a.refresher); err != nil {
		return err
	}
	a.sched.Start()

	a.poller.Start(ctx)

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithHost(a.cfg.Server.Host),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsEndpoint(a.cfg.Metrics.Enabled, a.cfg.Metrics.Path),
	)
	a.hub.RegisterRoutes(a.httpServer.Echo())
	if err := a.httpServer.Start(); err != nil {
		return err
	}
	a.log.Info("spotwatch started",
		applogger.String("symbol", a.cfg.Feed.Symbol),
		applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown(context.Background())
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	a.hub.Close()
	a.sched.Stop()
	a.poller.Wait()

	if a.producer != nil {
		a.log.RemoveCollector()
		if err := a.producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
