package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ThetaHarvest/internal/domain/repository"
	"ThetaHarvest/internal/scheduler"
	"ThetaHarvest/pkg/config"
	xhttp "ThetaHarvest/pkg/http"
	"ThetaHarvest/pkg/logger"
)

// App owns the process lifecycle: the HTTP server, the nightly scan
// scheduler and the infrastructure clients behind them.
type App struct {
	cfg        *config.Config
	log        *logger.Logger
	httpServer *xhttp.Server
	sched      *scheduler.Scheduler
	store      repository.Store
	pub        repository.ScanPublisher
}

func New(
	cfg *config.Config,
	log *logger.Logger,
	handler xhttp.Handler,
	sched *scheduler.Scheduler,
	store repository.Store,
	pub repository.ScanPublisher,
) *App {
	httpServer := xhttp.NewServer(handler,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(log),
	)
	return &App{
		cfg:        cfg,
		log:        log,
		httpServer: httpServer,
		sched:      sched,
		store:      store,
		pub:        pub,
	}
}

// Run starts everything and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.store.Init(ctx); err != nil {
		return err
	}

	if err := a.sched.Start(ctx); err != nil {
		return err
	}
	if err := a.httpServer.Start(); err != nil {
		return err
	}
	a.log.Info("application started",
		logger.String("environment", a.cfg.Environment),
		logger.Int("port", a.cfg.Server.Port),
		logger.String("storage", a.cfg.Storage.Backend))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

func (a *App) shutdown(ctx context.Context) error {
	a.sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", logger.Error(err))
	}

	if a.pub != nil {
		if err := a.pub.Close(); err != nil {
			a.log.Warn("publisher close error", logger.Error(err))
		}
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("store close error", logger.Error(err))
	}

	a.log.Info("shutdown complete")
	return nil
}
