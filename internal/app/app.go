package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/velocity-9/v9-router/internal/balancer"
	"github.com/velocity-9/v9-router/internal/config"
	"github.com/velocity-9/v9-router/internal/forward"
	"github.com/velocity-9/v9-router/internal/httpapi"
	"github.com/velocity-9/v9-router/internal/platform/logger"
	"github.com/velocity-9/v9-router/internal/worker"
)

type App struct {
	Log    *logger.Logger
	Config *config.Config

	lb     *balancer.LoadBalancer
	server *http.Server
}

// New wires the router: configuration, logger, the worker fleet, the load
// balancer (which starts its background refresher), the forwarder, and the
// HTTP server. The worker set is fixed here for the lifetime of the process.
func New(developmentMode bool) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if developmentMode {
		cfg.Env = "development"
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if developmentMode {
		log.Info("starting in development mode")
	}

	workers := make([]balancer.Node, 0, len(cfg.Workers.URLs))
	for _, u := range cfg.Workers.URLs {
		workers = append(workers, worker.New(u, cfg.Workers.Timeout.Duration))
	}
	log.Info("router starting", "workers", len(workers), "addr", cfg.HTTP.Addr)

	lb := balancer.New(workers, cfg.Workers.RefreshInterval.Duration, log)
	fw := forward.New(lb, log)
	srv := httpapi.NewServer(cfg, log, fw)

	return &App{
		Log:    log,
		Config: cfg,
		lb:     lb,
		server: srv,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.Log.Sync()
	defer a.lb.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout.Duration)
		defer cancel()
		_ = a.server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
