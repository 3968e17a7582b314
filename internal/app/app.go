package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"kpicli/internal/agent"
	"kpicli/internal/config"
	"kpicli/internal/indicator"
	"kpicli/internal/infrastructure"
	"kpicli/internal/ingest"
	"kpicli/internal/scheduler"
	"kpicli/internal/scraper"
	"kpicli/internal/store"
	transport "kpicli/internal/transport/http"
)

// Application holds the wired collector components.
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     store.Store
	Ingest    *ingest.Service
	Runner    *scraper.Runner
	Scheduler *scheduler.Scheduler
	Server    *http.Server
	Metrics   *infrastructure.Metrics
}

// New loads configuration and wires the application.
func New() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig wires the application from an already-loaded configuration.
func NewWithConfig(cfg *config.Config) (*Application, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := infrastructure.NewMetrics(registry)

	var st store.Store
	if cfg.Database.InMemory {
		logger.Warn("using in-memory indicator store, data will not survive restarts")
		st = store.NewMemory()
	} else {
		st = store.NewPostgres(store.Config{
			Host:           cfg.Database.Host,
			Port:           cfg.Database.Port,
			User:           cfg.Database.User,
			Password:       cfg.Database.Password,
			Database:       cfg.Database.Name,
			Table:          cfg.Database.Table,
			AppName:        cfg.Database.AppName,
			ConnectTimeout: cfg.Database.ConnectTimeout,
			MaxRetries:     cfg.Database.MaxRetries,
			RetryDelay:     cfg.Database.RetryDelay,
		}, logger)
	}

	ingestSvc := ingest.New(st, logger, metrics)
	codes := agent.NewClient(cfg.Agent, logger)
	browser := scraper.NewBrowser(cfg.Browser)

	var portals []scraper.Portal
	if cfg.Portals.CallCenter.Enabled {
		portals = append(portals, scraper.NewCallCenterPortal(cfg.Portals.CallCenter, codes, logger))
	}
	if cfg.Portals.IM.Enabled {
		portals = append(portals, scraper.NewIMPortal(cfg.Portals.IM, codes, logger))
	}
	if cfg.Portals.Intelligent.Enabled {
		portals = append(portals, scraper.NewIntelligentPortal(cfg.Portals.Intelligent, codes, logger))
	}
	decisionPortals := []scraper.Portal{}
	if cfg.Portals.OrderMonitor.Enabled {
		decisionPortals = append(decisionPortals, scraper.NewOrderMonitorPortal(cfg.Portals.OrderMonitor, codes, logger))
	}

	runner := scraper.NewRunner(browser, ingestSvc, logger, metrics, portals...)
	decisionRunner := scraper.NewRunner(browser, ingestSvc, logger, metrics, decisionPortals...)

	sched := scheduler.New(cfg.Location(), logger, metrics)
	dailyAt, err := config.ParseClockTime(cfg.Schedule.DailyAt)
	if err != nil {
		return nil, err
	}
	decisionAt, err := config.ParseClockTime(cfg.Schedule.DecisionAt)
	if err != nil {
		return nil, err
	}
	sched.AddDaily("collect", dailyAt, func(ctx context.Context) error {
		_, err := runner.Run(ctx, indicator.Yesterday(time.Now()))
		return err
	})
	sched.AddDaily("collect_decision", decisionAt, func(ctx context.Context) error {
		_, err := decisionRunner.Run(ctx, indicator.Yesterday(time.Now()))
		return err
	})
	sched.AddPeriodic("store_ping", cfg.Schedule.RefreshInterval, func(ctx context.Context) error {
		return st.Ping(ctx)
	})

	router := transport.NewRouter(transport.RouterConfig{
		Health:     transport.NewHealthHandler(st, logger),
		Indicators: transport.NewIndicatorHandler(ingestSvc, logger),
		Operations: transport.NewOperationsHandler(runner, logger),
		Metrics:    promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Logger:     logger,
		APITimeout: cfg.Server.ReadTimeout,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Application{
		Config:    cfg,
		Logger:    logger,
		Store:     st,
		Ingest:    ingestSvc,
		Runner:    runner,
		Scheduler: sched,
		Server:    server,
		Metrics:   metrics,
	}, nil
}

// Run starts the HTTP server and the scheduler and blocks until a signal
// or a fatal component error, then shuts down gracefully.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Logger.Info("collector starting",
		slog.Int("port", a.Config.Server.Port),
		slog.String("daily_at", a.Config.Schedule.DailyAt),
		slog.String("decision_at", a.Config.Schedule.DecisionAt))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := a.Scheduler.Start(gctx); err != nil && err != context.Canceled {
			return fmt.Errorf("scheduler: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()
		a.Logger.Info("shutting down")
		return a.Server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	infrastructure.CloseLogFile()
	if err != nil && err != context.Canceled {
		return err
	}
	a.Logger.Info("collector stopped")
	return nil
}
