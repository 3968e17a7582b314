package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"kpicli/internal/agent"
	"kpicli/internal/config"
	"kpicli/internal/indicator"
	"kpicli/internal/infrastructure"
	"kpicli/internal/ingest"
	"kpicli/internal/scraper"
	"kpicli/internal/store"
)

// collect-once runs a single collection batch and exits. It is meant for
// manual backfills and for cron-style setups where the long-running
// collector daemon is not wanted.
func main() {
	var logger *slog.Logger
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("PANIC RECOVERED: %v\n", r)
			fmt.Printf("Stack trace:\n%s\n", debug.Stack())
			if logger != nil {
				logger.Error("collect-once panicked",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())))
			}
			os.Exit(1)
		}
	}()

	configPath := flag.String("config", "", "path to config file (defaults to environment-only config)")
	day := flag.String("day", "", "day to collect as YYYYMMDD (defaults to yesterday)")
	portalNames := flag.String("portals", "", "comma-separated portal names to run (defaults to all enabled)")
	headless := flag.Bool("headless", true, "run browser headless")
	dryRun := flag.Bool("dry-run", false, "collect and log values without writing to the database")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Printf("Warning: Failed to load config, using defaults: %v\n", err)
		cfg = config.Default()
	}
	cfg.Browser.Headless = *headless

	logger, err = infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Printf("Warning: Failed to initialize logger, using default: %v\n", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	dayID := *day
	if dayID == "" {
		dayID = indicator.Yesterday(time.Now().In(cfg.Location()))
	}
	if !indicator.ValidDayID(dayID) {
		logger.Error("invalid --day value", slog.String("day", *day))
		fmt.Printf("Error: --day must be YYYYMMDD, got %q\n", *day)
		os.Exit(1)
	}

	var st store.Store
	if *dryRun || cfg.Database.InMemory {
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

	codes := agent.NewClient(cfg.Agent, logger)
	portals := selectPortals(cfg, codes, logger, *portalNames)
	if len(portals) == 0 {
		logger.Error("no portals selected", slog.String("filter", *portalNames))
		os.Exit(1)
	}

	runner := scraper.NewRunner(
		scraper.NewBrowser(cfg.Browser),
		ingest.New(st, logger, nil),
		logger, nil, portals...)

	logger.Info("collection batch starting",
		slog.String("day_id", dayID),
		slog.Int("portals", len(portals)),
		slog.Bool("dry_run", *dryRun))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Browser.RunTimeout)
	defer cancel()

	rec, err := runner.Run(ctx, dayID)
	if err != nil {
		logger.Error("collection batch failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if rec == nil {
		logger.Warn("collection batch produced no values", slog.String("day_id", dayID))
		return
	}

	logger.Info("collection batch finished",
		slog.String("day_id", dayID),
		slog.Int("fields", rec.Len()),
		slog.Any("field_names", rec.Fields()))
}

// selectPortals builds enabled portals, optionally filtered by a
// comma-separated name list from --portals.
func selectPortals(cfg *config.Config, codes scraper.CodeExtractor, logger *slog.Logger, filter string) []scraper.Portal {
	wanted := map[string]bool{}
	for _, name := range strings.Split(filter, ",") {
		if name = strings.TrimSpace(name); name != "" {
			wanted[name] = true
		}
	}
	keep := func(name string) bool {
		return len(wanted) == 0 || wanted[name]
	}

	var portals []scraper.Portal
	if cfg.Portals.CallCenter.Enabled {
		if p := scraper.NewCallCenterPortal(cfg.Portals.CallCenter, codes, logger); keep(p.Name()) {
			portals = append(portals, p)
		}
	}
	if cfg.Portals.IM.Enabled {
		if p := scraper.NewIMPortal(cfg.Portals.IM, codes, logger); keep(p.Name()) {
			portals = append(portals, p)
		}
	}
	if cfg.Portals.Intelligent.Enabled {
		if p := scraper.NewIntelligentPortal(cfg.Portals.Intelligent, codes, logger); keep(p.Name()) {
			portals = append(portals, p)
		}
	}
	if cfg.Portals.OrderMonitor.Enabled {
		if p := scraper.NewOrderMonitorPortal(cfg.Portals.OrderMonitor, codes, logger); keep(p.Name()) {
			portals = append(portals, p)
		}
	}
	return portals
}
