package main

import (
	"flag"
	"log/slog"
	"os"

	"kpicli/internal/app"
	"kpicli/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults to environment-only config)")
	flag.Parse()

	var (
		application *app.Application
		err         error
	)
	if *configPath != "" {
		var cfg *config.Config
		cfg, err = config.LoadFile(*configPath)
		if err != nil {
			slog.Error("Failed to load config file",
				slog.String("path", *configPath),
				slog.String("error", err.Error()))
			os.Exit(1)
		}
		application, err = app.NewWithConfig(cfg)
	} else {
		application, err = app.New()
	}
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
