package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"kpicli/internal/config"
	"kpicli/internal/scraper"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Portals.CallCenter.Enabled = true
	cfg.Portals.CallCenter.URL = "http://callcenter.internal"
	cfg.Portals.IM.Enabled = true
	cfg.Portals.IM.URL = "http://im.internal"
	cfg.Portals.Intelligent.Enabled = true
	cfg.Portals.Intelligent.URL = "http://intelligent.internal"
	cfg.Portals.OrderMonitor.Enabled = true
	cfg.Portals.OrderMonitor.URL = "http://orders.internal"
	return cfg
}

func portalNames(portals []scraper.Portal) []string {
	names := make([]string, 0, len(portals))
	for _, p := range portals {
		names = append(names, p.Name())
	}
	return names
}

func TestSelectPortalsAllEnabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	portals := selectPortals(testConfig(), nil, logger, "")
	assert.Len(t, portals, 4)
}

func TestSelectPortalsFilter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	portals := selectPortals(testConfig(), nil, logger, "call_center")
	assert.Equal(t, []string{"call_center"}, portalNames(portals))

	portals = selectPortals(testConfig(), nil, logger, " im , order_monitor ")
	assert.Len(t, portals, 2)

	portals = selectPortals(testConfig(), nil, logger, "nope")
	assert.Empty(t, portals)
}

func TestSelectPortalsDisabledSkipped(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := testConfig()
	cfg.Portals.Intelligent.Enabled = false
	portals := selectPortals(cfg, nil, logger, "")
	assert.Equal(t, []string{"call_center", "im", "order_monitor"}, portalNames(portals))
}
