package scraper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chromedp/chromedp"

	"kpicli/internal/config"
)

// Result cells on the IM operations support platform. Both report views
// render one summary table; the session view carries the text-service
// volume and 5-minute connect rate, the remote-counter view carries the
// counter volume and 25-second connect rate.
const (
	imSessionVolumeCell = `//table[1]/tbody[1]/tr[2]/td[2]`
	imSessionRateCell   = `//table[1]/tbody[1]/tr[2]/td[11]`
	imCounterVolumeCell = `//table[1]/tbody[1]/tr[2]/td[2]`
	imCounterRateCell   = `//table[1]/tbody[1]/tr[2]/td[6]`
)

// IMPortal collects the text-service indicators from the IM operations
// support platform: the text customer-service call-in volume and 5-minute
// connect rate, plus the remote-counter volume and connect rate from the
// companion report view when a report URL is configured.
type IMPortal struct {
	cfg    config.PortalConfig
	codes  CodeExtractor
	logger *slog.Logger
}

// NewIMPortal creates the IM-platform collector.
func NewIMPortal(cfg config.PortalConfig, codes CodeExtractor, logger *slog.Logger) *IMPortal {
	if logger == nil {
		logger = slog.Default()
	}
	return &IMPortal{
		cfg:    cfg,
		codes:  codes,
		logger: logger.With(slog.String("portal", "im")),
	}
}

// Name implements Portal.
func (p *IMPortal) Name() string { return "im" }

// Collect implements Portal. Each report view losing its cells costs its
// fields, never the portal.
func (p *IMPortal) Collect(ctx context.Context, dayID string) (map[string]any, error) {
	if _, err := QueryDate(dayID); err != nil {
		return nil, err
	}

	if err := chromedp.Run(ctx, chromedp.Navigate(p.cfg.URL)); err != nil {
		return nil, fmt.Errorf("navigate im portal: %w", err)
	}
	if err := loginIfPrompted(ctx, p.cfg, p.codes, p.logger); err != nil {
		return nil, err
	}

	values := map[string]any{}
	read := func(xpath, field string) (string, bool) {
		v, ok := readText(ctx, xpath)
		if !ok {
			p.logger.WarnContext(ctx, "indicator cell not found", slog.String("field", field))
			return "", false
		}
		p.logger.InfoContext(ctx, "indicator read",
			slog.String("field", field), slog.String("value", v))
		return v, true
	}

	if v, ok := read(imSessionVolumeCell, "wordCallinCt"); ok {
		values["wordCallinCt"] = v
	}
	if v, ok := read(imSessionRateCell, "word5Rate"); ok {
		values["word5Rate"] = v
	}

	// The remote-counter report is a separate view on the same platform.
	if p.cfg.ReportURL != "" {
		if err := chromedp.Run(ctx, chromedp.Navigate(p.cfg.ReportURL)); err != nil {
			p.logger.WarnContext(ctx, "remote-counter report unavailable",
				slog.String("error", err.Error()))
			return values, nil
		}
		if v, ok := read(imCounterVolumeCell, "farCabinetCt"); ok {
			values["farCabinetCt"] = v
		}
		if v, ok := read(imCounterRateCell, "farCabinetRate"); ok {
			values["farCabinetRate"] = v
		}
	}

	return values, nil
}
