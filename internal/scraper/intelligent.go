package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"kpicli/internal/config"
)

// Result table cells on the intelligent customer-service dashboard.
const (
	icQuerySubmit  = `//*[@id="app"]/div[1]/form/div[3]/div/button[1]`
	icShareCell    = `//*[@id="app"]/div[3]/div/div[3]/table/tbody/tr/td[6]/div`
	icTransferCell = `//*[@id="app"]/div[3]/div/div[3]/table/tbody/tr/td[8]/div`
	dhVolumeCell   = `//section//table/tbody/tr/td[3]/div`
)

// IntelligentPortal collects the bot service share and bot-to-human
// transfer rate from the intelligent customer-service platform, plus the
// digital-human service volume from its companion report when a report
// URL is configured.
type IntelligentPortal struct {
	cfg    config.PortalConfig
	codes  CodeExtractor
	logger *slog.Logger
}

// NewIntelligentPortal creates the intelligent-platform collector.
func NewIntelligentPortal(cfg config.PortalConfig, codes CodeExtractor, logger *slog.Logger) *IntelligentPortal {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntelligentPortal{
		cfg:    cfg,
		codes:  codes,
		logger: logger.With(slog.String("portal", "intelligent")),
	}
}

// Name implements Portal.
func (p *IntelligentPortal) Name() string { return "intelligent" }

// Collect implements Portal.
func (p *IntelligentPortal) Collect(ctx context.Context, dayID string) (map[string]any, error) {
	if _, err := QueryDate(dayID); err != nil {
		return nil, err
	}

	if err := chromedp.Run(ctx, chromedp.Navigate(p.cfg.URL)); err != nil {
		return nil, fmt.Errorf("navigate intelligent portal: %w", err)
	}
	if err := loginIfPrompted(ctx, p.cfg, p.codes, p.logger); err != nil {
		return nil, err
	}

	err := chromedp.Run(ctx,
		chromedp.WaitVisible(icQuerySubmit, chromedp.BySearch),
		chromedp.Click(icQuerySubmit, chromedp.BySearch),
		chromedp.Sleep(3*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("query intelligent dashboard: %w", err)
	}

	values := map[string]any{}
	if v, ok := readText(ctx, icShareCell); ok {
		p.logger.InfoContext(ctx, "indicator read",
			slog.String("field", "intelligentCus"), slog.String("value", v))
		values["intelligentCus"] = v
	} else {
		p.logger.WarnContext(ctx, "bot service share cell not found")
	}
	if v, ok := readText(ctx, icTransferCell); ok {
		p.logger.InfoContext(ctx, "indicator read",
			slog.String("field", "intelligentRgRate"), slog.String("value", v))
		values["intelligentRgRate"] = v
	} else {
		p.logger.WarnContext(ctx, "transfer rate cell not found")
	}

	if p.cfg.ReportURL != "" {
		if v, ok := p.collectDigitalHumanVolume(ctx); ok {
			values["digitalhumancnt"] = v
		}
	}

	return values, nil
}

func (p *IntelligentPortal) collectDigitalHumanVolume(ctx context.Context) (string, bool) {
	if err := chromedp.Run(ctx, chromedp.Navigate(p.cfg.ReportURL)); err != nil {
		p.logger.WarnContext(ctx, "digital-human report unavailable", slog.String("error", err.Error()))
		return "", false
	}
	v, ok := readText(ctx, dhVolumeCell)
	if !ok {
		p.logger.WarnContext(ctx, "digital-human volume cell not found")
	}
	return v, ok
}
