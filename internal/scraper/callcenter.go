package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"kpicli/internal/config"
)

// Dashboard selectors on the call-center operations platform. The key
// indicator view renders one cell per field with a colbeyond class.
const (
	ccSearchButton  = `//button[@id="searchColClass-search"]`
	ccDateInput     = `//form[1]//div[contains(@class, "date-range")]//input[1]`
	ccQueueInput    = `//form[1]//div[contains(@class, "skill-queue")]//input[1]`
	ccReportCell    = `//table[1]/tbody[1]/tr[2]/td[7]`
	elderCareFilter = "elder"
)

// CallCenterPortal collects the voice-hotline indicators from the call
// center operations dashboard: manual call-in volume, 15s connect rate,
// first-call resolution rate, self-service volumes and their derived
// shares, the elder-care connect rate and the repeat-call rate.
type CallCenterPortal struct {
	cfg    config.PortalConfig
	codes  CodeExtractor
	logger *slog.Logger
}

// NewCallCenterPortal creates the call-center collector.
func NewCallCenterPortal(cfg config.PortalConfig, codes CodeExtractor, logger *slog.Logger) *CallCenterPortal {
	if logger == nil {
		logger = slog.Default()
	}
	return &CallCenterPortal{
		cfg:    cfg,
		codes:  codes,
		logger: logger.With(slog.String("portal", "call_center")),
	}
}

// Name implements Portal.
func (p *CallCenterPortal) Name() string { return "call_center" }

// Collect implements Portal. Fields the dashboard does not render for the
// day are simply left out of the result.
func (p *CallCenterPortal) Collect(ctx context.Context, dayID string) (map[string]any, error) {
	date, err := QueryDate(dayID)
	if err != nil {
		return nil, err
	}

	if err := chromedp.Run(ctx, chromedp.Navigate(p.cfg.URL)); err != nil {
		return nil, fmt.Errorf("navigate call center portal: %w", err)
	}
	if err := loginIfPrompted(ctx, p.cfg, p.codes, p.logger); err != nil {
		return nil, err
	}
	if err := p.openKeyIndicators(ctx, date); err != nil {
		return nil, err
	}

	values := map[string]any{}
	read := func(field string) (string, bool) {
		v, ok := readIndicator(ctx, field)
		if !ok {
			p.logger.WarnContext(ctx, "indicator cell not found", slog.String("field", field))
			return "", false
		}
		p.logger.InfoContext(ctx, "indicator read",
			slog.String("field", field), slog.String("value", v))
		return v, true
	}

	manualCalls, haveManual := read("artCallinCt")
	if haveManual {
		values["artCallinCt"] = manualCalls
	}

	// connCt is the hotline total; it feeds artconn verbatim and the
	// self-service share derivation.
	if total, ok := read("connCt"); ok {
		values["artconn"] = total
		if haveManual {
			if rate, ok := SelfServiceRate(total, manualCalls); ok {
				values["seifservicerate"] = rate
			} else {
				p.logger.WarnContext(ctx, "self-service rate not derivable",
					slog.String("total", total), slog.String("manual", manualCalls))
			}
		}
	}

	if v, ok := read("conn15Rate"); ok {
		values["conn15Rate"] = v
	}
	if v, ok := read("onceRate"); ok {
		values["onceRate"] = v
	}

	if selfServe, ok := read("auto10000CallinCt"); ok {
		values["wanselfcnt"] = selfServe
		if haveManual {
			if volume, ok := TotalVolume(selfServe, manualCalls); ok {
				values["wanvolumecnt"] = volume
			} else {
				p.logger.WarnContext(ctx, "total volume not derivable",
					slog.String("self_serve", selfServe), slog.String("manual", manualCalls))
			}
		}
	}

	// The elder-care connect rate lives behind a skill-queue filter on the
	// same view. Failure here loses one field, not the portal.
	if v, ok := p.collectElderCareRate(ctx); ok {
		values["artConnRt"] = v
	}

	// The repeat-call rate comes from a separate high-frequency report.
	if p.cfg.ReportURL != "" {
		if v, ok := p.collectRepeatRate(ctx); ok {
			values["repeatRate"] = v
		}
	}

	return values, nil
}

// openKeyIndicators switches the dashboard to the key indicator view and
// runs the query for the requested day.
func (p *CallCenterPortal) openKeyIndicators(ctx context.Context, date string) error {
	err := chromedp.Run(ctx,
		chromedp.WaitVisible(ccSearchButton, chromedp.BySearch),
		setDateInput(ccDateInput, date),
		chromedp.Click(ccSearchButton, chromedp.BySearch),
		chromedp.Sleep(2*time.Second),
	)
	if err != nil {
		return fmt.Errorf("query key indicators for %s: %w", date, err)
	}
	return nil
}

func (p *CallCenterPortal) collectElderCareRate(ctx context.Context) (string, bool) {
	err := chromedp.Run(ctx,
		chromedp.WaitVisible(ccQueueInput, chromedp.BySearch),
		chromedp.SendKeys(ccQueueInput, elderCareFilter, chromedp.BySearch),
		chromedp.Sleep(2*time.Second),
		chromedp.Click(ccSearchButton, chromedp.BySearch),
		chromedp.Sleep(3*time.Second),
	)
	if err != nil {
		p.logger.WarnContext(ctx, "elder-care queue filter failed", slog.String("error", err.Error()))
		return "", false
	}
	v, ok := readIndicator(ctx, "artConnRt")
	if !ok {
		p.logger.WarnContext(ctx, "elder-care connect rate not found")
	}
	return v, ok
}

func (p *CallCenterPortal) collectRepeatRate(ctx context.Context) (string, bool) {
	if err := chromedp.Run(ctx, chromedp.Navigate(p.cfg.ReportURL)); err != nil {
		p.logger.WarnContext(ctx, "high-frequency report unavailable", slog.String("error", err.Error()))
		return "", false
	}
	v, ok := readText(ctx, ccReportCell)
	if !ok {
		p.logger.WarnContext(ctx, "repeat-call rate cell not found")
	}
	return v, ok
}
