package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"kpicli/internal/config"
)

// Report browser selectors on the decision-support portal. Every report
// opens from the catalog search and renders a query form plus one result
// table.
const (
	omCatalogSearch = `//main//input[contains(@class, "catalog-search")]`
	omQueryStart    = `//*[@id="id_container"]/div[1]/div[1]/div[3]/div/div[2]/div[1]/input`
	omQueryEnd      = `//*[@id="id_container"]/div[1]/div[1]/div[3]/div/div[4]/div[1]/input`
	omQuerySubmit   = `//*[contains(@id, "fr-btn")]/div/em/button`
)

// orderReport names one work-order report and the result cell holding its
// indicator for the queried day.
type orderReport struct {
	field  string
	report string
	row    int
	col    int
}

// The work-order report catalog. One report per indicator; rows and
// columns point at the summary line of each result table.
var orderReports = []orderReport{
	{field: "ordersolve", report: "order completion pre-close", row: 2, col: 6},
	{field: "orderdeclaration", report: "order declaration rate", row: 2, col: 5},
	{field: "orderrepeat", report: "repeat orders same issue", row: 2, col: 4},
	{field: "tsorderoverrat", report: "repeat orders same issue", row: 2, col: 8},
	{field: "moveorder", report: "repeat orders", row: 2, col: 3},
	{field: "bandorder", report: "repeat orders", row: 2, col: 5},
	{field: "tsordersolve", report: "complaint order resolution", row: 2, col: 4},
	{field: "cxordersolve", report: "inquiry order resolution", row: 2, col: 4},
	{field: "gzordersolve", report: "fault order resolution", row: 2, col: 4},
	{field: "tsordertimerat", report: "complaint order timeliness", row: 2, col: 5},
	{field: "ydorderoverrat", report: "repeat orders mobile fault", row: 2, col: 7},
	{field: "kdorderoverrat", report: "repeat orders broadband fault", row: 2, col: 7},
	{field: "kdonlinepre", report: "broadband preprocessing", row: 2, col: 6},
	{field: "kdorderpre", report: "broadband fault timeliness", row: 2, col: 6},
}

// OrderMonitorPortal collects the work-order percentage indicators from
// the decision-support reporting portal, one report per field.
type OrderMonitorPortal struct {
	cfg    config.PortalConfig
	codes  CodeExtractor
	logger *slog.Logger
}

// NewOrderMonitorPortal creates the work-order report collector.
func NewOrderMonitorPortal(cfg config.PortalConfig, codes CodeExtractor, logger *slog.Logger) *OrderMonitorPortal {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderMonitorPortal{
		cfg:    cfg,
		codes:  codes,
		logger: logger.With(slog.String("portal", "order_monitor")),
	}
}

// Name implements Portal.
func (p *OrderMonitorPortal) Name() string { return "order_monitor" }

// Collect implements Portal. A failed report loses its field and moves on;
// the error return is reserved for the portal itself being unreachable.
func (p *OrderMonitorPortal) Collect(ctx context.Context, dayID string) (map[string]any, error) {
	date, err := QueryDate(dayID)
	if err != nil {
		return nil, err
	}

	if err := chromedp.Run(ctx, chromedp.Navigate(p.cfg.URL)); err != nil {
		return nil, fmt.Errorf("navigate order monitor portal: %w", err)
	}
	if err := loginIfPrompted(ctx, p.cfg, p.codes, p.logger); err != nil {
		return nil, err
	}

	values := map[string]any{}
	for _, rep := range orderReports {
		v, err := p.queryReport(ctx, rep, date)
		if err != nil {
			p.logger.WarnContext(ctx, "report query failed",
				slog.String("field", rep.field),
				slog.String("report", rep.report),
				slog.String("error", err.Error()))
			continue
		}
		p.logger.InfoContext(ctx, "indicator read",
			slog.String("field", rep.field), slog.String("value", v))
		values[rep.field] = v
	}
	return values, nil
}

// queryReport opens one report from the catalog, queries the day and reads
// the indicator cell.
func (p *OrderMonitorPortal) queryReport(ctx context.Context, rep orderReport, date string) (string, error) {
	repCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	err := chromedp.Run(repCtx,
		chromedp.WaitVisible(omCatalogSearch, chromedp.BySearch),
		clearAndType(omCatalogSearch, rep.report),
		chromedp.Sleep(2*time.Second),
		chromedp.Click(fmt.Sprintf(`//a[contains(text(), %q)]`, rep.report), chromedp.BySearch),
		chromedp.WaitVisible(omQuerySubmit, chromedp.BySearch),
		setDateInput(omQueryStart, date),
		setDateInput(omQueryEnd, date),
		chromedp.Click(omQuerySubmit, chromedp.BySearch),
		chromedp.Sleep(5*time.Second),
	)
	if err != nil {
		return "", err
	}

	cell := fmt.Sprintf(`//table[1]/tbody[1]/tr[%d]/td[%d]`, rep.row, rep.col)
	v, ok := readText(repCtx, cell)
	if !ok {
		return "", fmt.Errorf("result cell row %d col %d not found", rep.row, rep.col)
	}
	return v, nil
}

// clearAndType replaces the content of a text input.
func clearAndType(xpath, text string) chromedp.Action {
	return chromedp.Tasks{
		chromedp.SetValue(xpath, "", chromedp.BySearch),
		chromedp.SendKeys(xpath, text, chromedp.BySearch),
	}
}
