package scraper

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// Portal fetches the raw indicator values one web portal publishes for a
// given day. Values come back as the portal renders them; normalization
// happens downstream in the ingestion service.
type Portal interface {
	Name() string
	Collect(ctx context.Context, dayID string) (map[string]any, error)
}

// CodeExtractor pulls a one-time code out of notification text during a
// portal login. The answer-extraction agent client implements it.
type CodeExtractor interface {
	ExtractCode(ctx context.Context, text string) (string, error)
}

// readTimeout bounds each individual element read so one missing cell
// cannot stall the whole collection run.
const readTimeout = 10 * time.Second

// IndicatorSelector builds the xpath for one indicator cell on the
// operations dashboard. Cells carry a colbeyond-<field>-0 class.
func IndicatorSelector(field string) string {
	return fmt.Sprintf(`//span[contains(@class, "colbeyond-%s-0")]`, field)
}

// readIndicator reads the text of one dashboard cell. A missing cell is
// reported as absent, not as an error.
func readIndicator(ctx context.Context, field string) (string, bool) {
	return readText(ctx, IndicatorSelector(field))
}

func readText(ctx context.Context, xpath string) (string, bool) {
	readCtx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var text string
	err := chromedp.Run(readCtx,
		chromedp.Text(xpath, &text, chromedp.BySearch),
	)
	if err != nil {
		return "", false
	}
	text = strings.TrimSpace(text)
	return text, text != ""
}

// SelfServiceRate derives the self-service share of total call volume:
// (total - manual) / total * 100, formatted to two decimals. A zero or
// unparseable total yields no value.
func SelfServiceRate(total, manual string) (string, bool) {
	totalF, err := strconv.ParseFloat(strings.TrimSpace(total), 64)
	if err != nil || totalF == 0 {
		return "", false
	}
	manualF, err := strconv.ParseFloat(strings.TrimSpace(manual), 64)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%.2f", (totalF-manualF)/totalF*100), true
}

// TotalVolume derives the hotline total as self-service plus manual calls.
func TotalVolume(selfServe, manual string) (string, bool) {
	selfN, err := strconv.ParseInt(strings.TrimSpace(selfServe), 10, 64)
	if err != nil {
		return "", false
	}
	manualN, err := strconv.ParseInt(strings.TrimSpace(manual), 10, 64)
	if err != nil {
		return "", false
	}
	return strconv.FormatInt(selfN+manualN, 10), true
}

// QueryDate renders a day id the way the portal date pickers expect it.
func QueryDate(dayID string) (string, error) {
	t, err := time.Parse("20060102", dayID)
	if err != nil {
		return "", fmt.Errorf("parse day id %q: %w", dayID, err)
	}
	return t.Format("2006-01-02"), nil
}

// setDateInput writes a date into a picker input via the DOM, firing the
// input event so the portal's framework picks the change up.
func setDateInput(xpath, value string) chromedp.Action {
	js := fmt.Sprintf(`(() => {
		const el = document.evaluate(%q, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
		if (!el) return false;
		el.value = %q;
		el.dispatchEvent(new Event('input', {bubbles: true}));
		el.dispatchEvent(new Event('change', {bubbles: true}));
		return true;
	})()`, xpath, value)
	var ok bool
	return chromedp.Evaluate(js, &ok)
}
