// Package scraper drives the internal web portals with a headless browser
// and feeds the values it reads into the ingestion service.
package scraper

import (
	"context"

	"github.com/chromedp/chromedp"

	"kpicli/internal/config"
)

// Browser owns the chromedp allocator settings shared by all portals.
type Browser struct {
	cfg config.BrowserConfig
}

// NewBrowser creates a browser factory from configuration.
func NewBrowser(cfg config.BrowserConfig) *Browser {
	return &Browser{cfg: cfg}
}

// NewContext builds a fresh chromedp context bounded by the configured run
// timeout. The returned cancel releases the browser process.
func (b *Browser) NewContext(parent context.Context) (context.Context, context.CancelFunc) {
	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts, chromedp.Flag("headless", b.cfg.Headless))

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx)

	var cancelTimeout context.CancelFunc = func() {}
	if b.cfg.RunTimeout > 0 {
		ctx, cancelTimeout = context.WithTimeout(ctx, b.cfg.RunTimeout)
	}

	cancel := func() {
		cancelTimeout()
		cancelCtx()
		cancelAlloc()
	}
	return ctx, cancel
}
