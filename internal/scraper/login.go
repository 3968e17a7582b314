package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"kpicli/internal/config"
)

const (
	loginUsernameInput = `//input[@name="username" or @id="username"]`
	loginPasswordInput = `//input[@type="password"]`
	loginSubmitButton  = `//button[@type="submit"]`
	loginCodeInput     = `//input[contains(@class, "sms-code") or @name="smsCode"]`
	loginNoticeText    = `//div[contains(@class, "notice-content")]`
)

// loginIfPrompted signs in when the portal presents its login form. An
// already-authenticated session shows no form within the probe window and
// is left alone. When the portal asks for a one-time code, the code is
// pulled from the notification text through the extractor.
func loginIfPrompted(ctx context.Context, cfg config.PortalConfig, codes CodeExtractor, logger *slog.Logger) error {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := chromedp.Run(probeCtx, chromedp.WaitVisible(loginUsernameInput, chromedp.BySearch)); err != nil {
		// No login form, session is live.
		return nil
	}

	logger.InfoContext(ctx, "portal login required")
	err := chromedp.Run(ctx,
		chromedp.SendKeys(loginUsernameInput, cfg.Username, chromedp.BySearch),
		chromedp.SendKeys(loginPasswordInput, cfg.Password, chromedp.BySearch),
		chromedp.Click(loginSubmitButton, chromedp.BySearch),
		chromedp.Sleep(3*time.Second),
	)
	if err != nil {
		return fmt.Errorf("submit portal credentials: %w", err)
	}

	// One-time code step, if the portal asks for it.
	codeCtx, cancelCode := context.WithTimeout(ctx, 5*time.Second)
	defer cancelCode()
	if err := chromedp.Run(codeCtx, chromedp.WaitVisible(loginCodeInput, chromedp.BySearch)); err != nil {
		return nil
	}
	if codes == nil {
		return fmt.Errorf("portal requires a one-time code but no code extractor is configured")
	}

	notice, ok := readText(ctx, loginNoticeText)
	if !ok {
		return fmt.Errorf("one-time code notification text not found")
	}
	code, err := codes.ExtractCode(ctx, notice)
	if err != nil {
		return fmt.Errorf("extract one-time code: %w", err)
	}

	err = chromedp.Run(ctx,
		chromedp.SendKeys(loginCodeInput, code, chromedp.BySearch),
		chromedp.Click(loginSubmitButton, chromedp.BySearch),
		chromedp.Sleep(3*time.Second),
	)
	if err != nil {
		return fmt.Errorf("submit one-time code: %w", err)
	}
	logger.InfoContext(ctx, "portal login complete")
	return nil
}
