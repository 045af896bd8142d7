package cdpdriver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chromedp/chromedp"
)

// Launch starts a local Chrome and opens a tab. Cancelling the returned function closes the browser.
func Launch(ctx context.Context, headless bool, logger *slog.Logger) (context.Context, context.CancelFunc) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("hide-scrollbars", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...), "engine", "chromedp")
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Warn(fmt.Sprintf(format, args...), "engine", "chromedp")
		}),
	)
	return tabCtx, func() {
		tabCancel()
		allocCancel()
	}
}
