package fullpage

import (
	"context"
	"fmt"
	"log/slog"

	"chimbori.dev/scrollshot/capture"
	"chimbori.dev/scrollshot/cdpdriver"
	"chimbori.dev/scrollshot/conf"
	"chimbori.dev/scrollshot/driver"
	"chimbori.dev/scrollshot/platform"
	"chimbori.dev/scrollshot/roddriver"
)

// OpenBrowser launches the configured browser engine, loads url, and returns a driver for it.
// The returned function closes the browser and must always be called.
func OpenBrowser(ctx context.Context, url string, logger *slog.Logger) (driver.Driver, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("engine", conf.Config.Browser.Engine)
	viewport := driver.Size{
		Width:  conf.Config.Browser.Viewport.Width,
		Height: conf.Config.Browser.Viewport.Height,
	}

	switch conf.Config.Browser.Engine {
	case conf.EngineRod:
		browser, closeBrowser, err := roddriver.Launch(*conf.Config.Browser.Headless)
		if err != nil {
			return nil, nil, err
		}
		drv, err := roddriver.Open(ctx, browser, url, conf.Config.Browser.Stealth, viewport, logger)
		if err != nil {
			closeBrowser()
			return nil, nil, err
		}
		return drv, func() {
			drv.Close()
			closeBrowser()
		}, nil

	default:
		tabCtx, closeBrowser := cdpdriver.Launch(ctx, *conf.Config.Browser.Headless, logger)
		opts := []cdpdriver.Option{
			cdpdriver.WithLogger(logger),
			cdpdriver.WithViewport(viewport.Width, viewport.Height),
		}
		if name := conf.Config.Browser.Device; name != "" {
			if d, ok := cdpdriver.Device(name); ok {
				opts = append(opts, cdpdriver.WithDevice(d)) // Takes precedence over the viewport.
			} else {
				logger.Warn("unknown device preset; using viewport", "device", name)
			}
		}
		drv, err := cdpdriver.New(tabCtx, opts...)
		if err != nil {
			closeBrowser()
			return nil, nil, err
		}
		if err := drv.Navigate(ctx, url); err != nil {
			closeBrowser()
			return nil, nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
		}
		return drv, closeBrowser, nil
	}
}

// CaptureOptions maps the capture section of the config onto [capture.Option]s.
func CaptureOptions(logger *slog.Logger) []capture.Option {
	c := conf.Config.Capture
	return []capture.Option{
		capture.WithOutputDir(c.OutputDir),
		capture.WithTestType(platform.TestType(c.TestType)),
		capture.WithSettle(c.Settle.Scroll, c.Settle.Signature),
		capture.WithPreviews(*c.Previews, c.PreviewWidth),
		capture.WithCompression(c.Compress),
		capture.WithMaxChunks(c.MaxChunks),
		capture.WithLogger(logger),
	}
}
