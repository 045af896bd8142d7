package platform

import (
	"context"
	"log/slog"

	"chimbori.dev/scrollshot/driver"
	"github.com/lmittmann/tint"
)

// Context holds the per-session platform facts. It is computed once by [NewContext] and never mutated.
type Context struct {
	Kind             Kind
	DevicePixelRatio float64
	DeviceName       string
	Model            string
	PlatformVersion  string
	Capabilities     driver.Capabilities
}

// NewContext detects the platform of the session behind drv and resolves its device pixel ratio.
// Capability lookup failures are logged and fall back to a web context; this never fails.
func NewContext(ctx context.Context, drv driver.Driver, tables Tables, logger *slog.Logger) Context {
	if logger == nil {
		logger = slog.Default()
	}
	caps, err := drv.Capabilities(ctx)
	if err != nil {
		logger.Warn("failed to read capabilities; assuming web", tint.Err(err))
		caps = driver.Capabilities{}
	}

	kind := Detect(caps)
	pc := Context{
		Kind:            kind,
		DeviceName:      caps.String("deviceName"),
		Model:           model(caps),
		PlatformVersion: caps.String("platformVersion"),
		Capabilities:    caps,
	}
	pc.DevicePixelRatio = NewResolver(tables, logger).Resolve(ctx, kind, caps, drv)

	logger.Info("platform detected",
		"platform", kind.String(),
		"dpr", pc.DevicePixelRatio,
		"device", pc.DeviceName,
		"version", pc.PlatformVersion)
	return pc
}
