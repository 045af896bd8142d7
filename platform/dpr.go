package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"chimbori.dev/scrollshot/driver"
	"github.com/lmittmann/tint"
)

// ErrCapabilityLookup is returned (and logged) when a capability is missing or malformed;
// callers always receive the documented default alongside it.
var ErrCapabilityLookup = errors.New("capability lookup failed")

const devicePixelRatioScript = "return window.devicePixelRatio;"

var iPhoneModelNumber = regexp.MustCompile(`iphone\s*(\d+)`)

// Resolver computes the CSS-pixel → device-pixel scale factor for a session.
type Resolver struct {
	tables Tables
	logger *slog.Logger
}

func NewResolver(tables Tables, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{tables: tables, logger: logger}
}

// Resolve returns the device pixel ratio for the given session kind.
// Web sessions are queried at runtime, Android reads a capability, and iOS uses the device tables.
func (r *Resolver) Resolve(ctx context.Context, kind Kind, caps driver.Capabilities, drv driver.Driver) float64 {
	switch {
	case kind.IsIOS():
		return r.IOS(caps.String("deviceName"), model(caps))
	case kind.IsAndroid():
		dpr, err := r.Android(caps)
		if err != nil {
			r.logger.Debug("using default device pixel ratio", tint.Err(err), "platform", kind.String())
		}
		return dpr
	default:
		return r.Web(ctx, drv)
	}
}

// Web asks the page for window.devicePixelRatio. Numeric & numeric-string results are accepted;
// anything else yields 1.0.
func (r *Resolver) Web(ctx context.Context, drv driver.Driver) float64 {
	if drv == nil {
		return 1.0
	}
	res, err := drv.ExecuteScript(ctx, devicePixelRatioScript)
	if err != nil {
		r.logger.Warn("failed to read devicePixelRatio", tint.Err(err))
		return 1.0
	}
	dpr, err := driver.ToFloat(res)
	if err != nil || dpr <= 0 {
		r.logger.Warn("unexpected devicePixelRatio", "value", res)
		return 1.0
	}
	return dpr
}

// Android reads the devicePixelRatio capability, defaulting to 1.0.
func (r *Resolver) Android(caps driver.Capabilities) (float64, error) {
	dpr, err := caps.Float("devicePixelRatio")
	if err != nil {
		return 1.0, fmt.Errorf("%w: %w", ErrCapabilityLookup, err)
	}
	if dpr <= 0 {
		return 1.0, fmt.Errorf("%w: devicePixelRatio=%v", ErrCapabilityLookup, dpr)
	}
	return dpr, nil
}

// IOS looks up the pixel density for an iOS device by name & model. Unknown devices, and any failure
// during the lookup, resolve to 3×, the densest ratio in common use.
func (r *Resolver) IOS(deviceName, model string) (dpr float64) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("iOS device pixel ratio lookup failed", tint.Err(fmt.Errorf("%v", p)),
				"device", deviceName, "model", model)
			dpr = 3.0
		}
	}()

	name := strings.ToLower(strings.TrimSpace(deviceName + " " + model))
	t := r.tables

	switch {
	case strings.Contains(name, "iphone"):
		if containsAny(name, t.IPhone3x) {
			return 3.0
		}
		if m := iPhoneModelNumber.FindStringSubmatch(name); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > t.IPhoneFutureModel {
				return 3.0
			}
		}
		if containsAny(name, t.IPhone2x) {
			return 2.0
		}
		if containsAny(name, t.IPhone1x) {
			return 1.0
		}
		return 3.0
	case strings.Contains(name, "ipad"):
		return 2.0
	case strings.Contains(name, "ipod"):
		if containsAny(name, t.IPod2x) {
			return 2.0
		}
		return 1.0
	default:
		return 3.0
	}
}

func model(caps driver.Capabilities) string {
	if m := caps.String("deviceModel"); m != "" {
		return m
	}
	return caps.String("model")
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
