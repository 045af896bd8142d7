package platform

import (
	"math"
	"slices"
	"strings"
)

// TestType distinguishes a hybrid “web-on-device” run, where a webview is wrapped in native chrome,
// from plain web and native-app runs.
type TestType string

const (
	TestTypeWeb         TestType = "web"
	TestTypeApp         TestType = "app"
	TestTypeWebOnDevice TestType = "web-on-device"
)

// IOSStatusBarHeight returns the status bar height in points (CSS px) for an iOS device name.
func (t Tables) IOSStatusBarHeight(deviceName string) int {
	name := strings.ToLower(deviceName)
	for _, pair := range t.IPadProStatusBar24 {
		if strings.Contains(name, pair[0]) && strings.Contains(name, pair[1]) {
			return IPadProStatusBar
		}
	}
	if containsAny(name, t.DynamicIsland) {
		return DynamicIslandStatusBar
	}
	if containsAny(name, t.Notch) && !containsAny(name, t.NotchExclusions) {
		return NotchStatusBar
	}
	return DefaultIOSStatusBar
}

// AndroidChromeBarHeight returns the height, in device pixels, of the status bar plus browser toolbar
// above a webview. A positive reported status bar height takes precedence over the OS version buckets.
func (t Tables) AndroidChromeBarHeight(platformVersion string, reportedStatusBar float64, dpr float64) int {
	if reportedStatusBar > 0 {
		return int(reportedStatusBar + dpr*AndroidToolbarHeight)
	}
	switch major := majorVersion(platformVersion); {
	case slices.Contains(t.AndroidNewVersions, major):
		return int(math.Floor(AndroidNewChromeBar * dpr))
	case slices.Contains(t.AndroidOldVersions, major):
		return int(math.Floor(AndroidOldChromeBar * dpr))
	default:
		// Unrecognised versions use the taller layout.
		return int(math.Floor(AndroidNewChromeBar * dpr))
	}
}

// ChromeOffset returns the number of device pixels to add to element Y coordinates for a session.
// Only hybrid web-on-device runs on a mobile platform have an offset.
func ChromeOffset(pc Context, testType TestType, tables Tables) int {
	if testType != TestTypeWebOnDevice {
		return 0
	}
	switch {
	case pc.Kind.IsIOS():
		return int(math.Floor(float64(tables.IOSStatusBarHeight(pc.DeviceName)) * pc.DevicePixelRatio))
	case pc.Kind.IsAndroid():
		reported, err := pc.Capabilities.Float("statBarHeight")
		if err != nil {
			reported, _ = pc.Capabilities.Float("statusBarHeight")
		}
		return tables.AndroidChromeBarHeight(pc.PlatformVersion, reported, pc.DevicePixelRatio)
	default:
		return 0
	}
}

func majorVersion(v string) string {
	v = strings.TrimSpace(v)
	if i := strings.IndexAny(v, ". "); i >= 0 {
		v = v[:i]
	}
	return v
}
