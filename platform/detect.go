package platform

import (
	"strings"

	"chimbori.dev/scrollshot/driver"
)

// Detect classifies a session from its capabilities. It never fails: anything unrecognised,
// including a nil map, is treated as [Web].
func Detect(caps driver.Capabilities) (kind Kind) {
	defer func() {
		if recover() != nil {
			kind = Web
		}
	}()

	name := caps.String("platformName")
	if name == "" {
		name = caps.String("platform")
	}
	name = strings.ToLower(name)
	browser := strings.ToLower(caps.String("browserName"))

	switch {
	case strings.Contains(name, "ios"):
		if strings.Contains(browser, "safari") {
			return IOSWebview
		}
		return IOSNative
	case strings.Contains(name, "android"):
		if strings.Contains(browser, "chrome") {
			return AndroidWebview
		}
		return AndroidNative
	default:
		return Web
	}
}
