// Package platform classifies an automation session (web, Android, iOS) and derives the static
// per-session facts the capture engine needs: device pixel ratio & native chrome heights.
package platform

// Kind identifies the execution context of a session.
type Kind int

const (
	Web Kind = iota
	AndroidNative
	AndroidWebview
	IOSNative
	IOSWebview
)

func (k Kind) String() string {
	switch k {
	case AndroidNative:
		return "android-native"
	case AndroidWebview:
		return "android-webview"
	case IOSNative:
		return "ios-native"
	case IOSWebview:
		return "ios-webview"
	default:
		return "web"
	}
}

// Family returns the coarse platform name recorded on bounding boxes: “web”, “android”, or “ios”.
func (k Kind) Family() string {
	switch {
	case k.IsAndroid():
		return "android"
	case k.IsIOS():
		return "ios"
	default:
		return "web"
	}
}

func (k Kind) IsAndroid() bool { return k == AndroidNative || k == AndroidWebview }

func (k Kind) IsIOS() bool { return k == IOSNative || k == IOSWebview }

// HasDOM reports whether element geometry can be read from an in-page script: true for desktop web
// and for mobile browsers, false for native screens.
func (k Kind) HasDOM() bool { return k == Web || k == AndroidWebview || k == IOSWebview }
