// Package driver defines the narrow set of UI-automation operations the capture engine depends on.
// Web browsers (chromedp, rod) and mobile sessions (Appium) implement the same interface so that the
// engine never needs to introspect which concrete driver it was handed.
package driver

import (
	"context"
	"time"
)

// By is a locator strategy understood by [Driver.FindElements].
type By string

const (
	ByXPath     By = "xpath"
	ByClassName By = "class name"
	ByID        By = "id"
	ByCSS       By = "css selector"
	ByName      By = "name"
)

// Element is an opaque handle to a located element, valid only for the driver that returned it.
type Element struct {
	ID string
}

// Rect is a position & size in logical (CSS / point) pixels, relative to the current viewport.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Size is a viewport or window size in logical pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ActionType is one step of a pointer gesture.
type ActionType string

const (
	PointerMove  ActionType = "pointerMove"
	PointerDown  ActionType = "pointerDown"
	PointerUp    ActionType = "pointerUp"
	PointerPause ActionType = "pause"
)

// PointerAction is a single step in a [Gesture]. X & Y are only meaningful for [PointerMove].
type PointerAction struct {
	Type     ActionType
	X, Y     int
	Duration time.Duration
}

// Gesture is a single-pointer input sequence, e.g. a touch drag.
type Gesture struct {
	PointerType string // "touch" or "mouse"
	Actions     []PointerAction
}

// Driver is implemented by every automation backend. Implementations are not safe for concurrent use;
// a capture session owns its driver exclusively.
type Driver interface {
	// Capabilities returns the session capabilities (platformName, browserName, deviceName, …).
	Capabilities(ctx context.Context) (Capabilities, error)

	// FindElements returns all elements matching the selector; no match is not an error.
	FindElements(ctx context.Context, by By, value string) ([]Element, error)

	// ElementRect returns the element's viewport-relative location & size. Implementations may only
	// resolve elements from the most recent FindElements call.
	ElementRect(ctx context.Context, el Element) (Rect, error)

	// Screenshot returns a PNG of the current viewport / screen.
	Screenshot(ctx context.Context) ([]byte, error)

	// ExecuteScript runs a script body with access to `arguments`, and returns its JSON-decoded result.
	// Mobile drivers also route `mobile: …` extension commands through here.
	ExecuteScript(ctx context.Context, script string, args ...any) (any, error)

	// PerformGesture runs a multi-step pointer gesture.
	PerformGesture(ctx context.Context, g Gesture) error

	// WindowSize returns the viewport (web) or window (mobile) size.
	WindowSize(ctx context.Context) (Size, error)

	// PageSource returns the full page HTML or the native screen hierarchy XML.
	PageSource(ctx context.Context) (string, error)
}
