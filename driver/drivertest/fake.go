// Package drivertest provides a scriptable in-memory [driver.Driver] for tests.
package drivertest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"chimbori.dev/scrollshot/driver"
)

// ScriptCall records one ExecuteScript invocation.
type ScriptCall struct {
	Script string
	Args   []any
}

// FindCall records one FindElements invocation.
type FindCall struct {
	By    driver.By
	Value string
}

// Fake is a [driver.Driver] whose behaviour is configured through the exported fields.
// Unset hooks fall back to simple defaults: no elements, a 1×1 PNG, a 400×800 window.
type Fake struct {
	Caps         driver.Capabilities
	CapsErr      error
	Window       driver.Size
	WindowErr    error
	ScreenshotFn func(call int) ([]byte, error)
	ScriptFn     func(script string, args []any) (any, error)
	FindFn       func(by driver.By, value string) ([]driver.Element, error)
	RectFn       func(el driver.Element) (driver.Rect, error)
	GestureErr   error
	// Sources are returned by PageSource in order; the last entry repeats once exhausted.
	Sources   []string
	SourceErr error

	mu              sync.Mutex
	ScriptCalls     []ScriptCall
	FindCalls       []FindCall
	Gestures        []driver.Gesture
	ScreenshotCalls int
	SourceCalls     int
}

var _ driver.Driver = (*Fake)(nil)

func (f *Fake) Capabilities(ctx context.Context) (driver.Capabilities, error) {
	return f.Caps, f.CapsErr
}

func (f *Fake) FindElements(ctx context.Context, by driver.By, value string) ([]driver.Element, error) {
	f.mu.Lock()
	f.FindCalls = append(f.FindCalls, FindCall{By: by, Value: value})
	f.mu.Unlock()
	if f.FindFn != nil {
		return f.FindFn(by, value)
	}
	return nil, nil
}

func (f *Fake) ElementRect(ctx context.Context, el driver.Element) (driver.Rect, error) {
	if f.RectFn != nil {
		return f.RectFn(el)
	}
	return driver.Rect{}, errors.New("no such element")
}

func (f *Fake) Screenshot(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	call := f.ScreenshotCalls
	f.ScreenshotCalls++
	f.mu.Unlock()
	if f.ScreenshotFn != nil {
		return f.ScreenshotFn(call)
	}
	return PNG(1, 1), nil
}

func (f *Fake) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	f.mu.Lock()
	f.ScriptCalls = append(f.ScriptCalls, ScriptCall{Script: script, Args: args})
	f.mu.Unlock()
	if f.ScriptFn != nil {
		return f.ScriptFn(script, args)
	}
	return nil, nil
}

func (f *Fake) PerformGesture(ctx context.Context, g driver.Gesture) error {
	f.mu.Lock()
	f.Gestures = append(f.Gestures, g)
	f.mu.Unlock()
	return f.GestureErr
}

func (f *Fake) WindowSize(ctx context.Context) (driver.Size, error) {
	if f.WindowErr != nil {
		return driver.Size{}, f.WindowErr
	}
	if f.Window == (driver.Size{}) {
		return driver.Size{Width: 400, Height: 800}, nil
	}
	return f.Window, nil
}

func (f *Fake) PageSource(ctx context.Context) (string, error) {
	f.mu.Lock()
	call := f.SourceCalls
	f.SourceCalls++
	f.mu.Unlock()
	if f.SourceErr != nil {
		return "", f.SourceErr
	}
	if len(f.Sources) == 0 {
		return "", nil
	}
	if call >= len(f.Sources) {
		call = len(f.Sources) - 1
	}
	return f.Sources[call], nil
}

// ScriptCount returns how many ExecuteScript calls contained the given substring.
func (f *Fake) ScriptCount(substr string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.ScriptCalls {
		if strings.Contains(c.Script, substr) {
			n++
		}
	}
	return n
}
