package capture

import (
	"context"
	"errors"
	"testing"

	"chimbori.dev/scrollshot/driver"
	"chimbori.dev/scrollshot/driver/drivertest"
	"chimbori.dev/scrollshot/platform"
	"chimbori.dev/scrollshot/selector"
)

func TestLocateWebScript(t *testing.T) {
	fake := &drivertest.Fake{
		ScriptFn: func(script string, args []any) (any, error) {
			return rectResult(driver.Rect{X: 1, Y: 2, Width: 3, Height: 4}), nil
		},
	}
	l := NewLocator(fake, platform.Web, nil)

	got := l.Locate(context.Background(), selector.Selector{Kind: selector.CSS, Value: ".hero"})

	if got.Code != CodeOK || len(got.Rects) != 1 {
		t.Fatalf("Expected one rect, got %+v", got)
	}
	if got.Rects[0] != (driver.Rect{X: 1, Y: 2, Width: 3, Height: 4}) {
		t.Errorf("Unexpected rect %+v", got.Rects[0])
	}
	if len(fake.FindCalls) != 0 {
		t.Errorf("Expected no driver lookups, got %d", len(fake.FindCalls))
	}
	if args := fake.ScriptCalls[0].Args; args[0] != "css" || args[1] != ".hero" {
		t.Errorf("Unexpected script arguments %v", args)
	}
}

func TestLocateWebFallback(t *testing.T) {
	tests := []struct {
		name     string
		scriptFn func(string, []any) (any, error)
	}{
		{"script error", func(string, []any) (any, error) { return nil, errors.New("boom") }},
		{"null result", func(string, []any) (any, error) { return nil, nil }},
		{"empty result", func(string, []any) (any, error) { return []any{}, nil }},
		{"malformed result", func(string, []any) (any, error) { return "nope", nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &drivertest.Fake{
				ScriptFn: tt.scriptFn,
				FindFn: func(by driver.By, value string) ([]driver.Element, error) {
					return []driver.Element{{ID: "a"}}, nil
				},
				RectFn: func(el driver.Element) (driver.Rect, error) {
					return driver.Rect{X: 5, Y: 6, Width: 7, Height: 8}, nil
				},
			}
			l := NewLocator(fake, platform.AndroidWebview, nil)
			got := l.Locate(context.Background(), selector.Selector{Kind: selector.XPath, Value: "//div"})
			if got.Code != CodeOK || len(got.Rects) != 1 {
				t.Fatalf("Expected fallback rect, got %+v", got)
			}
			if len(fake.FindCalls) != 1 || fake.FindCalls[0].By != driver.ByXPath {
				t.Errorf("Unexpected driver lookups %+v", fake.FindCalls)
			}
		})
	}
}

func TestLocateNative(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		fake := &drivertest.Fake{}
		got := NewLocator(fake, platform.IOSNative, nil).
			Locate(context.Background(), selector.Selector{Kind: selector.Name, Value: "x"})
		if got.Code != CodeNotFound || got.Err != nil {
			t.Errorf("Expected not found, got %+v", got)
		}
		if len(fake.ScriptCalls) != 0 {
			t.Errorf("Expected no scripts on native, got %d", len(fake.ScriptCalls))
		}
	})

	t.Run("lookup error", func(t *testing.T) {
		fake := &drivertest.Fake{
			FindFn: func(driver.By, string) ([]driver.Element, error) { return nil, errors.New("invalid selector") },
		}
		got := NewLocator(fake, platform.AndroidNative, nil).
			Locate(context.Background(), selector.Selector{Kind: selector.ID, Value: "x"})
		if got.Code != CodeSelectorResolution || !errors.Is(got.Err, ErrSelectorResolution) {
			t.Errorf("Expected selector resolution error, got %+v", got)
		}
	})

	t.Run("stale element skipped", func(t *testing.T) {
		fake := &drivertest.Fake{
			FindFn: func(driver.By, string) ([]driver.Element, error) {
				return []driver.Element{{ID: "stale"}, {ID: "ok"}}, nil
			},
			RectFn: func(el driver.Element) (driver.Rect, error) {
				if el.ID == "stale" {
					return driver.Rect{}, errors.New("stale element reference")
				}
				return driver.Rect{Width: 10, Height: 10}, nil
			},
		}
		got := NewLocator(fake, platform.AndroidNative, nil).
			Locate(context.Background(), selector.Selector{Kind: selector.Class, Value: "android.widget.Button"})
		if got.Code != CodeOK || len(got.Rects) != 1 {
			t.Errorf("Expected one rect, got %+v", got)
		}
	})
}

func TestLocateGroup(t *testing.T) {
	fake := &drivertest.Fake{
		FindFn: func(by driver.By, value string) ([]driver.Element, error) {
			if value == "bad" {
				return nil, errors.New("invalid selector")
			}
			return []driver.Element{{ID: value}}, nil
		},
		RectFn: func(el driver.Element) (driver.Rect, error) { return driver.Rect{Width: 1, Height: 1}, nil },
	}
	group := selector.Group{
		selector.ID:  {"bad", "good", "seen"},
		selector.CSS: {".later"},
	}
	lookups := NewLocator(fake, platform.IOSNative, nil).LocateGroup(context.Background(), group,
		func(key string) bool { return key == "id:seen" })

	want := []Code{CodeSelectorResolution, CodeOK, CodeSkipped, CodeOK}
	if len(lookups) != len(want) {
		t.Fatalf("Expected %d lookups, got %d", len(want), len(lookups))
	}
	for i, code := range want {
		if lookups[i].Code != code {
			t.Errorf("Lookup %d: expected %s, got %s", i, code, lookups[i].Code)
		}
	}
	if len(fake.FindCalls) != 3 {
		t.Errorf("Expected 3 driver lookups, got %d", len(fake.FindCalls))
	}
}

func TestStrategy(t *testing.T) {
	tests := []struct {
		sel       selector.Selector
		wantBy    driver.By
		wantValue string
	}{
		{selector.Selector{Kind: selector.XPath, Value: "//a"}, driver.ByXPath, "//a"},
		{selector.Selector{Kind: selector.Class, Value: "btn"}, driver.ByClassName, "btn"},
		{selector.Selector{Kind: selector.ID, Value: "ok"}, driver.ByID, "ok"},
		{selector.Selector{Kind: selector.CSS, Value: "a.b"}, driver.ByCSS, "a.b"},
		{selector.Selector{Kind: selector.Name, Value: "q"}, driver.ByName, "q"},
		{selector.Selector{Kind: selector.AccessibilityID, Value: "Close"}, driver.ByXPath, `//*[@content-desc="Close"]`},
		{selector.Selector{Kind: selector.AccessibilityID, Value: `Say "hi"`}, driver.ByXPath, `//*[@content-desc='Say "hi"']`},
		{selector.Selector{Kind: selector.AccessibilityID, Value: `it's "x"`}, driver.ByXPath, `//*[@content-desc=concat("it's ", '"', "x", '"', "")]`},
	}
	for _, tt := range tests {
		t.Run(tt.sel.Key(), func(t *testing.T) {
			by, value := strategy(tt.sel)
			if by != tt.wantBy || value != tt.wantValue {
				t.Errorf("Expected %s %s, got %s %s", tt.wantBy, tt.wantValue, by, value)
			}
		})
	}
}
