package cdpdriver

import (
	"context"
	"strings"
	"testing"
	"time"

	"chimbori.dev/scrollshot/capture"
	"chimbori.dev/scrollshot/driver"
	"chimbori.dev/scrollshot/geometry"
	"chimbori.dev/scrollshot/selector"
	"github.com/chromedp/cdproto/dom"
)

func TestQuery(t *testing.T) {
	tests := []struct {
		by   driver.By
		in   string
		want string
	}{
		{driver.ByCSS, "div > p", "div > p"},
		{driver.ByXPath, "//p", "//p"},
		{driver.ByID, "main", `[id="main"]`},
		{driver.ByName, "q", `[name="q"]`},
		{driver.ByClassName, "card", `[class~="card"]`},
	}
	for _, tt := range tests {
		t.Run(string(tt.by), func(t *testing.T) {
			got, _, err := query(tt.by, tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}

	if _, _, err := query("link text", "x"); err == nil {
		t.Error("Expected error for unsupported strategy")
	}
}

func TestQuadRect(t *testing.T) {
	got := quadRect(dom.Quad{10, 20, 110, 20, 110, 70, 10, 70})
	want := driver.Rect{X: 10, Y: 20, Width: 100, Height: 50}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
	if got := quadRect(dom.Quad{1, 2}); got != (driver.Rect{}) {
		t.Errorf("Expected empty rect for short quad, got %+v", got)
	}
}

func TestWrapScript(t *testing.T) {
	got, err := wrapScript("return arguments[0] + arguments[1];", []any{1, "a"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, `.apply(null,[1,"a"])`) {
		t.Errorf("Expected arguments to be bound, got %s", got)
	}
	if _, err := wrapScript("mobile: scrollGesture", nil); err == nil {
		t.Error("Expected mobile commands to be rejected")
	}
}

func TestDevice(t *testing.T) {
	if _, ok := Device("iphone x"); !ok {
		t.Error("Expected iPhone X preset")
	}
	if _, ok := Device("Nokia 3310"); ok {
		t.Error("Expected unknown preset to be missing")
	}
}

func TestNew_RequiresChromedpContext(t *testing.T) {
	if _, err := New(context.Background()); err == nil {
		t.Error("Expected error for a plain context")
	}
}

const tallPage = "data:text/html,<html><body style='margin:0'>" +
	"<div id='banner' style='height:100px;background:red'>Banner</div>" +
	"<div style='height:3000px;background:linear-gradient(white,blue)'></div>" +
	"<div class='footer' style='height:50px'>Footer</div>" +
	"</body></html>"

func TestDriver_Browser(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping test that requires Chrome/Chromium in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	tabCtx, closeTab := Launch(ctx, true, nil)
	defer closeTab()

	d, err := New(tabCtx, WithViewport(800, 600))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := d.Navigate(ctx, tallPage); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}

	size, err := d.WindowSize(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if size.Width != 800 || size.Height != 600 {
		t.Errorf("Expected 800×600, got %d×%d", size.Width, size.Height)
	}

	elements, err := d.FindElements(ctx, driver.ByID, "banner")
	if err != nil || len(elements) != 1 {
		t.Fatalf("Expected one element, got %v, %v", elements, err)
	}
	rect, err := d.ElementRect(ctx, elements[0])
	if err != nil {
		t.Fatal(err)
	}
	if rect.Y != 0 || rect.Height != 100 || rect.Width != 800 {
		t.Errorf("Unexpected banner rect %+v", rect)
	}

	res, err := d.ExecuteScript(ctx, "return arguments[0] * 2;", 21)
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := driver.ToFloat(res); n != 42 {
		t.Errorf("Expected 42, got %v", res)
	}

	c, err := capture.New(ctx, d, "tall", capture.WithOutputDir(t.TempDir()), capture.WithSettle(600*time.Millisecond, 100*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	result := c.CaptureFullPageWithBothSelectors(ctx, 10,
		selector.Group{selector.ID: {"banner"}},
		selector.Group{selector.Class: {"footer"}})

	if len(result.Screenshots) < 2 {
		t.Errorf("Expected several screenshots, got %d", len(result.Screenshots))
	}
	if len(result.IgnoreElements) != 1 || result.IgnoreElements[0].Purpose != geometry.Ignore {
		t.Errorf("Unexpected ignore elements %+v", result.IgnoreElements)
	}
	if len(result.SelectElements) != 1 || result.SelectElements[0].Y < 3000 {
		t.Errorf("Unexpected select elements %+v", result.SelectElements)
	}
}
