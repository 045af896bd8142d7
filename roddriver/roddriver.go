// Package roddriver implements [driver.Driver] on top of a go-rod page, optionally with stealth evasions.
package roddriver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"chimbori.dev/scrollshot/driver"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Driver drives a single rod page.
type Driver struct {
	page   *rod.Page
	caps   driver.Capabilities
	logger *slog.Logger

	mu       sync.Mutex
	elements map[string]*rod.Element
}

var _ driver.Driver = (*Driver)(nil)

// New wraps an existing page.
func New(page *rod.Page, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		page: page,
		caps: driver.Capabilities{
			"browserName":  "chrome",
			"platformName": runtime.GOOS,
		},
		logger:   logger,
		elements: make(map[string]*rod.Element),
	}
}

// Launch starts a local browser. The returned function closes it.
func Launch(headless bool) (*rod.Browser, func(), error) {
	l := launcher.New().Headless(headless).Set("hide-scrollbars")
	u, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	return b, func() {
		b.Close()
		l.Kill()
	}, nil
}

// Open creates a page in b, sized to the viewport, and navigates it to url. With useStealth, the page
// is created with common headless-detection evasions applied.
func Open(ctx context.Context, b *rod.Browser, url string, useStealth bool, viewport driver.Size, logger *slog.Logger) (*Driver, error) {
	var page *rod.Page
	var err error
	if useStealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if viewport.Width > 0 && viewport.Height > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             viewport.Width,
			Height:            viewport.Height,
			DeviceScaleFactor: 1,
		}); err != nil {
			page.Close()
			return nil, fmt.Errorf("failed to set viewport: %w", err)
		}
	}

	if err := page.Context(ctx).Navigate(url); err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	d := New(page, logger)
	if err := page.Context(ctx).WaitLoad(); err != nil {
		d.logger.Warn("wait load timeout", "url", url, "error", err)
	}
	return d, nil
}

// Close closes the page.
func (d *Driver) Close() error {
	return d.page.Close()
}

func (d *Driver) Capabilities(ctx context.Context) (driver.Capabilities, error) {
	return d.caps, nil
}

func (d *Driver) FindElements(ctx context.Context, by driver.By, value string) ([]driver.Element, error) {
	page := d.page.Context(ctx)
	var found rod.Elements
	var err error
	switch by {
	case driver.ByXPath:
		found, err = page.ElementsX(value)
	case driver.ByCSS:
		found, err = page.Elements(value)
	case driver.ByID:
		found, err = page.Elements(fmt.Sprintf("[id=%q]", value))
	case driver.ByName:
		found, err = page.Elements(fmt.Sprintf("[name=%q]", value))
	case driver.ByClassName:
		found, err = page.Elements(fmt.Sprintf("[class~=%q]", value))
	default:
		return nil, fmt.Errorf("unsupported locator strategy %q", by)
	}
	if err != nil {
		return nil, err
	}

	return d.track(found), nil
}

// track replaces the elements known to [Driver.ElementRect] with found. Handles from earlier lookups
// stop resolving, so the map only ever holds the latest batch.
func (d *Driver) track(found rod.Elements) []driver.Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements = make(map[string]*rod.Element, len(found))
	elements := make([]driver.Element, 0, len(found))
	for _, el := range found {
		id := string(el.Object.ObjectID)
		d.elements[id] = el
		elements = append(elements, driver.Element{ID: id})
	}
	return elements
}

func (d *Driver) ElementRect(ctx context.Context, el driver.Element) (driver.Rect, error) {
	d.mu.Lock()
	found, ok := d.elements[el.ID]
	d.mu.Unlock()
	if !ok {
		return driver.Rect{}, fmt.Errorf("unknown element %q", el.ID)
	}
	shape, err := found.Context(ctx).Shape()
	if err != nil {
		return driver.Rect{}, err
	}
	box := shape.Box()
	if box == nil {
		return driver.Rect{}, errors.New("element has no layout box")
	}
	return driver.Rect{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height}, nil
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	return d.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

// ExecuteScript evaluates script as a function body, with args bound to `arguments`.
func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	res, err := d.page.Context(ctx).Eval("function() {"+script+"\n}", args...)
	if err != nil {
		return nil, err
	}
	return res.Value.Val(), nil
}

func (d *Driver) PerformGesture(ctx context.Context, g driver.Gesture) error {
	mouse := d.page.Context(ctx).Mouse
	for _, a := range g.Actions {
		var err error
		switch a.Type {
		case driver.PointerMove:
			if err = pause(ctx, a.Duration); err == nil {
				err = mouse.MoveTo(proto.Point{X: float64(a.X), Y: float64(a.Y)})
			}
		case driver.PointerDown:
			err = mouse.Down(proto.InputMouseButtonLeft, 1)
		case driver.PointerUp:
			err = mouse.Up(proto.InputMouseButtonLeft, 1)
		case driver.PointerPause:
			err = pause(ctx, a.Duration)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (d *Driver) WindowSize(ctx context.Context) (driver.Size, error) {
	res, err := d.page.Context(ctx).Eval(`() => ({width: window.innerWidth, height: window.innerHeight})`)
	if err != nil {
		return driver.Size{}, err
	}
	return driver.Size{
		Width:  res.Value.Get("width").Int(),
		Height: res.Value.Get("height").Int(),
	}, nil
}

func (d *Driver) PageSource(ctx context.Context) (string, error) {
	return d.page.Context(ctx).HTML()
}
