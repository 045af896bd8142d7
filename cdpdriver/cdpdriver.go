// Package cdpdriver implements [driver.Driver] on top of a chromedp browser tab.
package cdpdriver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"strconv"
	"strings"
	"time"

	"chimbori.dev/scrollshot/driver"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/device"
)

// Driver drives a single chromedp tab. The tab's lifetime is owned by whoever created its context.
type Driver struct {
	ctx      context.Context
	device   chromedp.Device
	viewport driver.Size
	caps     driver.Capabilities
	logger   *slog.Logger
}

var _ driver.Driver = (*Driver)(nil)

type Option func(*Driver)

// WithDevice emulates a device preset (viewport, scale factor, user agent, touch).
func WithDevice(d chromedp.Device) Option {
	return func(drv *Driver) { drv.device = d }
}

// WithViewport emulates a desktop viewport of the given CSS size.
func WithViewport(width, height int) Option {
	return func(drv *Driver) { drv.viewport = driver.Size{Width: width, Height: height} }
}

func WithLogger(logger *slog.Logger) Option {
	return func(drv *Driver) { drv.logger = logger }
}

// New wraps the chromedp tab in ctx, which must have been created by [chromedp.NewContext].
func New(ctx context.Context, opts ...Option) (*Driver, error) {
	if chromedp.FromContext(ctx) == nil {
		return nil, errors.New("context is not a chromedp context")
	}
	d := &Driver{
		ctx: ctx,
		caps: driver.Capabilities{
			"browserName":  "chrome",
			"platformName": runtime.GOOS,
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}

	switch {
	case d.device != nil:
		info := d.device.Device()
		if err := chromedp.Run(ctx, chromedp.Emulate(d.device)); err != nil {
			return nil, fmt.Errorf("failed to emulate %s: %w", info.Name, err)
		}
		d.caps["deviceName"] = info.Name
		d.logger.Debug("emulating device", "device", info.Name, "width", info.Width, "height", info.Height, "scale", info.Scale)
	case d.viewport.Width > 0 && d.viewport.Height > 0:
		if err := chromedp.Run(ctx, chromedp.EmulateViewport(int64(d.viewport.Width), int64(d.viewport.Height))); err != nil {
			return nil, fmt.Errorf("failed to set viewport: %w", err)
		}
	}
	return d, nil
}

// Device looks up a chromedp device preset by its display name, e.g. "iPhone X".
func Device(name string) (chromedp.Device, bool) {
	for _, d := range presets {
		if strings.EqualFold(d.Device().Name, name) {
			return d, true
		}
	}
	return nil, false
}

var presets = []chromedp.Device{
	device.IPhoneX,
	device.IPhoneXR,
	device.IPhone8,
	device.IPhone8Plus,
	device.IPad,
	device.IPadPro,
	device.Pixel2,
	device.Pixel2XL,
	device.GalaxyS5,
	device.Nexus5,
}

// Navigate loads url and waits for the body to be ready.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery))
}

func (d *Driver) Capabilities(ctx context.Context) (driver.Capabilities, error) {
	return d.caps, nil
}

func (d *Driver) FindElements(ctx context.Context, by driver.By, value string) ([]driver.Element, error) {
	sel, opt, err := query(by, value)
	if err != nil {
		return nil, err
	}
	var nodes []*cdp.Node
	if err := d.run(ctx, chromedp.Nodes(sel, &nodes, opt, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	elements := make([]driver.Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, driver.Element{ID: strconv.FormatInt(int64(n.NodeID), 10)})
	}
	return elements, nil
}

// query maps a locator strategy onto a chromedp selector. Everything but XPath becomes a CSS query.
func query(by driver.By, value string) (string, chromedp.QueryOption, error) {
	switch by {
	case driver.ByXPath:
		return value, chromedp.BySearch, nil
	case driver.ByCSS:
		return value, chromedp.ByQueryAll, nil
	case driver.ByID:
		return "[id=" + strconv.Quote(value) + "]", chromedp.ByQueryAll, nil
	case driver.ByName:
		return "[name=" + strconv.Quote(value) + "]", chromedp.ByQueryAll, nil
	case driver.ByClassName:
		return "[class~=" + strconv.Quote(value) + "]", chromedp.ByQueryAll, nil
	default:
		return "", nil, fmt.Errorf("unsupported locator strategy %q", by)
	}
}

func (d *Driver) ElementRect(ctx context.Context, el driver.Element) (driver.Rect, error) {
	id, err := strconv.ParseInt(el.ID, 10, 64)
	if err != nil {
		return driver.Rect{}, fmt.Errorf("invalid element %q: %w", el.ID, err)
	}
	var model *dom.BoxModel
	if err := d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		model, err = dom.GetBoxModel().WithNodeID(cdp.NodeID(id)).Do(ctx)
		return err
	})); err != nil {
		return driver.Rect{}, err
	}
	return quadRect(model.Border), nil
}

// quadRect returns the axis-aligned bounds of a DOM quad (x1, y1, … x4, y4).
func quadRect(q dom.Quad) driver.Rect {
	if len(q) < 8 {
		return driver.Rect{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := 0; i+1 < len(q); i += 2 {
		minX, maxX = math.Min(minX, q[i]), math.Max(maxX, q[i])
		minY, maxY = math.Min(minY, q[i+1]), math.Max(maxY, q[i+1])
	}
	return driver.Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := d.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

// ExecuteScript evaluates script as a function body, with args bound to `arguments`.
func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	expr, err := wrapScript(script, args)
	if err != nil {
		return nil, err
	}
	var res any
	if err := d.run(ctx, chromedp.Evaluate(expr, &res)); err != nil {
		return nil, err
	}
	return res, nil
}

// wrapScript turns a WebDriver-style script body into a self-invoking expression. Undefined results
// are mapped to null, which chromedp can decode.
func wrapScript(script string, args []any) (string, error) {
	if strings.HasPrefix(script, "mobile:") {
		return "", fmt.Errorf("unsupported command %q", script)
	}
	if args == nil {
		args = []any{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to encode script arguments: %w", err)
	}
	return "(function(){var r=(function(){" + script + "\n}).apply(null," + string(encoded) +
		");return r===undefined?null:r;})()", nil
}

func (d *Driver) PerformGesture(ctx context.Context, g driver.Gesture) error {
	return d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if g.PointerType == "touch" {
			return touchGesture(ctx, g.Actions)
		}
		return mouseGesture(ctx, g.Actions)
	}))
}

func mouseGesture(ctx context.Context, actions []driver.PointerAction) error {
	var x, y float64
	for _, a := range actions {
		var err error
		switch a.Type {
		case driver.PointerMove:
			if err = pause(ctx, a.Duration); err == nil {
				x, y = float64(a.X), float64(a.Y)
				err = input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
			}
		case driver.PointerDown:
			err = input.DispatchMouseEvent(input.MousePressed, x, y).
				WithButton(input.Left).WithClickCount(1).Do(ctx)
		case driver.PointerUp:
			err = input.DispatchMouseEvent(input.MouseReleased, x, y).
				WithButton(input.Left).WithClickCount(1).Do(ctx)
		case driver.PointerPause:
			err = pause(ctx, a.Duration)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func touchGesture(ctx context.Context, actions []driver.PointerAction) error {
	var x, y float64
	down := false
	for _, a := range actions {
		var err error
		switch a.Type {
		case driver.PointerMove:
			if err = pause(ctx, a.Duration); err == nil {
				x, y = float64(a.X), float64(a.Y)
				if down {
					err = input.DispatchTouchEvent(input.TouchMove, []*input.TouchPoint{{X: x, Y: y}}).Do(ctx)
				}
			}
		case driver.PointerDown:
			down = true
			err = input.DispatchTouchEvent(input.TouchStart, []*input.TouchPoint{{X: x, Y: y}}).Do(ctx)
		case driver.PointerUp:
			down = false
			err = input.DispatchTouchEvent(input.TouchEnd, []*input.TouchPoint{}).Do(ctx)
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
	var size driver.Size
	if err := d.run(ctx, chromedp.Evaluate(`({width: window.innerWidth, height: window.innerHeight})`, &size)); err != nil {
		return driver.Size{}, err
	}
	return size, nil
}

func (d *Driver) PageSource(ctx context.Context) (string, error) {
	var html string
	if err := d.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// run executes actions on the tab, bounded by ctx's deadline if it has one.
func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := d.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(runCtx, deadline)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}
