package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"chimbori.dev/scrollshot/driver"
	"chimbori.dev/scrollshot/platform"
	"chimbori.dev/scrollshot/selector"
	"github.com/lmittmann/tint"
)

// Lookup is the outcome of resolving one selector: either viewport-relative rects in CSS pixels,
// or a failure code with its error. A failed Lookup never aborts the rest of the batch.
type Lookup struct {
	Selector selector.Selector
	Rects    []driver.Rect
	Code     Code
	Err      error
}

// Locator resolves selectors to element rects using the strategy appropriate for the platform.
type Locator struct {
	drv    driver.Driver
	kind   platform.Kind
	logger *slog.Logger
}

func NewLocator(drv driver.Driver, kind platform.Kind, logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{drv: drv, kind: kind, logger: logger}
}

// Locate resolves a single selector. Pages with a DOM are first asked for bounding rects via a single
// script evaluation; if that yields nothing or fails, the driver's element lookup is used instead.
func (l *Locator) Locate(ctx context.Context, s selector.Selector) Lookup {
	if l.kind.HasDOM() {
		rects, err := l.scriptRects(ctx, s)
		if err != nil {
			l.logger.Debug("falling back to driver lookup", tint.Err(err), "selector", s.Key())
		} else if len(rects) > 0 {
			return Lookup{Selector: s, Rects: rects, Code: CodeOK}
		}
	}
	return l.driverRects(ctx, s)
}

// LocateGroup resolves every selector in the group. Selectors for which skip returns true are not
// queried, and are reported with [CodeSkipped].
func (l *Locator) LocateGroup(ctx context.Context, g selector.Group, skip func(key string) bool) []Lookup {
	selectors := g.Selectors()
	lookups := make([]Lookup, 0, len(selectors))
	for _, s := range selectors {
		if skip != nil && skip(s.Key()) {
			lookups = append(lookups, Lookup{Selector: s, Code: CodeSkipped})
			continue
		}
		lookup := l.Locate(ctx, s)
		if lookup.Err != nil {
			l.logger.Warn("skipping selector", tint.Err(lookup.Err),
				"selector", s.Key(),
				"code", lookup.Code.String())
		}
		lookups = append(lookups, lookup)
	}
	return lookups
}

func (l *Locator) scriptRects(ctx context.Context, s selector.Selector) ([]driver.Rect, error) {
	res, err := l.drv.ExecuteScript(ctx, boundingRectsScript, string(s.Kind), s.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptExecution, err)
	}
	if res == nil {
		return nil, nil
	}
	// The script result arrives as generic JSON (maps & slices); round-trip it into typed rects.
	buf, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptExecution, err)
	}
	var rects []driver.Rect
	if err := json.Unmarshal(buf, &rects); err != nil {
		return nil, fmt.Errorf("%w: unexpected result %s: %w", ErrScriptExecution, buf, err)
	}
	return rects, nil
}

func (l *Locator) driverRects(ctx context.Context, s selector.Selector) Lookup {
	by, value := strategy(s)
	elements, err := l.drv.FindElements(ctx, by, value)
	if err != nil {
		return Lookup{
			Selector: s,
			Code:     CodeSelectorResolution,
			Err:      fmt.Errorf("%w: %s: %w", ErrSelectorResolution, s.Key(), err),
		}
	}
	if len(elements) == 0 {
		return Lookup{Selector: s, Code: CodeNotFound}
	}

	rects := make([]driver.Rect, 0, len(elements))
	for _, el := range elements {
		r, err := l.drv.ElementRect(ctx, el)
		if err != nil {
			// Elements can go stale between lookup & measurement; drop just this one.
			l.logger.Debug("failed to measure element", tint.Err(err), "selector", s.Key(), "element", el.ID)
			continue
		}
		rects = append(rects, r)
	}
	if len(rects) == 0 {
		return Lookup{
			Selector: s,
			Code:     CodeSelectorResolution,
			Err:      fmt.Errorf("%w: %s: no measurable elements", ErrSelectorResolution, s.Key()),
		}
	}
	return Lookup{Selector: s, Rects: rects, Code: CodeOK}
}

// strategy maps a selector kind to a driver locator strategy. Accessibility IDs are matched against
// the Android content-desc attribute via XPath.
func strategy(s selector.Selector) (driver.By, string) {
	switch s.Kind {
	case selector.XPath:
		return driver.ByXPath, s.Value
	case selector.Class:
		return driver.ByClassName, s.Value
	case selector.ID:
		return driver.ByID, s.Value
	case selector.CSS:
		return driver.ByCSS, s.Value
	case selector.Name:
		return driver.ByName, s.Value
	case selector.AccessibilityID:
		return driver.ByXPath, "//*[@content-desc=" + xpathLiteral(s.Value) + "]"
	default:
		return driver.ByCSS, s.Value
	}
}

// xpathLiteral quotes v for use inside an XPath 1.0 expression, which has no escape sequences.
func xpathLiteral(v string) string {
	switch {
	case !strings.Contains(v, `"`):
		return `"` + v + `"`
	case !strings.Contains(v, `'`):
		return `'` + v + `'`
	default:
		parts := strings.Split(v, `"`)
		quoted := make([]string, 0, 2*len(parts))
		for i, p := range parts {
			if i > 0 {
				quoted = append(quoted, `'"'`)
			}
			quoted = append(quoted, `"`+p+`"`)
		}
		return "concat(" + strings.Join(quoted, ", ") + ")"
	}
}
