package capture

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chimbori.dev/scrollshot/driver"
	"chimbori.dev/scrollshot/platform"
	"github.com/lmittmann/tint"
)

// Proportions of the screen height, in percent.
const (
	androidStripTop    = 30
	androidStripHeight = 35
	androidStripWidth  = 10
	androidScrollSpeed = 1500 // px/s; well below the UiAutomator2 default, for repeatable motion.
	iosDragStart       = 70
	iosDragEnd         = 40
	iosDragDuration    = 1500 * time.Millisecond
	webScrollHeight    = 80
)

// Scroller performs one scroll step and returns the intended scroll distance in CSS pixels.
// The distance is what was requested, not what the surface actually moved; failures return 0.
type Scroller interface {
	Scroll(ctx context.Context) int
}

// NewScroller returns the scroll strategy for the platform family of kind.
func NewScroller(drv driver.Driver, kind platform.Kind, logger *slog.Logger) Scroller {
	if logger == nil {
		logger = slog.Default()
	}
	switch {
	case kind.IsAndroid():
		return &androidScroller{drv: drv, logger: logger}
	case kind.IsIOS():
		return &iosScroller{drv: drv, logger: logger}
	default:
		return &webScroller{drv: drv, logger: logger}
	}
}

type androidScroller struct {
	drv    driver.Driver
	logger *slog.Logger
}

func (s *androidScroller) Scroll(ctx context.Context) int {
	size, err := s.drv.WindowSize(ctx)
	if err != nil {
		s.logger.Warn("scroll skipped", tint.Err(fmt.Errorf("%w: window size: %w", ErrScroll, err)))
		return 0
	}
	width := max(1, size.Width*androidStripWidth/100)
	height := size.Height * androidStripHeight / 100
	args := map[string]any{
		"left":      size.Width/2 - width/2,
		"top":       size.Height * androidStripTop / 100,
		"width":     width,
		"height":    height,
		"direction": "down",
		"percent":   1.0,
		"speed":     androidScrollSpeed,
	}
	if _, err := s.drv.ExecuteScript(ctx, androidScrollCommand, args); err != nil {
		s.logger.Warn("scroll failed", tint.Err(fmt.Errorf("%w: %w", ErrScroll, err)))
		return 0
	}
	return height
}

type iosScroller struct {
	drv    driver.Driver
	logger *slog.Logger
}

func (s *iosScroller) Scroll(ctx context.Context) int {
	size, err := s.drv.WindowSize(ctx)
	if err != nil {
		s.logger.Warn("scroll skipped", tint.Err(fmt.Errorf("%w: window size: %w", ErrScroll, err)))
		return 0
	}
	x := size.Width / 2
	startY := size.Height * iosDragStart / 100
	endY := size.Height * iosDragEnd / 100
	drag := driver.Gesture{
		PointerType: "touch",
		Actions: []driver.PointerAction{
			{Type: driver.PointerMove, X: x, Y: startY},
			{Type: driver.PointerDown},
			{Type: driver.PointerMove, X: x, Y: endY, Duration: iosDragDuration},
			{Type: driver.PointerUp},
		},
	}
	if err := s.drv.PerformGesture(ctx, drag); err != nil {
		s.logger.Warn("scroll failed", tint.Err(fmt.Errorf("%w: %w", ErrScroll, err)))
		return 0
	}
	return startY - endY
}

type webScroller struct {
	drv    driver.Driver
	logger *slog.Logger
}

func (s *webScroller) Scroll(ctx context.Context) int {
	size, err := s.drv.WindowSize(ctx)
	if err != nil {
		s.logger.Warn("scroll skipped", tint.Err(fmt.Errorf("%w: viewport size: %w", ErrScroll, err)))
		return 0
	}
	distance := size.Height * webScrollHeight / 100
	if _, err := s.drv.ExecuteScript(ctx, scrollByScript, distance); err != nil {
		s.logger.Warn("scroll failed", tint.Err(fmt.Errorf("%w: %w", ErrScroll, err)))
		return 0
	}
	return distance
}
