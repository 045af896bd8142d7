package capture

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chimbori.dev/scrollshot/driver"
	"github.com/lmittmann/tint"
)

// ScrollState is the mutable progress of one capture loop.
type ScrollState struct {
	CumulativeScrollOffset int // CSS pixels
	PreviousSignature      string
	SameSignatureStreak    int
}

// EndOfPage decides whether the last scroll moved the page at all, by comparing page-source signatures.
// For pages with a DOM, the markup does not change when the page scrolls, so the document's scroll
// position is folded into the signature.
type EndOfPage struct {
	drv    driver.Driver
	dom    bool
	settle time.Duration
	sleep  func(time.Duration)
	logger *slog.Logger
}

func NewEndOfPage(drv driver.Driver, dom bool, settle time.Duration, sleep func(time.Duration), logger *slog.Logger) *EndOfPage {
	if sleep == nil {
		sleep = time.Sleep
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EndOfPage{drv: drv, dom: dom, settle: settle, sleep: sleep, logger: logger}
}

// Reached waits for the page to settle, reads its source, & reports true when the signature matches
// the previous one. An empty source never matches. Failure to read the source reports true, so that
// a broken session cannot keep the loop scrolling.
func (e *EndOfPage) Reached(ctx context.Context, state *ScrollState) bool {
	if e.settle > 0 {
		e.sleep(e.settle)
	}

	source, err := e.drv.PageSource(ctx)
	if err != nil {
		e.logger.Warn("stopping capture", tint.Err(fmt.Errorf("%w: %w", ErrPageSignatureRead, err)))
		return true
	}

	signature := Signature(source, e.dom)
	if signature != "" && e.dom {
		signature += "@" + e.scrollPosition(ctx)
	}
	if signature == "" {
		state.SameSignatureStreak = 0
		return false
	}
	if signature == state.PreviousSignature {
		state.SameSignatureStreak++
		e.logger.Debug("page source unchanged after scroll", "streak", state.SameSignatureStreak)
		return true
	}
	state.PreviousSignature = signature
	state.SameSignatureStreak = 0
	return false
}

func (e *EndOfPage) scrollPosition(ctx context.Context) string {
	res, err := e.drv.ExecuteScript(ctx, scrollPositionScript)
	if err != nil {
		e.logger.Debug("failed to read scroll position", tint.Err(err))
		return ""
	}
	return fmt.Sprint(res)
}
