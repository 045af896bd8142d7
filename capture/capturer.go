package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"chimbori.dev/scrollshot/driver"
	"chimbori.dev/scrollshot/geometry"
	"chimbori.dev/scrollshot/platform"
	"chimbori.dev/scrollshot/selector"
	"github.com/lmittmann/tint"
)

// MaxChunksCeiling is the hard upper bound on chunks per capture; callers can only lower it.
const MaxChunksCeiling = 10

const (
	DefaultScrollSettle    = 500 * time.Millisecond
	DefaultSignatureSettle = 300 * time.Millisecond
	DefaultPreviewWidth    = 600
)

// State is the position of a capture loop in its lifecycle.
type State int

const (
	Idle State = iota
	Capturing
	Scrolling
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	case Scrolling:
		return "scrolling"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Session is the record of one capture call.
type Session struct {
	MaxChunks      int
	ChunkIndex     int
	State          State
	Scroll         ScrollState
	Screenshots    []Artifact
	IgnoreElements *geometry.Set
	SelectElements *geometry.Set
	Terminated     bool
}

// ElementsResult is returned by [Capturer.CaptureFullPageWithElements].
type ElementsResult struct {
	Screenshots []Artifact             `json:"screenshots"`
	Elements    []geometry.BoundingBox `json:"elements"`
	Purpose     geometry.Purpose       `json:"purpose"`
}

// DualResult is returned by [Capturer.CaptureFullPageWithBothSelectors].
type DualResult struct {
	Screenshots    []Artifact             `json:"screenshots"`
	IgnoreElements []geometry.BoundingBox `json:"ignoreElements"`
	SelectElements []geometry.BoundingBox `json:"selectElements"`
}

// Capturer scrolls through the screen behind one driver, capturing screenshot chunks and the geometry
// of selected elements. A Capturer owns its driver exclusively; calls on it are serialised.
type Capturer struct {
	mu sync.Mutex

	drv          driver.Driver
	name         string
	pc           platform.Context
	tables       platform.Tables
	testType     platform.TestType
	chromeOffset int

	outputDir       string
	maxChunks       int
	scrollSettle    time.Duration
	signatureSettle time.Duration
	previews        bool
	previewWidth    int
	compress        bool

	sleep  func(time.Duration)
	now    func() time.Time
	logger *slog.Logger

	locator  *Locator
	scroller Scroller
	eop      *EndOfPage

	elements []geometry.BoundingBox
	last     *Session
}

type Option func(*Capturer)

// WithOutputDir sets the directory under which <name>/<name>_<index>.png files are written.
func WithOutputDir(dir string) Option {
	return func(c *Capturer) { c.outputDir = dir }
}

func WithTestType(t platform.TestType) Option {
	return func(c *Capturer) { c.testType = t }
}

// WithTables replaces the built-in device tables.
func WithTables(t platform.Tables) Option {
	return func(c *Capturer) { c.tables = t }
}

// WithSettle sets the delays after each scroll, and before reading the page source.
func WithSettle(scroll, signature time.Duration) Option {
	return func(c *Capturer) {
		c.scrollSettle = scroll
		c.signatureSettle = signature
	}
}

// WithPreviews enables WebP previews of each chunk, scaled down to width.
func WithPreviews(enabled bool, width int) Option {
	return func(c *Capturer) {
		c.previews = enabled
		c.previewWidth = width
	}
}

// WithCompression losslessly recompresses each chunk before it is written.
func WithCompression(enabled bool) Option {
	return func(c *Capturer) { c.compress = enabled }
}

// WithMaxChunks lowers the default chunk budget. Values outside (0, MaxChunksCeiling] are ignored.
func WithMaxChunks(n int) Option {
	return func(c *Capturer) {
		if n > 0 && n < MaxChunksCeiling {
			c.maxChunks = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Capturer) { c.logger = logger }
}

// WithSleep replaces time.Sleep for settle delays.
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Capturer) { c.sleep = sleep }
}

// WithClock replaces time.Now for box timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Capturer) { c.now = now }
}

// New inspects the session behind drv once, and returns a Capturer that writes chunks named after name.
func New(ctx context.Context, drv driver.Driver, name string, opts ...Option) (*Capturer, error) {
	if drv == nil {
		return nil, errors.New("nil driver")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("missing capture name")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("invalid capture name %q", name)
	}

	c := &Capturer{
		drv:             drv,
		name:            name,
		tables:          platform.DefaultTables(),
		testType:        platform.TestTypeWeb,
		outputDir:       "captures",
		maxChunks:       MaxChunksCeiling,
		scrollSettle:    DefaultScrollSettle,
		signatureSettle: DefaultSignatureSettle,
		previewWidth:    DefaultPreviewWidth,
		sleep:           time.Sleep,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	c.pc = platform.NewContext(ctx, drv, c.tables, c.logger)
	c.chromeOffset = platform.ChromeOffset(c.pc, c.testType, c.tables)
	c.logger = c.logger.With("name", name, "platform", c.pc.Kind.String())

	c.locator = NewLocator(drv, c.pc.Kind, c.logger)
	c.scroller = NewScroller(drv, c.pc.Kind, c.logger)
	c.eop = NewEndOfPage(drv, c.pc.Kind.HasDOM(), c.signatureSettle, c.sleep, c.logger)
	return c, nil
}

// Platform returns the platform facts computed when the Capturer was created.
func (c *Capturer) Platform() platform.Context {
	return c.pc
}

// ChromeOffset returns the device-pixel offset added to every recorded box's Y.
func (c *Capturer) ChromeOffset() int {
	return c.chromeOffset
}

// Dir returns the directory that chunk files are written into.
func (c *Capturer) Dir() string {
	return filepath.Join(c.outputDir, c.name)
}

// Elements returns the boxes recorded by the last [Capturer.CaptureFullPageWithSelectors] call.
func (c *Capturer) Elements() []geometry.BoundingBox {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]geometry.BoundingBox, len(c.elements))
	copy(out, c.elements)
	return out
}

// LastSession returns the record of the most recent capture call, or nil if there was none.
func (c *Capturer) LastSession() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// CaptureFullPage captures up to maxChunks screenshots without element detection.
func (c *Capturer) CaptureFullPage(ctx context.Context, maxChunks int) []Artifact {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run(ctx, maxChunks).Screenshots
}

// CaptureFullPageWithSelectors captures the page and detects group in every chunk, labelling boxes
// as ignored. The boxes are kept on the Capturer; see [Capturer.Elements].
func (c *Capturer) CaptureFullPageWithSelectors(ctx context.Context, maxChunks int, group selector.Group) []Artifact {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.run(ctx, maxChunks, detection{group: group, purpose: geometry.Ignore})
	c.elements = s.IgnoreElements.Boxes()
	return s.Screenshots
}

// CaptureFullPageWithElements captures the page and detects group with the given purpose. On iOS,
// detection runs once before the first scroll over the full element tree; elsewhere it runs per chunk.
func (c *Capturer) CaptureFullPageWithElements(ctx context.Context, maxChunks int, group selector.Group, purpose geometry.Purpose) ElementsResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	oneShot := c.pc.Kind.IsIOS()
	s := c.run(ctx, maxChunks, detection{group: group, purpose: purpose, oneShot: oneShot})
	set := s.IgnoreElements
	if purpose == geometry.Select {
		set = s.SelectElements
	}
	return ElementsResult{
		Screenshots: s.Screenshots,
		Elements:    set.Boxes(),
		Purpose:     purpose,
	}
}

// CaptureFullPageWithBothSelectors detects the ignore & select groups independently, with the same
// iOS-versus-other scheduling as [Capturer.CaptureFullPageWithElements].
func (c *Capturer) CaptureFullPageWithBothSelectors(ctx context.Context, maxChunks int, ignore, sel selector.Group) DualResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	oneShot := c.pc.Kind.IsIOS()
	s := c.run(ctx, maxChunks,
		detection{group: ignore, purpose: geometry.Ignore, oneShot: oneShot},
		detection{group: sel, purpose: geometry.Select, oneShot: oneShot},
	)
	return DualResult{
		Screenshots:    s.Screenshots,
		IgnoreElements: s.IgnoreElements.Boxes(),
		SelectElements: s.SelectElements.Boxes(),
	}
}

// detection is one selector group to resolve during a capture loop.
type detection struct {
	group   selector.Group
	purpose geometry.Purpose
	oneShot bool // Run once in chunk 0 over the whole tree, instead of per chunk with the visibility filter.
}

// budget clamps a caller-supplied chunk count to the configured ceiling.
func (c *Capturer) budget(n int) int {
	if n <= 0 || n > c.maxChunks {
		return c.maxChunks
	}
	return n
}

func (c *Capturer) run(ctx context.Context, maxChunks int, detections ...detection) *Session {
	s := &Session{
		MaxChunks:      c.budget(maxChunks),
		State:          Idle,
		IgnoreElements: geometry.NewSet(),
		SelectElements: geometry.NewSet(),
	}
	c.last = s

	writer := ArtifactWriter{
		Dir:          c.outputDir,
		Name:         c.name,
		Previews:     c.previews,
		PreviewWidth: c.previewWidth,
		Compress:     c.compress,
		Logger:       c.logger,
	}
	extractor := Extractor{
		DPR:          c.pc.DevicePixelRatio,
		ChromeOffset: c.chromeOffset,
		Platform:     c.pc.Kind.Family(),
		Now:          c.now,
	}

	start := time.Now()
	c.logger.Info("capture started", "max-chunks", s.MaxChunks, "chrome-offset", c.chromeOffset)

	for s.ChunkIndex < s.MaxChunks && !s.Terminated {
		logger := c.logger.With("chunk", s.ChunkIndex)
		s.State = Capturing

		if png, err := c.drv.Screenshot(ctx); err != nil {
			logger.Error("failed to take screenshot", tint.Err(fmt.Errorf("%w: %w", ErrScreenshotIO, err)))
		} else if artifact, err := writer.Write(s.ChunkIndex, png); err != nil {
			logger.Error("failed to save screenshot", tint.Err(err))
		} else {
			s.Screenshots = append(s.Screenshots, artifact)
		}

		for _, d := range detections {
			if d.group.Empty() || (d.oneShot && s.ChunkIndex > 0) {
				continue
			}
			set := s.IgnoreElements
			if d.purpose == geometry.Select {
				set = s.SelectElements
			}
			added := c.detect(ctx, s, d, set, extractor)
			logger.Debug("elements detected", "purpose", string(d.purpose), "added", added, "total", set.Len())
		}

		s.State = Scrolling
		distance := c.scroller.Scroll(ctx)
		s.Scroll.CumulativeScrollOffset += distance
		if c.scrollSettle > 0 {
			c.sleep(c.scrollSettle)
		}
		if c.eop.Reached(ctx, &s.Scroll) {
			s.Terminated = true
			logger.Debug("end of page reached", "offset", s.Scroll.CumulativeScrollOffset)
		}
		s.ChunkIndex++
	}

	s.Terminated = true
	s.State = Terminated
	c.logger.Info("capture finished",
		"chunks", s.ChunkIndex,
		"screenshots", len(s.Screenshots),
		"ignore-elements", s.IgnoreElements.Len(),
		"select-elements", s.SelectElements.Len(),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return s
}

// detect resolves one selector group for the current chunk and records its boxes in set, returning
// how many were added. Selector keys already present in set are not queried again.
func (c *Capturer) detect(ctx context.Context, s *Session, d detection, set *geometry.Set, extractor Extractor) int {
	visibleOnly := !d.oneShot
	var viewport driver.Size
	if visibleOnly {
		var err error
		if viewport, err = c.drv.WindowSize(ctx); err != nil {
			c.logger.Warn("failed to read viewport; keeping all elements", tint.Err(err), "chunk", s.ChunkIndex)
			visibleOnly = false
		}
	}

	offset := s.Scroll.CumulativeScrollOffset
	added := 0
	for _, lookup := range c.locator.LocateGroup(ctx, d.group, set.HasKey) {
		if lookup.Code != CodeOK {
			continue
		}
		key := lookup.Selector.Key()
		for _, r := range lookup.Rects {
			abs := extractor.Absolute(r, offset)
			if visibleOnly && !geometry.FullyVisible(abs, viewport, offset) {
				continue
			}
			if set.Add(extractor.Box(abs, key, s.ChunkIndex, d.purpose)) {
				added++
			}
		}
	}
	return added
}
