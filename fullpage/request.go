package fullpage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"chimbori.dev/scrollshot/capture"
	"chimbori.dev/scrollshot/core"
	"chimbori.dev/scrollshot/geometry"
	"chimbori.dev/scrollshot/selector"
)

// Request describes one full-page capture, as accepted by both the HTTP API and the command line.
type Request struct {
	Url     string
	Name    string
	Chunks  int
	Ignore  selector.Group
	Select  selector.Group
	Purpose geometry.Purpose // Empty unless explicitly requested.
}

// Result is the JSON shape returned for every kind of capture.
type Result struct {
	Url            string                 `json:"url,omitempty"`
	Name           string                 `json:"name"`
	Platform       string                 `json:"platform"`
	Screenshots    []capture.Artifact     `json:"screenshots"`
	IgnoreElements []geometry.BoundingBox `json:"ignoreElements"`
	SelectElements []geometry.BoundingBox `json:"selectElements"`
}

// ParseRequest reads a [Request] from query parameters: url, name, chunks, ignore, select & purpose.
// Selector groups are JSON objects such as {"css": [".ad"]}. The url is not validated here.
func ParseRequest(q url.Values) (Request, error) {
	var err error
	r := Request{
		Url:  strings.TrimSpace(q.Get("url")),
		Name: strings.TrimSpace(q.Get("name")),
	}
	if chunks := q.Get("chunks"); chunks != "" {
		if r.Chunks, err = strconv.Atoi(chunks); err != nil {
			return Request{}, fmt.Errorf("invalid chunks %q", chunks)
		}
	}
	if r.Ignore, err = selector.Parse(q.Get("ignore")); err != nil {
		return Request{}, fmt.Errorf("ignore: %w", err)
	}
	if r.Select, err = selector.Parse(q.Get("select")); err != nil {
		return Request{}, fmt.Errorf("select: %w", err)
	}
	if purpose := q.Get("purpose"); purpose != "" {
		if r.Purpose, err = geometry.ParsePurpose(purpose); err != nil {
			return Request{}, err
		}
	}
	return r, r.check()
}

// check rejects names that are not a single path element, and an explicit purpose that does not
// match the single selector group supplied.
func (r Request) check() error {
	if strings.ContainsAny(r.Name, `/\`) || r.Name == "." || r.Name == ".." {
		return fmt.Errorf("invalid name %q", r.Name)
	}
	if r.Purpose == "" {
		return nil
	}
	switch {
	case !r.Ignore.Empty() && !r.Select.Empty():
		return errors.New("purpose cannot be combined with both ignore and select")
	case r.Purpose == geometry.Ignore && r.Ignore.Empty():
		return errors.New("purpose ignore requires an ignore group")
	case r.Purpose == geometry.Select && r.Select.Empty():
		return errors.New("purpose select requires a select group")
	}
	return nil
}

// DefaultName derives a stable capture name for r.Url when none was given.
func (r Request) DefaultName() string {
	if r.Name != "" {
		return r.Name
	}
	return "page-" + core.MD5(r.Url)[:12]
}

// CacheKey identifies requests that would produce the same result.
func (r Request) CacheKey() string {
	return strings.Join([]string{
		r.Url,
		r.DefaultName(),
		strconv.Itoa(r.Chunks),
		groupKey(r.Ignore),
		groupKey(r.Select),
		string(r.Purpose),
	}, "\x00")
}

func groupKey(g selector.Group) string {
	var keys []string
	for _, s := range g.Selectors() {
		keys = append(keys, s.Key())
	}
	return strings.Join(keys, "\x01")
}

// Run performs the capture r asks for on c:
//   - neither group: screenshots only.
//   - both groups: ignore & select are detected independently.
//   - an ignore group alone, without an explicit purpose: the per-chunk ignore policy.
//   - any other single group: detected with its purpose.
func Run(ctx context.Context, c *capture.Capturer, r Request) Result {
	res := Result{
		Url:            r.Url,
		Name:           r.DefaultName(),
		Platform:       c.Platform().Kind.String(),
		IgnoreElements: []geometry.BoundingBox{},
		SelectElements: []geometry.BoundingBox{},
	}

	switch {
	case r.Ignore.Empty() && r.Select.Empty():
		res.Screenshots = c.CaptureFullPage(ctx, r.Chunks)

	case !r.Ignore.Empty() && !r.Select.Empty():
		dual := c.CaptureFullPageWithBothSelectors(ctx, r.Chunks, r.Ignore, r.Select)
		res.Screenshots = dual.Screenshots
		res.IgnoreElements = nonNil(dual.IgnoreElements)
		res.SelectElements = nonNil(dual.SelectElements)

	case !r.Ignore.Empty() && r.Purpose == "":
		res.Screenshots = c.CaptureFullPageWithSelectors(ctx, r.Chunks, r.Ignore)
		res.IgnoreElements = nonNil(c.Elements())

	case !r.Ignore.Empty():
		elements := c.CaptureFullPageWithElements(ctx, r.Chunks, r.Ignore, geometry.Ignore)
		res.Screenshots = elements.Screenshots
		res.IgnoreElements = nonNil(elements.Elements)

	default:
		elements := c.CaptureFullPageWithElements(ctx, r.Chunks, r.Select, geometry.Select)
		res.Screenshots = elements.Screenshots
		res.SelectElements = nonNil(elements.Elements)
	}

	if res.Screenshots == nil {
		res.Screenshots = []capture.Artifact{}
	}
	return res
}

func nonNil(boxes []geometry.BoundingBox) []geometry.BoundingBox {
	if boxes == nil {
		return []geometry.BoundingBox{}
	}
	return boxes
}
