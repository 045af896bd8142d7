package appium

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"chimbori.dev/scrollshot/capture"
	"chimbori.dev/scrollshot/driver"
	"chimbori.dev/scrollshot/driver/drivertest"
	"chimbori.dev/scrollshot/geometry"
	"chimbori.dev/scrollshot/selector"
)

// fakeServer is a tiny scripted Appium server for one iOS session.
type fakeServer struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string]map[string]any
	sources  []string
}

func (f *fakeServer) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		key := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/wd/hub")
		f.requests = append(f.requests, key)
		var body map[string]any
		if r.Body != nil {
			json.NewDecoder(r.Body).Decode(&body)
		}
		if f.bodies == nil {
			f.bodies = make(map[string]map[string]any)
		}
		f.bodies[key] = body

		reply := func(status int, value any) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]any{"value": value})
		}

		switch key {
		case "POST /session":
			reply(http.StatusOK, map[string]any{
				"sessionId": "s1",
				"capabilities": map[string]any{
					"platformName":      "iOS",
					"appium:deviceName": "iPhone 14 Pro",
				},
			})
		case "POST /session/s1/elements":
			if body["value"] == "Buy" {
				reply(http.StatusOK, []any{map[string]any{elementKey: "el-1"}})
				return
			}
			reply(http.StatusNotFound, map[string]any{"error": "no such element", "message": "not found"})
		case "GET /session/s1/element/el-1/rect":
			reply(http.StatusOK, map[string]any{"x": 10, "y": 700, "width": 100, "height": 44})
		case "GET /session/s1/element/stale/rect":
			reply(http.StatusNotFound, map[string]any{"error": "stale element reference", "message": "gone"})
		case "GET /session/s1/screenshot":
			reply(http.StatusOK, base64.StdEncoding.EncodeToString(drivertest.PNG(8, 8)))
		case "GET /session/s1/window/rect":
			reply(http.StatusOK, map[string]any{"x": 0, "y": 0, "width": 390, "height": 844})
		case "POST /session/s1/actions", "DELETE /session/s1/actions", "DELETE /session/s1":
			reply(http.StatusOK, nil)
		case "GET /session/s1/source":
			source := f.sources[0]
			if len(f.sources) > 1 {
				f.sources = f.sources[1:]
			}
			reply(http.StatusOK, source)
		case "POST /session/s1/execute/sync":
			reply(http.StatusOK, body["args"])
		default:
			t.Errorf("Unexpected request %s", key)
			reply(http.StatusNotFound, map[string]any{"error": "unknown command", "message": key})
		}
	})
}

func (f *fakeServer) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r == key {
			n++
		}
	}
	return n
}

func newTestSession(t *testing.T, f *fakeServer) *Session {
	t.Helper()
	server := httptest.NewServer(f.handler(t))
	t.Cleanup(server.Close)
	s, err := NewSession(context.Background(), server.URL+"/wd/hub/", driver.Capabilities{"platformName": "iOS"}, nil)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return s
}

func TestNewSession(t *testing.T) {
	f := &fakeServer{sources: []string{"<x/>"}}
	s := newTestSession(t, f)

	if s.ID() != "s1" {
		t.Errorf("Expected session s1, got %s", s.ID())
	}
	caps, _ := s.Capabilities(context.Background())
	if caps.String("deviceName") != "iPhone 14 Pro" {
		t.Errorf("Expected granted capabilities, got %v", caps)
	}
	always := f.bodies["POST /session"]["capabilities"].(map[string]any)["alwaysMatch"].(map[string]any)
	if always["platformName"] != "iOS" {
		t.Errorf("Expected alwaysMatch capabilities, got %v", always)
	}
}

func TestCommands(t *testing.T) {
	ctx := context.Background()
	f := &fakeServer{sources: []string{"<XCUIElementTypeApplication/>"}}
	s := newTestSession(t, f)

	t.Run("find elements", func(t *testing.T) {
		elements, err := s.FindElements(ctx, driver.ByID, "Buy")
		if err != nil || len(elements) != 1 || elements[0].ID != "el-1" {
			t.Errorf("Expected el-1, got %v, %v", elements, err)
		}
	})

	t.Run("no such element is empty", func(t *testing.T) {
		elements, err := s.FindElements(ctx, driver.ByID, "Missing")
		if err != nil || len(elements) != 0 {
			t.Errorf("Expected no elements, got %v, %v", elements, err)
		}
	})

	t.Run("element rect", func(t *testing.T) {
		r, err := s.ElementRect(ctx, driver.Element{ID: "el-1"})
		if err != nil {
			t.Fatal(err)
		}
		if r != (driver.Rect{X: 10, Y: 700, Width: 100, Height: 44}) {
			t.Errorf("Unexpected rect %+v", r)
		}
	})

	t.Run("screenshot", func(t *testing.T) {
		png, err := s.Screenshot(ctx)
		if err != nil || !strings.HasPrefix(string(png), "\x89PNG") {
			t.Errorf("Expected PNG, got %d bytes, %v", len(png), err)
		}
	})

	t.Run("window size", func(t *testing.T) {
		size, err := s.WindowSize(ctx)
		if err != nil || size != (driver.Size{Width: 390, Height: 844}) {
			t.Errorf("Expected 390×844, got %+v, %v", size, err)
		}
	})

	t.Run("execute script", func(t *testing.T) {
		res, err := s.ExecuteScript(ctx, "mobile: scrollGesture", map[string]any{"direction": "down"})
		if err != nil {
			t.Fatal(err)
		}
		args := res.([]any)
		if len(args) != 1 || args[0].(map[string]any)["direction"] != "down" {
			t.Errorf("Unexpected echo %v", res)
		}
	})

	t.Run("gesture", func(t *testing.T) {
		err := s.PerformGesture(ctx, driver.Gesture{
			PointerType: "touch",
			Actions: []driver.PointerAction{
				{Type: driver.PointerMove, X: 1, Y: 2},
				{Type: driver.PointerDown},
				{Type: driver.PointerMove, X: 1, Y: 1, Duration: 1500 * time.Millisecond},
				{Type: driver.PointerUp},
			},
		})
		if err != nil {
			t.Fatal(err)
		}
		sequence := f.bodies["POST /session/s1/actions"]["actions"].([]any)[0].(map[string]any)
		actions := sequence["actions"].([]any)
		if len(actions) != 4 {
			t.Fatalf("Expected 4 actions, got %d", len(actions))
		}
		if d := actions[2].(map[string]any)["duration"]; d != float64(1500) {
			t.Errorf("Expected duration 1500, got %v", d)
		}
		if f.count("DELETE /session/s1/actions") != 1 {
			t.Error("Expected actions to be released")
		}
	})

	t.Run("page source", func(t *testing.T) {
		source, err := s.PageSource(ctx)
		if err != nil || source != "<XCUIElementTypeApplication/>" {
			t.Errorf("Unexpected source %q, %v", source, err)
		}
	})

	t.Run("close", func(t *testing.T) {
		if err := s.Close(ctx); err != nil {
			t.Error(err)
		}
	})
}

func TestErrorResponse(t *testing.T) {
	f := &fakeServer{sources: []string{""}}
	s := newTestSession(t, f)
	_, err := s.ElementRect(context.Background(), driver.Element{ID: "stale"})
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "stale element reference") {
		t.Errorf("Expected W3C error code in %q", err)
	}
}

func TestCaptureOverAppium(t *testing.T) {
	f := &fakeServer{sources: []string{"<a/>", "<b/>", "<b/>"}}
	s := newTestSession(t, f)

	c, err := capture.New(context.Background(), s, "ios",
		capture.WithOutputDir(t.TempDir()), capture.WithSettle(0, 0))
	if err != nil {
		t.Fatal(err)
	}
	res := c.CaptureFullPageWithElements(context.Background(), 10,
		selector.Group{selector.ID: {"Buy"}}, geometry.Select)

	if len(res.Screenshots) != 3 {
		t.Errorf("Expected 3 screenshots, got %d", len(res.Screenshots))
	}
	if f.count("POST /session/s1/elements") != 1 {
		t.Errorf("Expected a single element lookup, got %d", f.count("POST /session/s1/elements"))
	}
	if len(res.Elements) != 1 || res.Elements[0].Y != 2100 {
		t.Errorf("Unexpected elements %+v", res.Elements)
	}
}
