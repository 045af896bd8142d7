// Package appium is a minimal W3C WebDriver client for Appium sessions, implementing [driver.Driver].
package appium

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"chimbori.dev/scrollshot/driver"
)

// elementKey is the W3C web element identifier.
const elementKey = "element-6066-11e4-a52e-4f735466cecf"

// Session is an open WebDriver session.
type Session struct {
	baseURL string
	id      string
	caps    driver.Capabilities
	client  *http.Client
	logger  *slog.Logger
}

var _ driver.Driver = (*Session)(nil)

// Error is a W3C error response.
type Error struct {
	Status  int
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("webdriver %s (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// IsNoSuchElement reports whether err is a W3C “no such element” error.
func IsNoSuchElement(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == "no such element"
}

// NewSession starts a session on the server at serverURL with the given capabilities, which are sent
// as alwaysMatch. The returned capabilities are those the server actually granted.
func NewSession(ctx context.Context, serverURL string, caps driver.Capabilities, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		baseURL: strings.TrimRight(serverURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Minute},
		logger:  logger,
	}

	var resp struct {
		SessionID    string              `json:"sessionId"`
		Capabilities driver.Capabilities `json:"capabilities"`
	}
	body := map[string]any{"capabilities": map[string]any{"alwaysMatch": caps}}
	if err := s.do(ctx, http.MethodPost, "/session", body, &resp); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if resp.SessionID == "" {
		return nil, errors.New("failed to create session: no session id")
	}
	s.id = resp.SessionID
	s.caps = resp.Capabilities
	if s.caps == nil {
		s.caps = caps
	}
	logger.Info("appium session created", "session", s.id, "url", s.baseURL)
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Close deletes the session.
func (s *Session) Close(ctx context.Context) error {
	return s.do(ctx, http.MethodDelete, s.path(""), nil, nil)
}

// Navigate loads url in a browser session.
func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.do(ctx, http.MethodPost, s.path("/url"), map[string]any{"url": url}, nil)
}

func (s *Session) Capabilities(ctx context.Context) (driver.Capabilities, error) {
	return s.caps, nil
}

func (s *Session) FindElements(ctx context.Context, by driver.By, value string) ([]driver.Element, error) {
	var refs []map[string]string
	body := map[string]any{"using": string(by), "value": value}
	if err := s.do(ctx, http.MethodPost, s.path("/elements"), body, &refs); err != nil {
		if IsNoSuchElement(err) {
			return nil, nil
		}
		return nil, err
	}
	elements := make([]driver.Element, 0, len(refs))
	for _, ref := range refs {
		if id := ref[elementKey]; id != "" {
			elements = append(elements, driver.Element{ID: id})
		}
	}
	return elements, nil
}

func (s *Session) ElementRect(ctx context.Context, el driver.Element) (driver.Rect, error) {
	var r driver.Rect
	err := s.do(ctx, http.MethodGet, s.path("/element/"+el.ID+"/rect"), nil, &r)
	return r, err
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var encoded string
	if err := s.do(ctx, http.MethodGet, s.path("/screenshot"), nil, &encoded); err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(encoded)
}

func (s *Session) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	if args == nil {
		args = []any{}
	}
	var res any
	body := map[string]any{"script": script, "args": args}
	if err := s.do(ctx, http.MethodPost, s.path("/execute/sync"), body, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Session) PerformGesture(ctx context.Context, g driver.Gesture) error {
	pointerType := g.PointerType
	if pointerType == "" {
		pointerType = "touch"
	}
	actions := make([]map[string]any, 0, len(g.Actions))
	for _, a := range g.Actions {
		switch a.Type {
		case driver.PointerMove:
			actions = append(actions, map[string]any{
				"type":     string(a.Type),
				"duration": a.Duration.Milliseconds(),
				"x":        a.X,
				"y":        a.Y,
				"origin":   "viewport",
			})
		case driver.PointerDown, driver.PointerUp:
			actions = append(actions, map[string]any{"type": string(a.Type), "button": 0})
		case driver.PointerPause:
			actions = append(actions, map[string]any{"type": string(a.Type), "duration": a.Duration.Milliseconds()})
		}
	}
	body := map[string]any{
		"actions": []map[string]any{{
			"type":       "pointer",
			"id":         "finger1",
			"parameters": map[string]any{"pointerType": pointerType},
			"actions":    actions,
		}},
	}
	if err := s.do(ctx, http.MethodPost, s.path("/actions"), body, nil); err != nil {
		return err
	}
	return s.do(ctx, http.MethodDelete, s.path("/actions"), nil, nil)
}

func (s *Session) WindowSize(ctx context.Context) (driver.Size, error) {
	var size driver.Size
	err := s.do(ctx, http.MethodGet, s.path("/window/rect"), nil, &size)
	return size, err
}

func (s *Session) PageSource(ctx context.Context) (string, error) {
	var source string
	err := s.do(ctx, http.MethodGet, s.path("/source"), nil, &source)
	return source, err
}

func (s *Session) path(suffix string) string {
	return "/session/" + s.id + suffix
}

// do sends a WebDriver command and decodes the "value" member of the response into out.
func (s *Session) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode %s %s response (HTTP %d): %w", method, path, resp.StatusCode, err)
	}
	s.logger.Debug("webdriver command",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"elapsed", time.Since(start).Round(time.Millisecond))

	if resp.StatusCode >= http.StatusBadRequest {
		e := &Error{Status: resp.StatusCode}
		if len(envelope.Value) > 0 {
			_ = json.Unmarshal(envelope.Value, e)
		}
		if e.Code == "" {
			e.Code = http.StatusText(resp.StatusCode)
		}
		return e
	}
	if out == nil || len(envelope.Value) == 0 || string(envelope.Value) == "null" {
		return nil
	}
	return json.Unmarshal(envelope.Value, out)
}
