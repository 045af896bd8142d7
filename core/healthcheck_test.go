package core

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

func TestSetupHealthCheck(t *testing.T) {
	t.Run("registers healthcheck endpoint", func(t *testing.T) {
		mux := http.NewServeMux()
		SetupHealthCheck(mux)

		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))

		resp := w.Result()
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected status code %d, got %d", http.StatusOK, resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		if string(body) != "ok" {
			t.Errorf("Expected response body “ok”, got %q", string(body))
		}
	})

	t.Run("only accepts GET method", func(t *testing.T) {
		mux := http.NewServeMux()
		SetupHealthCheck(mux)

		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(method, "/healthcheck", nil))
			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("Expected status code %d for %s method, got %d", http.StatusMethodNotAllowed, method, w.Code)
			}
		}
	})

	t.Run("failing check", func(t *testing.T) {
		mux := http.NewServeMux()
		calls := 0
		SetupHealthCheck(mux,
			func(ctx context.Context) error { calls++; return nil },
			func(ctx context.Context) error { calls++; return errors.New("database unreachable") },
			func(ctx context.Context) error { calls++; return nil },
		)

		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status code %d, got %d", http.StatusServiceUnavailable, w.Code)
		}
		if calls != 2 {
			t.Errorf("Expected checks to stop at the first failure, got %d calls", calls)
		}
	})
}

func TestVerifyHealthCheck(t *testing.T) {
	hostPort := func(t *testing.T, server *httptest.Server) (string, int) {
		t.Helper()
		host, portStr, err := net.SplitHostPort(server.Listener.Addr().String())
		if err != nil {
			t.Fatalf("Failed to split server address: %v", err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			t.Fatalf("Failed to parse port: %v", err)
		}
		return host, port
	}

	t.Run("successful healthcheck", func(t *testing.T) {
		mux := http.NewServeMux()
		SetupHealthCheck(mux)
		server := httptest.NewServer(mux)
		defer server.Close()

		host, port := hostPort(t, server)
		if exitCode := VerifyHealthCheck(host, port); exitCode != 0 {
			t.Errorf("Expected exit code 0, got %d", exitCode)
		}
	})

	t.Run("server returns error status", func(t *testing.T) {
		mux := http.NewServeMux()
		SetupHealthCheck(mux, func(ctx context.Context) error { return errors.New("down") })
		server := httptest.NewServer(mux)
		defer server.Close()

		host, port := hostPort(t, server)
		if exitCode := VerifyHealthCheck(host, port); exitCode != 1 {
			t.Errorf("Expected exit code 1 when server returns error, got %d", exitCode)
		}
	})

	t.Run("server not running", func(t *testing.T) {
		server := httptest.NewServer(http.NewServeMux())
		host, port := hostPort(t, server)
		server.Close()

		if exitCode := VerifyHealthCheck(host, port); exitCode != 1 {
			t.Errorf("Expected exit code 1 when server is not running, got %d", exitCode)
		}
	})
}
