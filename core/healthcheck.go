package core

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/lmittmann/tint"
)

// HealthCheck reports an unhealthy dependency by returning an error.
type HealthCheck func(ctx context.Context) error

// SetupHealthCheck serves GET /healthcheck, which responds “ok” only when every check passes.
func SetupHealthCheck(mux *http.ServeMux, checks ...HealthCheck) {
	mux.HandleFunc("GET /healthcheck", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
		defer cancel()
		for _, check := range checks {
			if err := check(ctx); err != nil {
				slog.Error("/healthcheck: failed", tint.Err(err), "from", ReadUserIP(req))
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		slog.Info("/healthcheck: ok", "from", ReadUserIP(req))
		w.Write([]byte("ok"))
	})
}

func VerifyHealthCheck(host string, port int) int {
	url := "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/healthcheck"
	client := http.Client{
		Timeout: 5 * time.Second,
	}
	resp, err := client.Get(url)
	if err != nil {
		fmt.Printf("failed: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("failed: %s\n", resp.Status)
		return 1
	}

	fmt.Println("ok")
	return 0
}
