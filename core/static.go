package core

import (
	"fmt"
	"net/http"
	"time"
)

// MaxAgeHandler returns middleware that lets clients cache successful responses for maxAge.
// A zero maxAge disables caching altogether.
func MaxAgeHandler(maxAge time.Duration) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if maxAge <= 0 {
				w.Header().Set("Cache-Control", "no-store")
			} else {
				w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", int(maxAge.Seconds())))
			}
			h.ServeHTTP(w, req)
		})
	}
}
