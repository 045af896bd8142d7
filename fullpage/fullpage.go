// Package fullpage serves full-page captures of Web pages over HTTP.
package fullpage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"chimbori.dev/scrollshot/capture"
	"chimbori.dev/scrollshot/conf"
	"chimbori.dev/scrollshot/core"
	"chimbori.dev/scrollshot/db"
	"chimbori.dev/scrollshot/validation"
	"github.com/justinas/alice"
	"github.com/lmittmann/tint"
)

// Cache holds JSON results keyed by [Request.CacheKey]; nil when caching is disabled.
var Cache *core.DiskCache

// openDriver is replaced in tests.
var openDriver = OpenBrowser

// logStore is nil when no database is configured.
var logStore db.DBTX

// Captures with the same name write to the same files, so they are serialised.
var nameLocks = struct {
	sync.Mutex
	m map[string]*nameLock
}{m: map[string]*nameLock{}}

type nameLock struct {
	sync.Mutex
	refs int
}

// lockName blocks until no other capture holds name. The returned func releases it, and forgets the
// lock once nobody else is waiting on it.
func lockName(name string) (unlock func()) {
	nameLocks.Lock()
	l := nameLocks.m[name]
	if l == nil {
		l = &nameLock{}
		nameLocks.m[name] = l
	}
	l.refs++
	nameLocks.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		nameLocks.Lock()
		if l.refs--; l.refs == 0 {
			delete(nameLocks.m, name)
		}
		nameLocks.Unlock()
	}
}

// nameKey is the cache entry that records which request last wrote the files for a name.
func nameKey(name string) string {
	return "name\x00" + name
}

// evictPrevious drops the cached result of the previous capture with this name, since its files are
// about to be overwritten.
func evictPrevious(name string) {
	previous, err := Cache.Find(nameKey(name))
	if err != nil {
		slog.Error("error during cache lookup", tint.Err(err), "name", name)
		return
	}
	if previous == nil {
		return
	}
	if err := Cache.Delete(string(previous)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("error evicting stale capture", tint.Err(err), "name", name)
		return
	}
	slog.Debug("stale capture evicted", "name", name)
}

func Init(mux *http.ServeMux) {
	if *conf.Config.Cache.Enabled {
		Cache = core.NewDiskCache(
			filepath.Join(conf.Config.DataDir, "cache", "captures"),
			core.WithTTL(conf.Config.Cache.TTL),
			core.WithMaxSize(conf.Config.Cache.MaxSizeBytes),
		)
	} // else cache will be nil
	if db.Pool != nil {
		logStore = db.Pool
	}

	chain := alice.New(core.SecurityHeaders, logRequests)
	mux.Handle("GET /captures/v1", chain.ThenFunc(handleCapture))
	mux.Handle("GET /captures/v1/preview", chain.Append(core.MaxAgeHandler(conf.Config.Cache.TTL)).ThenFunc(handlePreview))
	mux.Handle("GET /logs/v1", chain.ThenFunc(handleLogs))
}

// GET /captures/v1?url={url}&name={name}&chunks={n}&ignore={group}&select={group}&purpose={purpose}
// Validates the URL, serves a cached result if there is one, or else captures the page.
func handleCapture(w http.ResponseWriter, req *http.Request) {
	r, err := ParseRequest(req.URL.Query())
	if err != nil {
		slog.Error("invalid capture request", tint.Err(err),
			"method", req.Method,
			"path", req.URL.Path,
			"status", http.StatusBadRequest)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	url, hostname, err := validation.ValidateUrl(r.Url, conf.Config.Web.AllowedHosts)
	if err != nil {
		slog.Error("URL validation failed", tint.Err(err),
			"method", req.Method,
			"path", req.URL.Path,
			"url", r.Url,
			"hostname", hostname,
			"status", http.StatusForbidden)
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	r.Url = url

	if Cache != nil {
		cached, err := Cache.Find(r.CacheKey())
		if err != nil {
			// A broken cache should not fail the request.
			slog.Error("error during cache lookup", tint.Err(err), "url", url)
		} else if cached != nil {
			slog.Info("cached capture served", "url", url, "hostname", hostname)
			writeJSON(w, cached)
			return
		}
	}

	name := r.DefaultName()
	unlock := lockName(name)
	unlocked := false
	defer func() {
		if !unlocked {
			unlock()
		}
	}()
	if Cache != nil {
		evictPrevious(name)
	}

	ctx, cancel := context.WithTimeout(req.Context(), conf.Config.Browser.Timeout)
	defer cancel()
	logger := slog.Default().With("url", url)

	res, err := capturePage(ctx, r, logger)
	if err != nil {
		slog.Error("error capturing page", tint.Err(err),
			"method", req.Method,
			"path", req.URL.Path,
			"url", url,
			"hostname", hostname,
			"status", http.StatusInternalServerError)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	buf, err := json.Marshal(res)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	slog.Info("new capture generated",
		"url", url,
		"hostname", hostname,
		"name", name,
		"screenshots", len(res.Screenshots))
	writeJSON(w, buf)

	// Cache without holding up the HTTP request. The name stays locked until the entry lands, so the
	// next capture with this name sees it & can evict it.
	if Cache != nil {
		unlocked = true
		go func() {
			defer unlock()
			if err := Cache.Write(nameKey(name), []byte(r.CacheKey())); err != nil {
				slog.Error("error writing to cache", tint.Err(err), "name", name)
				return
			}
			if err := Cache.Write(r.CacheKey(), buf); err != nil {
				slog.Error("error writing to cache", tint.Err(err), "url", url)
			}
		}()
	}
}

// capturePage opens the page in the configured browser, and captures it as r asks.
func capturePage(ctx context.Context, r Request, logger *slog.Logger) (Result, error) {
	drv, closeBrowser, err := openDriver(ctx, r.Url, logger)
	if err != nil {
		return Result{}, err
	}
	defer closeBrowser()

	c, err := capture.New(ctx, drv, r.DefaultName(), CaptureOptions(logger)...)
	if err != nil {
		return Result{}, err
	}
	res := Run(ctx, c, r)
	if len(res.Screenshots) == 0 {
		return Result{}, errors.New("no screenshots captured")
	}
	return res, nil
}

// GET /captures/v1/preview?name={name}&chunk={index}
func handlePreview(w http.ResponseWriter, req *http.Request) {
	name := req.URL.Query().Get("name")
	chunk, err := strconv.Atoi(req.URL.Query().Get("chunk"))
	if err != nil || chunk < 0 || chunk >= capture.MaxChunksCeiling {
		http.Error(w, "invalid chunk", http.StatusBadRequest)
		return
	}
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		http.Error(w, "invalid name", http.StatusBadRequest)
		return
	}

	path := capture.ArtifactWriter{Dir: conf.Config.Capture.OutputDir, Name: name}.PreviewPath(chunk)
	webp, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			http.NotFound(w, req)
			return
		}
		slog.Error("error reading preview", tint.Err(err), "path", path)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/webp")
	w.Write(webp)
}

// GET /logs/v1?limit={n}
func handleLogs(w http.ResponseWriter, req *http.Request) {
	if logStore == nil {
		http.Error(w, "logs are not persisted", http.StatusNotFound)
		return
	}
	limit := 100
	if s := req.URL.Query().Get("limit"); s != "" {
		if l, err := strconv.Atoi(s); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}

	logs, err := db.New(logStore).GetRecentLogs(req.Context(), int32(limit))
	if err != nil {
		slog.Error("failed to fetch logs", tint.Err(err),
			"method", req.Method,
			"path", req.URL.Path,
			"status", http.StatusInternalServerError)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	buf, err := json.Marshal(logs)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, buf)
}

func writeJSON(w http.ResponseWriter, buf []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(buf)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)
		slog.Debug(fmt.Sprintf("%s %s", req.Method, req.URL.Path),
			"status", rec.status,
			"from", core.ReadUserIP(req),
			"elapsed", time.Since(start).Round(time.Millisecond))
	})
}
