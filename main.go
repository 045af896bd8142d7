package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "time/tzdata"

	"chimbori.dev/scrollshot/appium"
	"chimbori.dev/scrollshot/capture"
	"chimbori.dev/scrollshot/conf"
	"chimbori.dev/scrollshot/core"
	"chimbori.dev/scrollshot/db"
	"chimbori.dev/scrollshot/driver"
	"chimbori.dev/scrollshot/fullpage"
	"chimbori.dev/scrollshot/slogdb"
	"chimbori.dev/scrollshot/validation"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"
)

func main() {
	tintHandler := tint.NewHandler(os.Stderr, &tint.Options{TimeFormat: "2006-01-02 15:04:05.000"})
	slog.SetDefault(slog.New(tintHandler))
	slog.Info(conf.AppName, "build-timestamp", conf.BuildTimestamp)

	healthCheckFlag := flag.Bool("healthcheck", false, "verify health of running service & exit")
	configYmlFlag := flag.String("config", "scrollshot.yml", "path to scrollshot.yml")
	serveFlag := flag.Bool("serve", false, "serve captures over HTTP")
	urlFlag := flag.String("url", "", "URL of the page to capture")
	appiumFlag := flag.Bool("appium", false, "capture the Appium session described in the config file")
	nameFlag := flag.String("name", "", "name of the capture; screenshots are written to <output-dir>/<name>/")
	chunksFlag := flag.Int("chunks", 0, "maximum number of screenshots; 0 uses the configured budget")
	ignoreFlag := flag.String("ignore", "", `selectors of elements to ignore, as JSON, e.g. {"css": [".ad"]}`)
	selectFlag := flag.String("select", "", `selectors of elements to select, as JSON, e.g. {"id": ["buy"]}`)
	purposeFlag := flag.String("purpose", "", "detect a single selector group with an explicit purpose: ignore or select")
	flag.Parse()

	// Read config before any routine maintenance is performed. One-off captures can run without one.
	var err error
	if conf.Config, err = conf.ReadConfig(*configYmlFlag); err != nil {
		if *serveFlag || !errors.Is(err, fs.ErrNotExist) {
			slog.Error("Failed to parse config", tint.Err(err))
			os.Exit(1)
		}
		slog.Warn("No config file; using defaults", "config", *configYmlFlag)
	}

	if *healthCheckFlag {
		os.Exit(core.VerifyHealthCheck(conf.Config.Web.Host, conf.Config.Web.Port))
	}

	// If debug mode was turned on in the config file, print logs at DEBUG or above.
	if conf.Config.Debug {
		tintHandler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: "2006-01-02 15:04:05.000",
		})
		slog.SetDefault(slog.New(tintHandler))
	}

	if conf.Config.Database.Url != "" {
		connectDatabase(tintHandler)
	}

	if *serveFlag {
		serve()
		return
	}

	req, err := fullpage.ParseRequest(url.Values{
		"url":     {*urlFlag},
		"name":    {*nameFlag},
		"chunks":  {strconv.Itoa(*chunksFlag)},
		"ignore":  {*ignoreFlag},
		"select":  {*selectFlag},
		"purpose": {*purposeFlag},
	})
	if err != nil {
		slog.Error("Invalid capture", tint.Err(err))
		flag.PrintDefaults()
		os.Exit(2)
	}
	if req.Url == "" && !*appiumFlag {
		flag.PrintDefaults()
		os.Exit(2)
	}
	os.Exit(captureOnce(req, *appiumFlag))
}

// connectDatabase migrates & connects to the configured database, and from then on, also writes
// error-level logs to it.
func connectDatabase(tintHandler slog.Handler) {
	// Run migrations using [database/sql] before connecting to the DB using [pgxpool.Pool].
	if err := core.RunMigrations(conf.Config.Database.Url, db.EmbedMigrations); err != nil {
		slog.Error("Error running critical migrations", tint.Err(err))
		os.Exit(1)
	}
	var err error
	db.Pool, err = pgxpool.New(context.Background(), conf.Config.Database.Url)
	if err != nil {
		slog.Error("Unable to connect to database", tint.Err(err))
		os.Exit(1)
	}
	slog.Info("Connected to database successfully")

	slog.SetDefault(slog.New(slogdb.NewDBHandler(tintHandler, db.Pool)))
	slog.Info("Database error logging enabled")
}

func serve() {
	// Set up cron task for routine maintenance.
	go func() {
		// Do a one-off cleanup before scheduling a recurring task.
		performMaintenance()
		ticker := time.Tick(2 * time.Hour)
		for {
			<-ticker
			performMaintenance()
		}
	}()

	// Set up a graceful cleanup for when the process is terminated.
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-signalCh
		fmt.Println()
		if db.Pool != nil {
			db.Pool.Close()
		}
		slog.Info("Shutdown successfully!")
		os.Exit(0)
	}()

	var checks []core.HealthCheck
	if db.Pool != nil {
		checks = append(checks, db.Pool.Ping)
	}

	mux := http.NewServeMux()
	core.SetupHealthCheck(mux, checks...)
	fullpage.Init(mux)

	addr := net.JoinHostPort("", strconv.Itoa(conf.Config.Web.Port))
	slog.Info("Listening", "url", "http://localhost"+addr) // Not "https://", since this app does not terminate SSL.
	log.Fatal(http.ListenAndServe(addr, mux))
}

// captureOnce runs a single capture, prints its JSON result to stdout, and returns the exit code.
func captureOnce(req fullpage.Request, useAppium bool) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if req.Url != "" {
		validated, _, err := validation.ValidateUrl(req.Url, nil)
		if err != nil {
			slog.Error("Invalid URL", tint.Err(err), "url", req.Url)
			return 2
		}
		req.Url = validated
	}
	logger := slog.Default().With("url", req.Url)

	var drv driver.Driver
	if useAppium {
		session, err := appium.NewSession(ctx, conf.Config.Appium.Url, driver.Capabilities(conf.Config.Appium.Capabilities), logger)
		if err != nil {
			slog.Error("Failed to start Appium session", tint.Err(err), "appium", conf.Config.Appium.Url)
			return 1
		}
		defer session.Close(context.Background())
		if req.Url != "" {
			if err := session.Navigate(ctx, req.Url); err != nil {
				slog.Error("Failed to navigate", tint.Err(err), "url", req.Url)
				return 1
			}
		}
		drv = session
	} else {
		browserCtx, cancelBrowser := context.WithTimeout(ctx, conf.Config.Browser.Timeout)
		defer cancelBrowser()
		browser, closeBrowser, err := fullpage.OpenBrowser(browserCtx, req.Url, logger)
		if err != nil {
			slog.Error("Failed to open page", tint.Err(err), "url", req.Url)
			return 1
		}
		defer closeBrowser()
		drv = browser
		ctx = browserCtx
	}

	c, err := capture.New(ctx, drv, req.DefaultName(), fullpage.CaptureOptions(logger)...)
	if err != nil {
		slog.Error("Failed to start capture", tint.Err(err))
		return 2
	}
	res := fullpage.Run(ctx, c, req)

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		slog.Error("Failed to encode result", tint.Err(err))
		return 1
	}
	fmt.Println(string(out))
	if len(res.Screenshots) == 0 {
		return 1
	}
	slog.Info("Capture completed", "name", res.Name, "screenshots", len(res.Screenshots), "dir", c.Dir())
	return 0
}
