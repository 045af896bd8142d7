package conf

// App-specific configuration structs & data.
// Must live in a package of its own so other packages within the app can depend on it without
// causing a circular dependency.

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"chimbori.dev/scrollshot/core"
	"gopkg.in/yaml.v3"
)

var AppName = "Scrollshot"

var BuildTimestamp string

var Config AppConfig

// configOutput receives the effective config once it has been read.
var configOutput io.Writer = os.Stderr

const (
	EngineChromedp = "chromedp"
	EngineRod      = "rod"
)

type AppConfig struct {
	DataDir  string // The directory containing `scrollshot.yml` is where all data will be stored.
	Database struct {
		Url string `yaml:"url"`
	} `yaml:"database"`
	Web struct {
		Host         string   `yaml:"host"`
		Port         int      `yaml:"port"`
		AllowedHosts []string `yaml:"allowed-hosts"` // Hosts that may be captured via HTTP; empty allows all.
	} `yaml:"web"`
	Logs struct {
		Retention time.Duration `yaml:"retention"`
	} `yaml:"logs"`
	Capture struct {
		MaxChunks int    `yaml:"max-chunks"`
		OutputDir string `yaml:"output-dir"`
		TestType  string `yaml:"test-type"`
		Settle    struct {
			Scroll    time.Duration `yaml:"scroll"`
			Signature time.Duration `yaml:"signature"`
		} `yaml:"settle"`
		Previews     *bool `yaml:"previews"`
		PreviewWidth int   `yaml:"preview-width"`
		Compress     bool  `yaml:"compress"` // Losslessly recompress chunks before writing them.
	} `yaml:"capture"`
	Browser struct {
		Engine   string `yaml:"engine"`
		Headless *bool  `yaml:"headless"`
		Stealth  bool   `yaml:"stealth"`
		Device   string `yaml:"device"`
		Viewport struct {
			Width  int `yaml:"width"`
			Height int `yaml:"height"`
		} `yaml:"viewport"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"browser"`
	Appium struct {
		Url          string         `yaml:"url"`
		Capabilities map[string]any `yaml:"capabilities"`
	} `yaml:"appium"`
	Cache struct {
		Enabled      *bool         `yaml:"enabled"`
		TTL          time.Duration `yaml:"ttl"`
		MaxSizeBytes int64         `yaml:"max-size-bytes"`
	} `yaml:"cache"`
	Debug bool `yaml:"debug"`
}

var configYmlPath string

func ReadConfig(configYmlFile string) (AppConfig, error) {
	if BuildTimestamp == "" {
		BuildTimestamp = time.Now().Local().Format("2006-01-02 15:04:05")
	}

	c := &AppConfig{}
	var err error
	configYmlPath, err = filepath.Abs(configYmlFile)
	if err != nil {
		setDefaultsAndPrint(c)
		return *c, fmt.Errorf("Failed to get path to config file: %w", err)
	}

	buf, err := os.ReadFile(configYmlPath)
	if err != nil {
		setDefaultsAndPrint(c)
		return *c, fmt.Errorf("Failed to read config file: %w", err)
	}

	err = yaml.Unmarshal(buf, c)
	if err != nil {
		setDefaultsAndPrint(c)
		return *c, fmt.Errorf("Failed to parse config: %w", err)
	}

	setDefaultsAndPrint(c)
	return *c, err
}

func setDefaultsAndPrint(c *AppConfig) {
	c.DataDir = filepath.Dir(configYmlPath)
	if c.Web.Host == "" {
		// Don’t replace this by string(…); the net.IP --> string conversion will fail.
		c.Web.Host = fmt.Sprintf("%s", core.GetOutboundIP())
	}
	if c.Web.Port == 0 {
		c.Web.Port = 9999
	}
	if c.Logs.Retention == 0 {
		c.Logs.Retention = 30 * 24 * time.Hour
	}

	// Never capture more than 10 chunks, no matter what the config file says.
	if c.Capture.MaxChunks <= 0 || c.Capture.MaxChunks > 10 {
		c.Capture.MaxChunks = 10
	}
	if c.Capture.OutputDir == "" {
		c.Capture.OutputDir = filepath.Join(c.DataDir, "captures")
	}
	if c.Capture.TestType == "" {
		c.Capture.TestType = "web"
	}
	if c.Capture.Settle.Scroll == 0 {
		c.Capture.Settle.Scroll = 500 * time.Millisecond
	}
	if c.Capture.Settle.Signature == 0 {
		c.Capture.Settle.Signature = 300 * time.Millisecond
	}
	if c.Capture.Previews == nil {
		c.Capture.Previews = core.Ptr(true)
	}
	if c.Capture.PreviewWidth == 0 {
		c.Capture.PreviewWidth = 600
	}

	if c.Browser.Engine == "" {
		c.Browser.Engine = EngineChromedp
	}
	if c.Browser.Headless == nil {
		c.Browser.Headless = core.Ptr(true)
	}
	if c.Browser.Viewport.Width == 0 || c.Browser.Viewport.Height == 0 {
		c.Browser.Viewport.Width = 1280
		c.Browser.Viewport.Height = 800
	}
	if c.Browser.Timeout == 0 {
		c.Browser.Timeout = 60 * time.Second
	}

	// Cache for captures is enabled by default; only disable it when testing or debugging.
	if c.Cache.Enabled == nil {
		c.Cache.Enabled = core.Ptr(true)
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 24 * time.Hour
	}
	if c.Cache.MaxSizeBytes == 0 {
		c.Cache.MaxSizeBytes = 1 * 1024 * 1024 * 1024 // 1GB
	}

	// Print the effective config to stderr, so stdout stays reserved for capture results.
	printed := *c
	printed.Database.Url = redactUrl(c.Database.Url)
	json, _ := json.MarshalIndent(printed, "", "\t")
	fmt.Fprintln(configOutput, string(json))

	// Print warnings for unsafe settings, just as FYI.
	if c.Debug {
		slog.Warn("Debug mode is enabled")
	}

	if !*c.Cache.Enabled {
		slog.Warn("Capture cache disabled; performance will be affected")
	}
	if c.Browser.Engine != EngineChromedp && c.Browser.Engine != EngineRod {
		slog.Warn("Unknown browser engine; falling back to chromedp", "engine", c.Browser.Engine)
		c.Browser.Engine = EngineChromedp
	}
	switch c.Capture.TestType {
	case "web", "app", "web-on-device":
	default:
		slog.Warn("Unknown test type; falling back to web", "test-type", c.Capture.TestType)
		c.Capture.TestType = "web"
	}
	if c.Browser.Stealth && c.Browser.Engine != EngineRod {
		slog.Warn("Stealth mode is only supported by the rod engine", "engine", c.Browser.Engine)
	}
	if c.Database.Url == "" {
		slog.Warn("No database configured; error logs will not be persisted")
	}
}

// redactUrl hides the password in a database URL. Connection strings that are not URLs are hidden
// entirely.
func redactUrl(databaseUrl string) string {
	if databaseUrl == "" {
		return ""
	}
	u, err := url.Parse(databaseUrl)
	if err != nil || u.Scheme == "" {
		return "(redacted)"
	}
	return u.Redacted()
}
