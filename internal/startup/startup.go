package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"echo-viewer/internal/logging"
	"echo-viewer/internal/memory"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	BrowseRoot  string
	GalleryRoot string
	DatabaseDir string
	Port        string
	MetricsPort string

	MetricsEnabled  bool
	LogStaticFiles  bool
	LogHealthChecks bool

	AuthEnabled   bool
	SessionExpiry time.Duration

	ThumbnailSize         int
	ThumbnailCacheEntries int
	ThumbnailCacheBytes   int64
	RawPreviewMin         int

	// Derived
	DatabasePath string
}

// LoadConfig reads configuration from the environment and validates the
// directories it names.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	section("CONFIGURATION")

	cfg := &Config{
		BrowseRoot:            getEnv("BROWSE_ROOT", "/mnt"),
		GalleryRoot:           getEnv("GALLERY_ROOT", ""),
		DatabaseDir:           getEnv("DATABASE_DIR", "/app/data"),
		Port:                  getEnv("PORT", "8080"),
		MetricsPort:           getEnv("METRICS_PORT", "9090"),
		MetricsEnabled:        getEnvBool("METRICS_ENABLED", true),
		LogStaticFiles:        getEnvBool("LOG_STATIC_FILES", false),
		LogHealthChecks:       getEnvBool("LOG_HEALTH_CHECKS", false),
		AuthEnabled:           getEnvBool("AUTH_ENABLED", false),
		SessionExpiry:         time.Duration(getEnvInt("SESSION_EXPIRY_HOURS", 168, 1)) * time.Hour,
		ThumbnailSize:         getEnvInt("THUMBNAIL_SIZE", 300, 16),
		ThumbnailCacheEntries: getEnvInt("THUMBNAIL_CACHE_ENTRIES", 2048, 1),
		ThumbnailCacheBytes:   int64(getEnvInt("THUMBNAIL_CACHE_MB", 256, 1)) << 20,
		RawPreviewMin:         getEnvInt("RAW_PREVIEW_MIN", 160, 1),
	}

	logging.Info("  BROWSE_ROOT:              %s", cfg.BrowseRoot)
	logging.Info("  GALLERY_ROOT:             %s", orNone(cfg.GalleryRoot))
	logging.Info("  DATABASE_DIR:             %s", cfg.DatabaseDir)
	logging.Info("  PORT:                     %s", cfg.Port)
	logging.Info("  METRICS_PORT:             %s", cfg.MetricsPort)
	logging.Info("  METRICS_ENABLED:          %v", cfg.MetricsEnabled)
	logging.Info("  AUTH_ENABLED:             %v", cfg.AuthEnabled)
	logging.Info("  SESSION_EXPIRY:           %v", cfg.SessionExpiry)
	logging.Info("  THUMBNAIL_SIZE:           %d", cfg.ThumbnailSize)
	logging.Info("  THUMBNAIL_CACHE_ENTRIES:  %d", cfg.ThumbnailCacheEntries)
	logging.Info("  THUMBNAIL_CACHE_MB:       %d", cfg.ThumbnailCacheBytes>>20)
	logging.Info("  RAW_PREVIEW_MIN:          %d", cfg.RawPreviewMin)
	logging.Info("  LOG_STATIC_FILES:         %v", cfg.LogStaticFiles)
	logging.Info("  LOG_LEVEL:                %s", logging.GetLevel())

	logging.Info("")
	section("DIRECTORY SETUP")

	var err error
	cfg.BrowseRoot, err = filepath.Abs(cfg.BrowseRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve browse root: %w", err)
	}
	if err := requireDirectory(cfg.BrowseRoot); err != nil {
		return nil, fmt.Errorf("browse root %s: %w", cfg.BrowseRoot, err)
	}
	logging.Info("  Browse root (absolute): %s", cfg.BrowseRoot)
	logTopLevel(cfg.BrowseRoot)

	if filepath.IsAbs(cfg.GalleryRoot) {
		rel, err := filepath.Rel(cfg.BrowseRoot, cfg.GalleryRoot)
		if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
			return nil, fmt.Errorf("GALLERY_ROOT %s is outside BROWSE_ROOT", cfg.GalleryRoot)
		}
		cfg.GalleryRoot = filepath.ToSlash(rel)
	}

	if cfg.AuthEnabled {
		cfg.DatabaseDir, err = filepath.Abs(cfg.DatabaseDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database directory: %w", err)
		}
		if err := os.MkdirAll(cfg.DatabaseDir, 0o755); err != nil {
			return nil, fmt.Errorf("database directory error: %w", err)
		}
		if err := testWriteAccess(cfg.DatabaseDir); err != nil {
			return nil, fmt.Errorf("database directory is not writable (required for auth): %w", err)
		}
		cfg.DatabasePath = filepath.Join(cfg.DatabaseDir, "echo.db")
		logging.Info("  [OK] Database directory is writable: %s", cfg.DatabaseDir)
	}

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Authentication: %s", enabledString(cfg.AuthEnabled))
	logging.Info("    Metrics:        %s", enabledString(cfg.MetricsEnabled))

	return cfg, nil
}

// LogMemoryConfig reports the outcome of memory.ConfigureFromEnv.
func LogMemoryConfig(result memory.ConfigResult) {
	section("MEMORY")
	if !result.Configured {
		logging.Info("  GOMEMLIMIT: not configured")
		return
	}
	logging.Info("  GOMEMLIMIT: %d bytes (source %s)", result.GoMemLimit, result.Source)
}

// LogVipsInit logs the libvips startup outcome.
func LogVipsInit(version string, err error) {
	logging.Info("")
	section("CODECS")
	if err != nil {
		logging.Warn("  libvips unavailable: %v", err)
		logging.Warn("  RAW, SVG and ICO files will fail to decode")
		return
	}
	logging.Info("  [OK] libvips %s", version)
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	section("DATABASE INITIALIZATION")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		tmpl, err := route.GetPathTemplate()
		if err != nil {
			// PathPrefix-less handlers (NotFoundHandler) have no template.
			return nil
		}
		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}
		for _, m := range methods {
			routes = append(routes, RouteInfo{Method: m, Path: tmpl, Name: route.GetName()})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs the registered routes at debug level.
func LogHTTPRoutes(router *mux.Router, logStaticFiles bool) {
	logging.Info("")
	section("HTTP SERVER SETUP")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}
		sort.Slice(routes, func(i, j int) bool {
			if routes[i].Path != routes[j].Path {
				return routes[i].Path < routes[j].Path
			}
			return routes[i].Method < routes[j].Method
		})
		logging.Debug("  Registered routes (%d total):", len(routes))
		for _, r := range routes {
			logging.Debug("    %-6s %s", r.Method, r.Path)
		}
	}

	if logStaticFiles {
		logging.Info("  Static file logging: ON")
	} else {
		logging.Info("  Static file logging: OFF (set LOG_STATIC_FILES=true to enable)")
	}
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs the listening endpoints.
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	section("SERVER STARTED")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("  Application:     http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("  Metrics:         http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("  Metrics:         DISABLED")
	}
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	section("SHUTDOWN INITIATED (received " + signal + ")")
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

func section(title string) {
	logging.Info("------------------------------------------------------------")
	logging.Info("%s", title)
	logging.Info("------------------------------------------------------------")
}

func printBanner() {
	banner := `
------------------------------------------------------------
    ______     __         _    ___
   / ____/____/ /_  ____ | |  / (_)__ _      _____  _____
  / __/ / ___/ __ \/ __ \| | / / / _ \ | /| / / _ \/ ___/
 / /___/ /__/ / / / /_/ /| |/ / /  __/ |/ |/ /  __/ /
/_____/\___/_/ /_/\____/ |___/_/\___/|__/|__/\___/_/

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	section("SYSTEM INFORMATION")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))
	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}
	logging.Info("")
}

func requireDirectory(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}
	return nil
}

func logTopLevel(path string) {
	if !logging.IsDebugEnabled() {
		return
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return
	}
	dirs := 0
	for _, e := range entries {
		if e.IsDir() {
			dirs++
		}
	}
	logging.Debug("    Contents: %d files, %d directories (top level)", len(entries)-dirs, dirs)
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func orNone(s string) string {
	if s == "" {
		return "(none, chosen by client)"
	}
	return s
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// getEnvInt parses a positive integer no smaller than minValue.
func getEnvInt(key string, defaultValue, minValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < minValue {
		logging.Warn("Invalid value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
