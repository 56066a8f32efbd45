package startup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"clipforge/internal/logging"
	"clipforge/internal/probe"
	"clipforge/internal/render"

	"github.com/gorilla/mux"
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
	DataDir         string
	ExportDir       string
	Port            string
	MetricsPort     string
	LogHealthChecks bool
	MetricsEnabled  bool

	FFmpegPath  string
	FFprobePath string

	ScratchPreferredBytes uint64
	ScratchMinimumBytes   uint64

	DefaultSettings render.Settings

	// Derived paths
	DatabasePath string
	PosterDir    string
	ProjectDir   string

	// Set by CheckToolchain
	NVENCAvailable bool
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	dataDir := getEnv("DATA_DIR", "/data")
	exportDir := getEnv("EXPORT_DIR", "/exports")
	port := getEnv("PORT", "8080")
	metricsPort := getEnv("METRICS_PORT", "9090")
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", true)
	ffmpegPath := getEnv("FFMPEG_PATH", "ffmpeg")
	ffprobePath := getEnv("FFPROBE_PATH", "ffprobe")
	preferredGiB := getEnvUint("SCRATCH_PREFERRED_GIB", render.DefaultPreferredFreeBytes>>30)
	minimumGiB := getEnvUint("SCRATCH_MINIMUM_GIB", render.DefaultMinimumFreeBytes>>30)

	logging.Info("  DATA_DIR:              %s", dataDir)
	logging.Info("  EXPORT_DIR:            %s", exportDir)
	logging.Info("  PORT:                  %s", port)
	logging.Info("  METRICS_PORT:          %s", metricsPort)
	logging.Info("  METRICS_ENABLED:       %v", metricsEnabled)
	logging.Info("  FFMPEG_PATH:           %s", ffmpegPath)
	logging.Info("  FFPROBE_PATH:          %s", ffprobePath)
	logging.Info("  SCRATCH_PREFERRED_GIB: %d", preferredGiB)
	logging.Info("  SCRATCH_MINIMUM_GIB:   %d", minimumGiB)
	logging.Info("  LOG_HEALTH_CHECKS:     %v", logHealthChecks)
	logging.Info("  LOG_LEVEL:             %s", logging.GetLevel())

	settings := render.DefaultSettings()
	if fps := getEnv("DEFAULT_FPS", ""); fps != "" {
		if v, err := strconv.ParseFloat(fps, 64); err == nil && v > 0 {
			settings.FPS = v
		} else {
			logging.Warn("  Invalid DEFAULT_FPS %q, using %v", fps, settings.FPS)
		}
	}
	if codec := getEnv("DEFAULT_VIDEO_CODEC", ""); codec != "" {
		settings.VideoCodec = codec
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("default render settings: %w", err)
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	dataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	logging.Info("  Data directory (absolute): %s", dataDir)

	exportDir, err = filepath.Abs(exportDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve export directory path: %w", err)
	}
	logging.Info("  Export directory (absolute): %s", exportDir)

	config := &Config{
		DataDir:               dataDir,
		ExportDir:             exportDir,
		Port:                  port,
		MetricsPort:           metricsPort,
		LogHealthChecks:       logHealthChecks,
		MetricsEnabled:        metricsEnabled,
		FFmpegPath:            ffmpegPath,
		FFprobePath:           ffprobePath,
		ScratchPreferredBytes: preferredGiB << 30,
		ScratchMinimumBytes:   minimumGiB << 30,
		DefaultSettings:       settings,
		DatabasePath:          filepath.Join(dataDir, "clipforge.db"),
		PosterDir:             filepath.Join(dataDir, "posters"),
		ProjectDir:            filepath.Join(dataDir, "projects"),
	}

	// Data directory must exist and be writable: the job database lives
	// there.
	if err := ensureDirectory(dataDir, "data"); err != nil {
		return nil, fmt.Errorf("data directory error: %w", err)
	}
	logging.Debug("  Testing data directory write access...")
	if err := testWriteAccess(dataDir); err != nil {
		return nil, fmt.Errorf("data directory is not writable (required for job history): %w", err)
	}
	logging.Info("  [OK] Data directory is writable")

	// Export directory is where renders land; refuse to start without it.
	if err := ensureDirectory(exportDir, "export"); err != nil {
		return nil, fmt.Errorf("export directory error: %w", err)
	}
	if err := testWriteAccess(exportDir); err != nil {
		return nil, fmt.Errorf("export directory is not writable: %w", err)
	}
	logging.Info("  [OK] Export directory is writable")

	if err := os.MkdirAll(config.PosterDir, 0o755); err != nil {
		logging.Warn("  Failed to create poster directory: %v", err)
	}
	if err := os.MkdirAll(config.ProjectDir, 0o755); err != nil {
		logging.Warn("  Failed to create project directory: %v", err)
	}

	return config, nil
}

// CheckToolchain verifies ffmpeg and ffprobe are runnable and detects NVENC
// availability. A missing ffmpeg is fatal; missing NVENC only downgrades
// hardware codecs to software.
func (c *Config) CheckToolchain() error {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("TOOLCHAIN CHECK")
	logging.Info("------------------------------------------------------------")

	if err := checkTool(c.FFmpegPath); err != nil {
		return fmt.Errorf("ffmpeg check failed: %w", err)
	}
	logging.Info("  [OK] ffmpeg is available")

	if err := checkTool(c.FFprobePath); err != nil {
		return fmt.Errorf("ffprobe check failed: %w", err)
	}
	probe.SetBinary(c.FFprobePath)
	logging.Info("  [OK] ffprobe is available")

	c.NVENCAvailable = detectNVENC(c.FFmpegPath)
	if c.NVENCAvailable {
		logging.Info("  [OK] NVENC hardware encoders detected")
	} else {
		logging.Warn("  NVENC not detected; hardware codecs fall back to software")
	}
	return nil
}

func checkTool(path string) error {
	resolved, err := exec.LookPath(path)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", path)
	}
	logging.Debug("  Tool path: %s", resolved)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, "-version")
	output, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("failed to get version: %w", err)
	}
	if lines := strings.Split(string(output), "\n"); len(lines) > 0 {
		logging.Debug("  Version: %s", strings.TrimSpace(lines[0]))
	}
	return nil
}

// detectNVENC asks ffmpeg for its encoder list and looks for the NVENC
// entries.
func detectNVENC(ffmpeg string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, ffmpeg, "-hide_banner", "-encoders")
	output, err := cmd.Output()
	if err != nil {
		logging.Warn("  Encoder probe failed: %v", err)
		return false
	}
	return strings.Contains(string(output), "hevc_nvenc") ||
		strings.Contains(string(output), "h264_nvenc")
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified (e.g., static file server)
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))

		sort.Slice(routes, func(i, j int) bool { return routes[i].Path < routes[j].Path })
		for _, route := range routes {
			logging.Debug("    %-6s %s", route.Method, route.Path)
		}
		logging.Debug("")
	}

	if logHealthChecks {
		logging.Info("  Health check logging: ON")
	} else {
		logging.Info("  Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    API:           http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
   ________    _       ______
  / ____/ (_)___  / ____/___  _________ ____
 / /   / / / __ \/ /_  / __ \/ ___/ __ '/ _ \
/ /___/ / / /_/ / __/ / /_/ / /  / /_/ /  __/
\____/_/_/ .___/_/    \____/_/   \__, /\___/
        /_/                     /____/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
		// Write access itself was confirmed.
	}
	return nil
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

func getEnvUint(key string, defaultValue uint64) uint64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		logging.Warn("Invalid value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
