package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"media-manager/internal/logging"
	"media-manager/internal/storage"
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

// Config holds all application configuration
type Config struct {
	Port           string
	MetricsPort    string
	MetricsEnabled bool
	DatabaseDir    string
	DatabasePath   string

	// Object storage; StorageEnabled is false when no endpoint is set,
	// which disables uploads and storage-backed bulk operations.
	Storage        storage.Config
	StorageEnabled bool

	// Event publishing; empty NATSURL disables it.
	NATSURL string

	// Optimizer defaults applied to uploads.
	OptimizeQuality   int
	OptimizeMaxWidth  int
	OptimizeMaxHeight int

	// Upload limits.
	MaxUploadBytes int64

	LogHealthChecks bool
}

// LoadConfig loads and validates configuration from environment variables.
// A .env file in the working directory is applied first when present.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		logging.Debug("Loaded environment from .env file")
	}

	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	port := getEnv("PORT", "8080")
	metricsPort := getEnv("METRICS_PORT", "9090")
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)
	databaseDir := getEnv("DATABASE_DIR", "/database")
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", true)

	storageEndpoint := getEnv("MINIO_ENDPOINT", "")
	storageBucket := getEnv("MINIO_BUCKET", "media")
	natsURL := getEnv("NATS_URL", "")

	quality := getEnvInt("OPTIMIZE_QUALITY", 85, 1, 100)
	maxWidth := getEnvInt("OPTIMIZE_MAX_WIDTH", 1920, 16, 16384)
	maxHeight := getEnvInt("OPTIMIZE_MAX_HEIGHT", 1080, 16, 16384)
	maxUploadMB := getEnvInt("MAX_UPLOAD_MB", 100, 1, 4096)

	logging.Info("  PORT:                %s", port)
	logging.Info("  METRICS_PORT:        %s", metricsPort)
	logging.Info("  METRICS_ENABLED:     %v", metricsEnabled)
	logging.Info("  DATABASE_DIR:        %s", databaseDir)
	logging.Info("  MINIO_ENDPOINT:      %s", orUnset(storageEndpoint))
	logging.Info("  MINIO_BUCKET:        %s", storageBucket)
	logging.Info("  NATS_URL:            %s", orUnset(natsURL))
	logging.Info("  OPTIMIZE_QUALITY:    %d", quality)
	logging.Info("  OPTIMIZE_MAX_WIDTH:  %d", maxWidth)
	logging.Info("  OPTIMIZE_MAX_HEIGHT: %d", maxHeight)
	logging.Info("  MAX_UPLOAD_MB:       %d", maxUploadMB)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", logHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	databaseDir, err := filepath.Abs(databaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}

	if err := os.MkdirAll(databaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	if err := testWriteAccess(databaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable: %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	config := &Config{
		Port:           port,
		MetricsPort:    metricsPort,
		MetricsEnabled: metricsEnabled,
		DatabaseDir:    databaseDir,
		DatabasePath:   filepath.Join(databaseDir, "media.db"),
		Storage: storage.Config{
			Endpoint:  storageEndpoint,
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    storageBucket,
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		StorageEnabled:    storageEndpoint != "",
		NATSURL:           natsURL,
		OptimizeQuality:   quality,
		OptimizeMaxWidth:  maxWidth,
		OptimizeMaxHeight: maxHeight,
		MaxUploadBytes:    int64(maxUploadMB) << 20,
		LogHealthChecks:   logHealthChecks,
	}

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Database:  ENABLED (required)")
	logging.Info("    Storage:   %s", enabledString(config.StorageEnabled))
	logging.Info("    Events:    %s", enabledString(natsURL != ""))
	logging.Info("    Metrics:   %s", enabledString(metricsEnabled))

	return config, nil
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func orUnset(value string) string {
	if value == "" {
		return "(unset)"
	}
	return value
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    API:           http://0.0.0.0:%s/api", config.Port)
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
    __  ___         ___         __  ___
   /  |/  /__  ____/ (_)___ _  /  |/  /___ _____  ___ ____ ____  ____
  / /|_/ / _ \/ __  / / __ '/ / /|_/ / __ '/ __ \/ _ '/ _ '/ _ \/ __|
 / /  / /  __/ /_/ / / /_/ / / /  / / /_/ / / / / /_/ / /_/ /  __/ |
/_/  /_/\___/\__,_/_/\__,_/ /_/  /_/\__,_/_/ /_/\__,_/\__, /\___/|_|
                                                     /____/
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

	logging.Info("")
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

func getEnvInt(key string, defaultValue, min, max int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < min || parsed > max {
		logging.Warn("Invalid value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
