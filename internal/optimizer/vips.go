package optimizer

import (
	"sync"

	"github.com/davidbyttow/govips/v2/vips"

	"media-manager/internal/logging"
)

var (
	vipsInitMutex   sync.Mutex
	vipsInitialized bool
	vipsAvailable   bool
)

// InitVips initializes the libvips library. Call once at startup; encoding
// falls back to the standard library when vips is unavailable.
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	vipsLogLevel := vips.LogLevelWarning
	if logging.GetLevel() <= logging.LevelDebug {
		vipsLogLevel = vips.LogLevelInfo
	}
	vips.LoggingSettings(func(domain string, level vips.LogLevel, msg string) {
		switch {
		case level >= vips.LogLevelError:
			logging.Error("[%s] %s", domain, msg)
		case level == vips.LogLevelWarning:
			logging.Warn("[%s] %s", domain, msg)
		default:
			logging.Debug("[%s] %s", domain, msg)
		}
	}, vipsLogLevel)

	// Conservative memory settings: one image at a time, small cache.
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
		ReportLeaks:      false,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized (version: %s)", vips.Version)
	return nil
}

// ShutdownVips cleans up libvips resources.
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available.
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

var (
	recommendOnce   sync.Once
	recommendFormat Format
)

// RecommendedFormat returns the preferred output format for this process:
// webp when libvips is available to encode it, jpeg otherwise. The probe
// result is cached process-wide since it cannot change while running.
func RecommendedFormat() Format {
	recommendOnce.Do(func() {
		if IsVipsAvailable() {
			recommendFormat = FormatWebP
		} else {
			recommendFormat = FormatJPEG
		}
		logging.Debug("Recommended output format: %s", recommendFormat)
	})
	return recommendFormat
}
