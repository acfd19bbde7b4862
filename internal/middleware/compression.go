package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

// CompressionConfig holds configuration for the compression middleware.
type CompressionConfig struct {
	// Level is the gzip compression level.
	Level int
	// CompressibleTypes is the list of content types that should be compressed.
	CompressibleTypes []string
}

// DefaultCompressionConfig returns sensible defaults for compression.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		Level: gzip.DefaultCompression,
		CompressibleTypes: []string{
			"application/json",
			"text/html",
			"text/plain",
			"image/svg+xml",
		},
	}
}

// gzipWriterPool reduces allocations by reusing gzip writers.
var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.DefaultCompression)
		return w
	},
}

type gzipResponseWriter struct {
	http.ResponseWriter
	gw          *gzip.Writer
	config      CompressionConfig
	wroteHeader bool
	compressing bool
}

func (g *gzipResponseWriter) WriteHeader(code int) {
	if g.wroteHeader {
		return
	}
	g.wroteHeader = true

	if g.shouldCompress() {
		g.Header().Set("Content-Encoding", "gzip")
		g.Header().Del("Content-Length")
		g.gw = gzipWriterPool.Get().(*gzip.Writer)
		g.gw.Reset(g.ResponseWriter)
		g.compressing = true
	}
	g.ResponseWriter.WriteHeader(code)
}

func (g *gzipResponseWriter) Write(b []byte) (int, error) {
	if !g.wroteHeader {
		g.WriteHeader(http.StatusOK)
	}
	if g.compressing {
		return g.gw.Write(b)
	}
	return g.ResponseWriter.Write(b)
}

func (g *gzipResponseWriter) close() {
	if g.compressing {
		_ = g.gw.Close()
		gzipWriterPool.Put(g.gw)
		g.gw = nil
	}
}

func (g *gzipResponseWriter) shouldCompress() bool {
	contentType := g.Header().Get("Content-Type")
	if contentType == "" {
		return false
	}
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	for _, compressible := range g.config.CompressibleTypes {
		if mediaType == compressible {
			return true
		}
	}
	return false
}

// Compression returns gzip compression middleware. Only responses with
// compressible content types are encoded; media payloads pass through
// untouched since image bytes do not gzip usefully.
func Compression(config CompressionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
				next.ServeHTTP(w, r)
				return
			}

			gz := &gzipResponseWriter{ResponseWriter: w, config: config}
			defer gz.close()

			next.ServeHTTP(gz, r)
		})
	}
}
