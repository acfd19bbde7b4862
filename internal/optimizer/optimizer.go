package optimizer

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"strconv"
	"time"

	"media-manager/internal/logging"
	"media-manager/internal/metrics"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP format support
)

// ErrEncoding marks a decode or encode failure (corrupt input, or an
// output format the running environment cannot produce).
var ErrEncoding = errors.New("image encoding failed")

// Format is an output encoding.
type Format string

const (
	// FormatJPEG encodes to JPEG.
	FormatJPEG Format = "jpeg"
	// FormatWebP encodes to WebP. Requires libvips.
	FormatWebP Format = "webp"
	// FormatPNG encodes to PNG.
	FormatPNG Format = "png"
)

const (
	defaultQuality   = 85
	defaultMaxWidth  = 1920
	defaultMaxHeight = 1080
	// unboundedSide stands in for "no constraint on this axis".
	unboundedSide = 1 << 30
)

// Options controls one optimization pass. Zero values take the defaults:
// quality 85, bounds 1920x1080, JPEG output.
type Options struct {
	Quality       int
	MaxWidth      int
	MaxHeight     int
	Format        Format
	Progressive   bool
	StripMetadata bool
}

func (o Options) withDefaults() Options {
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = defaultQuality
	}
	if o.MaxWidth <= 0 {
		o.MaxWidth = defaultMaxWidth
	}
	if o.MaxHeight <= 0 {
		o.MaxHeight = defaultMaxHeight
	}
	if o.Format == "" {
		o.Format = FormatJPEG
	}
	return o
}

// Optimized is the result of one optimization pass. URL carries a data URI
// for the encoded buffer; callers that persist the variant overwrite it
// with the stored object's URL.
type Optimized struct {
	Data      []byte `json:"-"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	SizeBytes int64  `json:"sizeBytes"`
	Format    Format `json:"format"`
	URL       string `json:"url"`
}

// CalculateDimensions fits (origW, origH) inside (maxW, maxH) preserving
// aspect ratio. Images already within bounds are unchanged. The longer
// axis is scaled to its bound first; if the derived other axis still
// exceeds its bound, the scale is recomputed from that constraint instead,
// so both bounds hold simultaneously. Results round to nearest integer.
func CalculateDimensions(origW, origH, maxW, maxH int) (int, int) {
	if origW <= maxW && origH <= maxH {
		return origW, origH
	}

	ratio := float64(origW) / float64(origH)
	var w, h float64

	if origW >= origH {
		w = float64(maxW)
		h = w / ratio
		if h > float64(maxH) {
			h = float64(maxH)
			w = h * ratio
		}
	} else {
		h = float64(maxH)
		w = h * ratio
		if w > float64(maxW) {
			w = float64(maxW)
			h = w / ratio
		}
	}

	return int(math.Round(w)), int(math.Round(h))
}

// Optimize decodes source, fits it within the configured bounds, and
// re-encodes at the requested format and quality. The pipeline is pure:
// no I/O beyond decoding the input and producing the output buffer.
func Optimize(ctx context.Context, source []byte, opts Options) (*Optimized, error) {
	opts = opts.withDefaults()
	start := time.Now()

	result, err := optimize(ctx, source, opts)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.OptimizeTotal.WithLabelValues(string(opts.Format), status).Inc()
	metrics.OptimizeDuration.WithLabelValues(string(opts.Format)).Observe(time.Since(start).Seconds())
	if err == nil {
		if saved := int64(len(source)) - result.SizeBytes; saved > 0 {
			metrics.OptimizeBytesSaved.Add(float64(saved))
		}
	}
	return result, err
}

func optimize(ctx context.Context, source []byte, opts Options) (*Optimized, error) {
	if len(source) == 0 {
		return nil, fmt.Errorf("empty source: %w", ErrEncoding)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// libvips path: decode-time shrinking, progressive/metadata control.
	if IsVipsAvailable() {
		result, err := optimizeWithVips(source, opts)
		if err == nil {
			return result, nil
		}
		if opts.Format == FormatWebP {
			return nil, err
		}
		logging.Debug("vips optimization failed, falling back to standard decode: %v", err)
	} else if opts.Format == FormatWebP {
		return nil, fmt.Errorf("webp output requires libvips: %w", ErrEncoding)
	}

	img, err := imaging.Decode(bytes.NewReader(source), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode: %v: %w", err, ErrEncoding)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := CalculateDimensions(bounds.Dx(), bounds.Dy(), opts.MaxWidth, opts.MaxHeight)
	if width != bounds.Dx() || height != bounds.Dy() {
		img = imaging.Resize(img, width, height, imaging.Lanczos)
	}

	data, err := encodeStd(img, opts)
	if err != nil {
		return nil, err
	}

	return newOptimized(data, width, height, opts.Format), nil
}

// optimizeWithVips runs the whole pipeline in libvips: load, shrink with
// high-quality resampling, export honoring progressive/strip options.
func optimizeWithVips(source []byte, opts Options) (*Optimized, error) {
	ref, err := vips.NewImageFromBuffer(source)
	if err != nil {
		return nil, fmt.Errorf("vips decode: %v: %w", err, ErrEncoding)
	}
	defer ref.Close()

	width, height := CalculateDimensions(ref.Width(), ref.Height(), opts.MaxWidth, opts.MaxHeight)
	if width != ref.Width() || height != ref.Height() {
		if err := ref.Thumbnail(width, height, vips.InterestingNone); err != nil {
			return nil, fmt.Errorf("vips resize: %v: %w", err, ErrEncoding)
		}
	}

	var data []byte
	switch opts.Format {
	case FormatJPEG:
		data, _, err = ref.ExportJpeg(&vips.JpegExportParams{
			Quality:        opts.Quality,
			Interlace:      opts.Progressive,
			StripMetadata:  opts.StripMetadata,
			OptimizeCoding: true,
		})
	case FormatWebP:
		data, _, err = ref.ExportWebp(&vips.WebpExportParams{
			Quality:       opts.Quality,
			StripMetadata: opts.StripMetadata,
		})
	case FormatPNG:
		data, _, err = ref.ExportPng(&vips.PngExportParams{
			Interlace:     opts.Progressive,
			StripMetadata: opts.StripMetadata,
			Compression:   6,
		})
	default:
		return nil, fmt.Errorf("unsupported format %q: %w", opts.Format, ErrEncoding)
	}
	if err != nil {
		return nil, fmt.Errorf("vips export %s: %v: %w", opts.Format, err, ErrEncoding)
	}

	return newOptimized(data, ref.Width(), ref.Height(), opts.Format), nil
}

// encodeStd is the standard-library fallback encoder. WebP is not
// encodable without libvips and is rejected before reaching here.
func encodeStd(img image.Image, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	switch opts.Format {
	case FormatJPEG:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(opts.Quality))
	case FormatPNG:
		err = png.Encode(&buf, img)
	default:
		return nil, fmt.Errorf("unsupported format %q: %w", opts.Format, ErrEncoding)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %v: %w", opts.Format, err, ErrEncoding)
	}
	return buf.Bytes(), nil
}

func newOptimized(data []byte, width, height int, format Format) *Optimized {
	return &Optimized{
		Data:      data,
		Width:     width,
		Height:    height,
		SizeBytes: int64(len(data)),
		Format:    format,
		URL:       dataURI(data, format),
	}
}

func dataURI(data []byte, format Format) string {
	return "data:" + MimeType(format) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// MimeType returns the MIME type for an output format.
func MimeType(format Format) string {
	switch format {
	case FormatWebP:
		return "image/webp"
	case FormatPNG:
		return "image/png"
	default:
		return "image/jpeg"
	}
}

// Thumbnail produces a small variant, 300x200 at quality 80 unless the
// caller overrides either.
func Thumbnail(ctx context.Context, source []byte, width, height int, opts Options) (*Optimized, error) {
	if width <= 0 {
		width = 300
	}
	if height <= 0 {
		height = 200
	}
	if opts.Quality <= 0 {
		opts.Quality = 80
	}
	opts.MaxWidth = width
	opts.MaxHeight = height
	return Optimize(ctx, source, opts)
}

// ConvertToWebP re-encodes source as WebP at quality 85.
func ConvertToWebP(ctx context.Context, source []byte, opts Options) (*Optimized, error) {
	opts.Format = FormatWebP
	opts.Quality = 85
	return Optimize(ctx, source, opts)
}

// FormatFileSize renders a byte count with base-1024 units and up to two
// decimal places. Zero renders as "0 Bytes".
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}

	units := []string{"Bytes", "KB", "MB", "GB"}
	idx := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if idx >= len(units) {
		idx = len(units) - 1
	}

	value := float64(bytes) / math.Pow(1024, float64(idx))
	value = math.Round(value*100) / 100
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + units[idx]
}

// CompressionRatio reports the size reduction as a percentage of the
// original. Negative when optimization grew the output; that is reported,
// not suppressed.
func CompressionRatio(originalSize, optimizedSize int64) float64 {
	if originalSize == 0 {
		return 0
	}
	return (float64(originalSize-optimizedSize) / float64(originalSize)) * 100
}
