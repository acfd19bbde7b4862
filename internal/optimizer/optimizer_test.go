package optimizer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

func TestCalculateDimensions(t *testing.T) {
	tests := []struct {
		name                   string
		origW, origH           int
		maxW, maxH             int
		wantW, wantH           int
	}{
		{"Landscape width bound", 4000, 2000, 1920, 1080, 1920, 960},
		{"Portrait height bound", 1000, 4000, 1920, 1080, 270, 1080},
		{"Already fits", 800, 600, 1920, 1080, 800, 600},
		{"Exact fit", 1920, 1080, 1920, 1080, 1920, 1080},
		{"Square over both bounds", 4000, 4000, 1920, 1080, 1080, 1080},
		{"Landscape rebound by height", 2000, 1900, 1920, 1080, 1137, 1080},
		{"Portrait rebound by width", 1900, 2000, 960, 1080, 960, 1011},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotW, gotH := CalculateDimensions(tt.origW, tt.origH, tt.maxW, tt.maxH)
			if gotW != tt.wantW || gotH != tt.wantH {
				t.Errorf("CalculateDimensions(%d, %d, %d, %d) = (%d, %d), want (%d, %d)",
					tt.origW, tt.origH, tt.maxW, tt.maxH, gotW, gotH, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 Bytes"},
		{1, "1 Bytes"},
		{512, "512 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{1100, "1.07 KB"},
		{1048576, "1 MB"},
		{5 * 1024 * 1024, "5 MB"},
		{1073741824, "1 GB"},
		{1536 * 1024 * 1024 * 1024, "1536 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := FormatFileSize(tt.bytes); got != tt.expected {
				t.Errorf("FormatFileSize(%d) = %q, want %q", tt.bytes, got, tt.expected)
			}
		})
	}
}

func TestCompressionRatio(t *testing.T) {
	tests := []struct {
		name       string
		original   int64
		optimized  int64
		expected   float64
	}{
		{"Forty percent saved", 1000, 600, 40},
		{"Grew by twenty percent", 1000, 1200, -20},
		{"No change", 500, 500, 0},
		{"Zero original", 0, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompressionRatio(tt.original, tt.optimized); got != tt.expected {
				t.Errorf("CompressionRatio(%d, %d) = %v, want %v", tt.original, tt.optimized, got, tt.expected)
			}
		})
	}
}

// testImage returns PNG bytes for a solid image of the given size.
func testImage(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestOptimizeResizesAndEncodes(t *testing.T) {
	source := testImage(t, 100, 50)

	result, err := Optimize(context.Background(), source, Options{
		MaxWidth:  50,
		MaxHeight: 50,
		Format:    FormatJPEG,
	})
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	if result.Width != 50 || result.Height != 25 {
		t.Errorf("dimensions = %dx%d, want 50x25", result.Width, result.Height)
	}
	if result.Format != FormatJPEG {
		t.Errorf("format = %s, want jpeg", result.Format)
	}
	if result.SizeBytes != int64(len(result.Data)) {
		t.Errorf("SizeBytes = %d, want %d", result.SizeBytes, len(result.Data))
	}
	if len(result.Data) == 0 {
		t.Error("encoded data is empty")
	}
	if !strings.HasPrefix(result.URL, "data:image/jpeg;base64,") {
		t.Errorf("URL = %q, want data URI", result.URL)
	}
}

func TestOptimizeKeepsSmallImages(t *testing.T) {
	source := testImage(t, 40, 30)

	result, err := Optimize(context.Background(), source, Options{Format: FormatPNG})
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if result.Width != 40 || result.Height != 30 {
		t.Errorf("dimensions = %dx%d, want unchanged 40x30", result.Width, result.Height)
	}
}

func TestOptimizeCorruptInput(t *testing.T) {
	_, err := Optimize(context.Background(), []byte("not an image"), Options{})
	if !errors.Is(err, ErrEncoding) {
		t.Errorf("expected ErrEncoding, got %v", err)
	}
}

func TestOptimizeEmptyInput(t *testing.T) {
	_, err := Optimize(context.Background(), nil, Options{})
	if !errors.Is(err, ErrEncoding) {
		t.Errorf("expected ErrEncoding, got %v", err)
	}
}

func TestOptimizeWebPWithoutVips(t *testing.T) {
	if IsVipsAvailable() {
		t.Skip("libvips available; fallback path not reachable")
	}
	_, err := Optimize(context.Background(), testImage(t, 10, 10), Options{Format: FormatWebP})
	if !errors.Is(err, ErrEncoding) {
		t.Errorf("expected ErrEncoding for webp without vips, got %v", err)
	}
}

func TestOptimizeCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Optimize(ctx, testImage(t, 10, 10), Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestThumbnailDefaults(t *testing.T) {
	source := testImage(t, 1000, 1000)

	result, err := Thumbnail(context.Background(), source, 0, 0, Options{Format: FormatJPEG})
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}
	// Square source in a 300x200 box is height-bound.
	if result.Width != 200 || result.Height != 200 {
		t.Errorf("dimensions = %dx%d, want 200x200", result.Width, result.Height)
	}
}

func TestResponsiveSizes(t *testing.T) {
	source := testImage(t, 800, 400)
	sizes := []Size{{Width: 400}, {Width: 200, Height: 200}, {Width: 100}}

	variants := ResponsiveSizes(context.Background(), source, sizes, Options{Format: FormatJPEG})

	if len(variants) != len(sizes) {
		t.Fatalf("got %d variants, want %d", len(variants), len(sizes))
	}

	for i, v := range variants {
		if v.Size != sizes[i] {
			t.Errorf("variant %d keyed to %+v, want %+v", i, v.Size, sizes[i])
		}
		if v.Err != nil {
			t.Errorf("variant %d failed: %v", i, v.Err)
		}
	}

	if variants[0].Result.Width != 400 || variants[0].Result.Height != 200 {
		t.Errorf("variant 0 = %dx%d, want 400x200", variants[0].Result.Width, variants[0].Result.Height)
	}
	if variants[1].Result.Width != 200 || variants[1].Result.Height != 100 {
		t.Errorf("variant 1 = %dx%d, want 200x100", variants[1].Result.Width, variants[1].Result.Height)
	}
	if variants[2].Result.Width != 100 || variants[2].Result.Height != 50 {
		t.Errorf("variant 2 = %dx%d, want 100x50", variants[2].Result.Width, variants[2].Result.Height)
	}
}

func TestResponsiveSizesPartialFailure(t *testing.T) {
	// A batch over corrupt input reports every size as failed without
	// aborting; a batch over good input keeps successes independent.
	variants := ResponsiveSizes(context.Background(), []byte("corrupt"), []Size{{Width: 100}, {Width: 50}}, Options{})

	for i, v := range variants {
		if !errors.Is(v.Err, ErrEncoding) {
			t.Errorf("variant %d: expected ErrEncoding, got %v", i, v.Err)
		}
	}
}

func TestResponsiveSizesCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	variants := ResponsiveSizes(ctx, testImage(t, 100, 100), []Size{{Width: 50}, {Width: 25}}, Options{})

	for i, v := range variants {
		if !errors.Is(v.Err, context.Canceled) {
			t.Errorf("variant %d: expected context.Canceled, got %v", i, v.Err)
		}
	}
}

func TestRecommendedFormat(t *testing.T) {
	first := RecommendedFormat()
	if first != FormatWebP && first != FormatJPEG {
		t.Fatalf("RecommendedFormat() = %q", first)
	}
	// Memoized process-wide: repeated calls agree.
	if second := RecommendedFormat(); second != first {
		t.Errorf("RecommendedFormat() changed between calls: %q then %q", first, second)
	}
}
