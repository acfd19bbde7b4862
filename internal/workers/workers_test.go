package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	available := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		want       int
	}{
		{"CPU bound no limit", 1.0, 0, available},
		{"IO bound no limit", 2.0, 0, available * 2},
		{"Limit respected", 2.0, 1, 1},
		{"Minimum of one", 0.0, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)
			if got != tt.want {
				t.Errorf("Count(%v, %d) = %d, want %d", tt.multiplier, tt.limit, got, tt.want)
			}
		})
	}
}

func TestCountOverride(t *testing.T) {
	t.Setenv("MEDIA_WORKERS", "3")

	if got := Count(1.0, 0); got != 3 {
		t.Errorf("Count with MEDIA_WORKERS=3 = %d, want 3", got)
	}
	if got := Count(1.0, 2); got != 2 {
		t.Errorf("Count with MEDIA_WORKERS=3 and limit 2 = %d, want 2", got)
	}
}

func TestCountInvalidOverride(t *testing.T) {
	t.Setenv("MEDIA_WORKERS", "not-a-number")

	available := runtime.GOMAXPROCS(0)
	if got := Count(1.0, 0); got != available {
		t.Errorf("Count with invalid override = %d, want %d", got, available)
	}
}
