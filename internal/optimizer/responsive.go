package optimizer

import (
	"context"
	"sync"

	"media-manager/internal/workers"
)

// Size is one responsive variant target. Height 0 means the variant is
// constrained by width only.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height,omitempty"`
}

// Variant pairs a requested size with its outcome. Results are matched
// back to inputs by the Size key, never by completion order.
type Variant struct {
	Size   Size
	Result *Optimized
	Err    error
}

// ResponsiveSizes produces one optimized variant per requested size,
// preserving the base options for each. Sizes share no mutable state and
// are processed by a fixed-width worker pool. A failed size is reported in
// its Variant and does not abort the rest of the batch; cancellation is
// honored at the per-size boundary.
func ResponsiveSizes(ctx context.Context, source []byte, sizes []Size, opts Options) []Variant {
	results := make([]Variant, len(sizes))
	if len(sizes) == 0 {
		return results
	}

	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers.ForCPU(len(sizes)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = makeVariant(ctx, source, sizes[i], opts)
			}
		}()
	}

	for i := range sizes {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func makeVariant(ctx context.Context, source []byte, size Size, opts Options) Variant {
	if err := ctx.Err(); err != nil {
		return Variant{Size: size, Err: err}
	}

	opts.MaxWidth = size.Width
	if size.Height > 0 {
		opts.MaxHeight = size.Height
	} else {
		opts.MaxHeight = unboundedSide
	}

	result, err := Optimize(ctx, source, opts)
	return Variant{Size: size, Result: result, Err: err}
}
