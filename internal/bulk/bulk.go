package bulk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"media-manager/internal/database"
	"media-manager/internal/logging"
	"media-manager/internal/metrics"
	"media-manager/internal/workers"
)

// ErrBusy marks a re-entrant invocation while a batch is already running.
var ErrBusy = errors.New("bulk operation already in progress")

// ErrEmptySelection marks a batch with no items.
var ErrEmptySelection = errors.New("selection is empty")

// Operation names the action applied to every selected file.
type Operation string

const (
	// OpDelete removes the files from storage and the registry.
	OpDelete Operation = "delete"
	// OpMove reassigns the files to a destination folder.
	OpMove Operation = "move"
	// OpTag attaches tags to the files.
	OpTag Operation = "tag"
	// OpCopy duplicates the files' storage objects.
	OpCopy Operation = "copy"
	// OpDownload produces download URLs for the files.
	OpDownload Operation = "download"
)

// ValidOperation reports whether op is a known operation kind.
func ValidOperation(op Operation) bool {
	switch op {
	case OpDelete, OpMove, OpTag, OpCopy, OpDownload:
		return true
	}
	return false
}

// ItemFunc is the injected per-item executor: the actual delete, transfer
// or tag collaborator applied to one file.
type ItemFunc func(ctx context.Context, file *database.File) error

// Failure records one item that could not be processed.
type Failure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// Result aggregates a batch. A batch with failures is not an error: the
// caller inspects Failed and decides what to retain selected for retry.
type Result struct {
	Attempted int       `json:"attempted"`
	Succeeded []string  `json:"succeeded"`
	Failed    []Failure `json:"failed"`
}

// Coordinator applies one operation across a selection of files with
// best-effort semantics: every item is attempted exactly once and
// individual failures never abort the batch.
type Coordinator struct {
	mu      sync.Mutex
	running bool
	width   int
}

// New creates a Coordinator. width bounds executor concurrency; 0 sizes
// the pool for I/O-bound work against a rate-limited backend.
func New(width int) *Coordinator {
	if width <= 0 {
		width = workers.ForIO(8)
	}
	return &Coordinator{width: width}
}

// Run applies fn to every file in the selection through a fixed-width
// worker pool and aggregates per-item outcomes in input order.
//
// Cancellation is honored at the per-item boundary: items not yet issued
// when ctx is done are recorded as failed with the context error, so the
// result still accounts for the whole selection.
//
// Only one batch may run at a time; a second invocation while a batch is
// in flight fails with ErrBusy.
func (c *Coordinator) Run(ctx context.Context, files []database.File, op Operation, fn ItemFunc) (*Result, error) {
	if len(files) == 0 {
		return nil, ErrEmptySelection
	}
	if !ValidOperation(op) {
		return nil, fmt.Errorf("unknown operation %q", op)
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.running = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	start := time.Now()
	logging.Debug("Bulk %s: %d items, %d workers", op, len(files), c.width)

	outcomes := make([]error, len(files))
	jobs := make(chan int)
	var wg sync.WaitGroup

	width := c.width
	if width > len(files) {
		width = len(files)
	}
	for w := 0; w < width; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					outcomes[i] = err
					continue
				}
				outcomes[i] = fn(ctx, &files[i])
			}
		}()
	}

	for i := range files {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	result := &Result{
		Attempted: len(files),
		Succeeded: []string{},
		Failed:    []Failure{},
	}
	for i, err := range outcomes {
		if err != nil {
			result.Failed = append(result.Failed, Failure{ID: files[i].ID, Error: err.Error()})
		} else {
			result.Succeeded = append(result.Succeeded, files[i].ID)
		}
	}

	metrics.BulkOperationsTotal.WithLabelValues(string(op)).Inc()
	metrics.BulkItemsTotal.WithLabelValues(string(op), "succeeded").Add(float64(len(result.Succeeded)))
	metrics.BulkItemsTotal.WithLabelValues(string(op), "failed").Add(float64(len(result.Failed)))
	metrics.BulkOperationDuration.WithLabelValues(string(op)).Observe(time.Since(start).Seconds())

	if len(result.Failed) > 0 {
		logging.Info("Bulk %s finished: %d/%d succeeded", op, len(result.Succeeded), result.Attempted)
	} else {
		logging.Debug("Bulk %s finished: all %d succeeded", op, result.Attempted)
	}
	return result, nil
}

// KeepSelected returns the ids a UI should retain selected after a batch:
// nothing when every item succeeded, the failed items otherwise so the
// user can retry them.
func (r *Result) KeepSelected() []string {
	if len(r.Failed) == 0 {
		return nil
	}
	ids := make([]string, len(r.Failed))
	for i, f := range r.Failed {
		ids[i] = f.ID
	}
	return ids
}
