package bulk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"media-manager/internal/database"
)

func selection(n int) []database.File {
	files := make([]database.File, n)
	for i := range files {
		files[i] = database.File{ID: fmt.Sprintf("file-%d", i)}
	}
	return files
}

func TestRunAllSucceed(t *testing.T) {
	c := New(4)

	var attempted int32
	result, err := c.Run(context.Background(), selection(5), OpTag, func(ctx context.Context, f *database.File) error {
		atomic.AddInt32(&attempted, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Attempted != 5 {
		t.Errorf("Attempted = %d, want 5", result.Attempted)
	}
	if len(result.Succeeded) != 5 {
		t.Errorf("Succeeded = %d ids, want 5", len(result.Succeeded))
	}
	if len(result.Failed) != 0 {
		t.Errorf("Failed = %v, want empty", result.Failed)
	}
	if attempted != 5 {
		t.Errorf("executor ran %d times, want 5", attempted)
	}
	if result.KeepSelected() != nil {
		t.Errorf("KeepSelected = %v, want nil after full success", result.KeepSelected())
	}
}

func TestRunPartialFailure(t *testing.T) {
	c := New(2)

	// Executor fails for two of five items; every item must still be
	// attempted, never short-circuited after the first failure.
	var attempted int32
	result, err := c.Run(context.Background(), selection(5), OpDelete, func(ctx context.Context, f *database.File) error {
		atomic.AddInt32(&attempted, 1)
		if f.ID == "file-1" || f.ID == "file-3" {
			return errors.New("storage unavailable")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if attempted != 5 {
		t.Errorf("executor ran %d times, want 5", attempted)
	}
	if result.Attempted != 5 {
		t.Errorf("Attempted = %d, want 5", result.Attempted)
	}
	if len(result.Succeeded) != 3 {
		t.Errorf("Succeeded = %v, want 3 ids", result.Succeeded)
	}
	if len(result.Failed) != 2 {
		t.Fatalf("Failed = %v, want 2 entries", result.Failed)
	}

	keep := result.KeepSelected()
	if len(keep) != 2 || keep[0] != "file-1" || keep[1] != "file-3" {
		t.Errorf("KeepSelected = %v, want failed ids in input order", keep)
	}
}

func TestRunResultOrderDeterministic(t *testing.T) {
	c := New(8)

	result, err := c.Run(context.Background(), selection(10), OpMove, func(ctx context.Context, f *database.File) error {
		time.Sleep(time.Millisecond) // scramble completion order
		return nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for i, id := range result.Succeeded {
		want := fmt.Sprintf("file-%d", i)
		if id != want {
			t.Fatalf("Succeeded[%d] = %s, want %s (input order)", i, id, want)
		}
	}
}

func TestRunEmptySelection(t *testing.T) {
	c := New(1)

	_, err := c.Run(context.Background(), nil, OpDelete, func(ctx context.Context, f *database.File) error {
		return nil
	})
	if !errors.Is(err, ErrEmptySelection) {
		t.Errorf("expected ErrEmptySelection, got %v", err)
	}
}

func TestRunUnknownOperation(t *testing.T) {
	c := New(1)

	_, err := c.Run(context.Background(), selection(1), Operation("shred"), func(ctx context.Context, f *database.File) error {
		return nil
	})
	if err == nil {
		t.Error("expected error for unknown operation")
	}
}

func TestRunRejectsReentrant(t *testing.T) {
	c := New(1)

	started := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := c.Run(context.Background(), selection(1), OpCopy, func(ctx context.Context, f *database.File) error {
			close(started)
			<-release
			return nil
		})
		if err != nil {
			t.Errorf("first batch failed: %v", err)
		}
	}()

	<-started
	_, err := c.Run(context.Background(), selection(1), OpCopy, func(ctx context.Context, f *database.File) error {
		return nil
	})
	if !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy for re-entrant invocation, got %v", err)
	}

	close(release)
	wg.Wait()

	// The flag clears once the batch finishes.
	if _, err := c.Run(context.Background(), selection(1), OpCopy, func(ctx context.Context, f *database.File) error {
		return nil
	}); err != nil {
		t.Errorf("batch after completion failed: %v", err)
	}
}

func TestRunCancellationAccountsAllItems(t *testing.T) {
	c := New(1)

	ctx, cancel := context.WithCancel(context.Background())

	var attempted int32
	result, err := c.Run(ctx, selection(4), OpDelete, func(ctx context.Context, f *database.File) error {
		if atomic.AddInt32(&attempted, 1) == 1 {
			cancel() // abandon the batch after the first item
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Attempted != 4 {
		t.Errorf("Attempted = %d, want 4 (whole selection accounted)", result.Attempted)
	}
	if got := len(result.Succeeded) + len(result.Failed); got != 4 {
		t.Errorf("Succeeded+Failed = %d, want 4", got)
	}
	if len(result.Failed) == 0 {
		t.Error("expected unissued items recorded as failed after cancellation")
	}
}
