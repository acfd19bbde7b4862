package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"media-manager/internal/bulk"
	"media-manager/internal/database"
	"media-manager/internal/events"
	"media-manager/internal/logging"
)

const presignExpiry = 15 * time.Minute

type bulkRequest struct {
	FileIDs   []string       `json:"fileIds"`
	Operation bulk.Operation `json:"operation"`
	Payload   bulkPayload    `json:"payload"`
}

type bulkPayload struct {
	FolderID *string  `json:"folderId"`
	Tags     []string `json:"tags"`
}

func (req bulkRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.FileIDs, validation.Required),
		validation.Field(&req.Operation, validation.Required, validation.By(func(interface{}) error {
			if !bulk.ValidOperation(req.Operation) {
				return fmt.Errorf("unknown operation %q", req.Operation)
			}
			return nil
		})),
	)
}

// BulkOperation handles POST /api/files/bulk. Partial failure is a normal
// outcome and still returns 200 with the per-item accounting.
func (h *Handlers) BulkOperation(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return
	}

	// Resolve the selection up front so per-item executors work on full
	// records; unknown ids fail item resolution, not the whole batch.
	files := make([]database.File, 0, len(req.FileIDs))
	var missing []bulk.Failure
	for _, id := range req.FileIDs {
		file, err := h.db.GetFile(r.Context(), id)
		if err != nil {
			missing = append(missing, bulk.Failure{ID: id, Error: err.Error()})
			continue
		}
		files = append(files, *file)
	}

	fn, urls, err := h.bulkExecutor(r.Context(), req.Operation, req.Payload)
	if err != nil {
		writeError(w, err)
		return
	}

	// Each request runs its own coordinator; the busy flag guards one
	// selection's run, so unrelated requests never contend.
	result := &bulk.Result{Succeeded: []string{}, Failed: []bulk.Failure{}}
	if len(files) > 0 {
		result, err = bulk.New(0).Run(r.Context(), files, req.Operation, fn)
		if err != nil {
			writeError(w, err)
			return
		}
	}
	result.Attempted += len(missing)
	result.Failed = append(result.Failed, missing...)

	h.publisher.Publish(events.SubjectBulkCompleted, events.BulkCompleted{
		Operation:   string(req.Operation),
		Attempted:   result.Attempted,
		Succeeded:   len(result.Succeeded),
		Failed:      len(result.Failed),
		CompletedAt: time.Now().UTC(),
	})

	response := map[string]interface{}{
		"attempted": result.Attempted,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	}
	if req.Operation == bulk.OpDownload {
		response["urls"] = urls.snapshot()
	}
	writeJSON(w, http.StatusOK, response)
}

// urlMap collects presigned URLs from concurrent download executors.
type urlMap struct {
	mu sync.Mutex
	m  map[string]string
}

func (u *urlMap) set(id, url string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.m[id] = url
}

func (u *urlMap) snapshot() map[string]string {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make(map[string]string, len(u.m))
	for k, v := range u.m {
		out[k] = v
	}
	return out
}

// bulkExecutor builds the per-item function for an operation. The urlMap is
// only populated for downloads.
func (h *Handlers) bulkExecutor(ctx context.Context, op bulk.Operation, payload bulkPayload) (bulk.ItemFunc, *urlMap, error) {
	urls := &urlMap{m: map[string]string{}}

	switch op {
	case bulk.OpDelete:
		return func(ctx context.Context, f *database.File) error {
			if h.store != nil {
				if err := h.store.Remove(ctx, f.Filename); err != nil {
					return err
				}
			}
			return h.db.DeleteFile(ctx, f.ID)
		}, urls, nil

	case bulk.OpMove:
		// Validate the destination once, not per item.
		if payload.FolderID != nil {
			if _, err := h.db.GetFolder(ctx, *payload.FolderID); err != nil {
				return nil, nil, err
			}
		}
		return func(ctx context.Context, f *database.File) error {
			return h.db.ReassignFolder(ctx, f.ID, payload.FolderID)
		}, urls, nil

	case bulk.OpTag:
		if len(payload.Tags) == 0 {
			return nil, nil, fmt.Errorf("%w: tag operation requires tags", database.ErrValidation)
		}
		return func(ctx context.Context, f *database.File) error {
			return h.db.AddTags(ctx, f.ID, payload.Tags)
		}, urls, nil

	case bulk.OpCopy:
		if h.store == nil {
			return nil, nil, fmt.Errorf("%w: copy requires object storage", database.ErrValidation)
		}
		return func(ctx context.Context, f *database.File) error {
			dup := *f
			dup.ID = ""
			dup.Filename = uuid.NewString() + "-" + f.OriginalName
			if err := h.store.Copy(ctx, f.Filename, dup.Filename); err != nil {
				return err
			}
			created, err := h.db.CreateFile(ctx, &dup)
			if err != nil {
				return err
			}
			logging.Debug("Copied file %s to %s", f.ID, created.ID)
			return nil
		}, urls, nil

	case bulk.OpDownload:
		if h.store == nil {
			return nil, nil, fmt.Errorf("%w: download requires object storage", database.ErrValidation)
		}
		return func(ctx context.Context, f *database.File) error {
			url, err := h.store.PresignGet(ctx, f.Filename, presignExpiry)
			if err != nil {
				return err
			}
			urls.set(f.ID, url)
			return nil
		}, urls, nil
	}

	return nil, nil, fmt.Errorf("%w: unknown operation %q", database.ErrValidation, op)
}
