package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"media-manager/internal/database"
	"media-manager/internal/logging"
)

// ListFiles handles GET /api/files with filter, sort, and pagination query
// parameters. folderId=null selects unfiled files.
func (h *Handlers) ListFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := database.ListOptions{
		MimePrefix: q.Get("mimeTypePrefix"),
		Query:      q.Get("query"),
		SortField:  database.SortField(q.Get("sortField")),
		SortOrder:  database.SortOrder(q.Get("sortOrder")),
	}

	if v := q.Get("folderId"); v != "" {
		if v == "null" {
			unfiled := ""
			opts.FolderID = &unfiled
		} else {
			opts.FolderID = &v
		}
	}

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			writeError(w, fmt.Errorf("%w: invalid page %q", database.ErrValidation, v))
			return
		}
		opts.Page = page
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			writeError(w, fmt.Errorf("%w: invalid limit %q", database.ErrValidation, v))
			return
		}
		opts.Limit = limit
	}

	listing, err := h.db.ListFiles(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"data":       listing.Files,
		"pagination": listing.Pagination,
	})
}

// GetFile handles GET /api/files/{id}.
func (h *Handlers) GetFile(w http.ResponseWriter, r *http.Request) {
	file, err := h.db.GetFile(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    file,
	})
}

// DeleteFile handles DELETE /api/files/{id}. The storage object is removed
// first; a missing object does not block deleting the record.
func (h *Handlers) DeleteFile(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	file, err := h.db.GetFile(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	if h.store != nil {
		if err := h.store.Remove(r.Context(), file.Filename); err != nil {
			logging.Warn("Failed to remove storage object %s: %v", file.Filename, err)
		}
	}

	if err := h.db.DeleteFile(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	logging.Info("Deleted file %s (%s)", file.OriginalName, id)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

type reassignFolderRequest struct {
	FolderID *string `json:"folderId"`
}

// ReassignFolder handles PUT /api/files/{id}/folder. A null folderId makes
// the file unfiled.
func (h *Handlers) ReassignFolder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req reassignFolderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.db.ReassignFolder(r.Context(), id, req.FolderID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

type markStatusRequest struct {
	Status database.ProcessingStatus `json:"status"`
}

// MarkStatus handles PUT /api/files/{id}/status.
func (h *Handlers) MarkStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req markStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.db.MarkStatus(r.Context(), id, req.Status); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}
